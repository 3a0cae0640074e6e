// Package memory is an in-process implementation of the repositories and
// the transaction manager. Transactions are serialized on a single mutex and
// roll back by restoring a snapshot, which gives tests the same atomicity
// guarantees as the Postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/txn"
)

type state struct {
	products     map[string]model.Product
	ledger       []model.StockTransaction
	requests     map[string]model.Request
	requestItems map[string]model.RequestItem
	orders       map[string]model.Order
	orderItems   map[string]model.OrderItem
}

func (s *state) clone() *state {
	c := &state{
		products:     make(map[string]model.Product, len(s.products)),
		ledger:       append([]model.StockTransaction(nil), s.ledger...),
		requests:     make(map[string]model.Request, len(s.requests)),
		requestItems: make(map[string]model.RequestItem, len(s.requestItems)),
		orders:       make(map[string]model.Order, len(s.orders)),
		orderItems:   make(map[string]model.OrderItem, len(s.orderItems)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.requestItems {
		c.requestItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: &state{
		products:     map[string]model.Product{},
		requests:     map[string]model.Request{},
		requestItems: map[string]model.RequestItem{},
		orders:       map[string]model.Order{},
		orderItems:   map[string]model.OrderItem{},
	}}
}

type txKey struct{ s *Store }

func (s *Store) inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{s}).(bool)
	return ok
}

// guard locks the store unless ctx already holds it through WithinTx.
func (s *Store) guard(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	txCtx, hooks := txn.WithHooks(context.WithValue(ctx, txKey{s}, true))

	func() {
		s.mu.Lock()
		snapshot := s.st.clone()
		committed := false
		defer func() {
			if !committed {
				s.st = snapshot
			}
			s.mu.Unlock()
		}()

		if err = fn(txCtx); err == nil {
			committed = true
		}
	}()
	if err != nil {
		return err
	}

	// Hooks run after the lock is released, like after a real commit.
	hooks.Run(ctx)
	return nil
}

// PutProduct seeds a product. Product master data is owned elsewhere, so the
// repositories have no create call for it.
func (s *Store) PutProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	s.st.products[p.ID] = p
}

func (s *Store) Inventory() *InventoryRepository { return &InventoryRepository{s: s} }
func (s *Store) Requests() *RequestRepository    { return &RequestRepository{s: s} }
func (s *Store) Orders() *OrderRepository        { return &OrderRepository{s: s} }

func sortRequests(rs []model.Request) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].RequestDate.Equal(rs[j].RequestDate) {
			return rs[i].RequestDate.Before(rs[j].RequestDate)
		}
		return rs[i].ID < rs[j].ID
	})
}

func sortOrders(os []model.Order) {
	sort.Slice(os, func(i, j int) bool {
		if !os[i].OrderDate.Equal(os[j].OrderDate) {
			return os[i].OrderDate.Before(os[j].OrderDate)
		}
		return os[i].ID < os[j].ID
	})
}
