package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTx_RollbackRestoresState(t *testing.T) {
	s := NewStore()
	s.PutProduct(model.Product{ID: "p-1", SKU: "SKU-1", Quantity: 10})
	inv := s.Inventory()
	ctx := context.Background()

	hookRan := false
	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		p, err := inv.GetProductForUpdate(ctx, "p-1")
		require.NoError(t, err)
		p.Quantity = 4
		require.NoError(t, inv.AdjustStockWithMovement(ctx, p, &model.StockTransaction{
			ID: "t-1", Type: model.MovementOut, ProductID: "p-1", Quantity: 6, QuantityBefore: 10, QuantityAfter: 4,
		}))
		txn.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, hookRan)

	p, err := inv.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Quantity)

	txs, total, err := inv.ListTransactions(ctx, &dto.TransactionFilters{ProductID: "p-1"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, txs)
}

func TestStore_WithinTx_HooksRunAfterUnlock(t *testing.T) {
	s := NewStore()
	s.PutProduct(model.Product{ID: "p-1", Quantity: 3})
	inv := s.Inventory()

	var seen int64
	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		txn.AfterCommit(ctx, func(ctx context.Context) {
			// Would deadlock if the store were still locked.
			p, err := inv.GetProduct(ctx, "p-1")
			require.NoError(t, err)
			seen = p.Quantity
		})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), seen)
}

func TestStore_WithinTx_NestedJoinsOuter(t *testing.T) {
	s := NewStore()
	s.PutProduct(model.Product{ID: "p-1", Quantity: 3})
	inv := s.Inventory()

	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		inner := s.WithinTx(ctx, func(ctx context.Context) error {
			p, _ := inv.GetProductForUpdate(ctx, "p-1")
			p.Quantity = 0
			return inv.AdjustStockWithMovement(ctx, p, &model.StockTransaction{ID: "t-1", Type: model.MovementOut, ProductID: "p-1", Quantity: 3})
		})
		require.NoError(t, inner)
		return errors.New("outer fails")
	})
	require.Error(t, err)

	p, _ := inv.GetProduct(context.Background(), "p-1")
	assert.Equal(t, int64(3), p.Quantity)
}

func TestRequestRepository_RejectsBrokenTriad(t *testing.T) {
	s := NewStore()
	s.PutProduct(model.Product{ID: "p-1"})
	repo := s.Requests()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Request{
		ID:     "r-1",
		Status: model.RequestApproved,
		Items: []model.RequestItem{
			{ID: "ri-1", RequestID: "r-1", LineNo: 1, ProductID: "p-1", Quantity: 5, RemainingQty: 5},
		},
	}))

	item, err := repo.FindItemByID(ctx, "ri-1")
	require.NoError(t, err)

	item.FulfilledQty = 2
	item.RemainingQty = 2
	assert.Error(t, repo.UpdateItemFulfillment(ctx, item))

	item.FulfilledQty = 6
	item.RemainingQty = -1
	assert.Error(t, repo.UpdateItemFulfillment(ctx, item))
}

func TestCreate_UnknownProductLeavesNoRows(t *testing.T) {
	s := NewStore()
	s.PutProduct(model.Product{ID: "p-1"})
	ctx := context.Background()

	err := s.Requests().Create(ctx, &model.Request{
		ID:     "r-1",
		Status: model.RequestAwaitingApproval,
		Items: []model.RequestItem{
			{ID: "ri-1", RequestID: "r-1", LineNo: 1, ProductID: "p-1", Quantity: 1, RemainingQty: 1},
			{ID: "ri-2", RequestID: "r-1", LineNo: 2, ProductID: "ghost", Quantity: 1, RemainingQty: 1},
		},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	req, err := s.Requests().FindByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Nil(t, req)

	err = s.Orders().Create(ctx, &model.Order{
		ID:     "o-1",
		Status: model.OrderConfirmed,
		Items:  []model.OrderItem{{ID: "oi-1", OrderID: "o-1", LineNo: 1, ProductID: "ghost", Quantity: 1, RemainingQty: 1}},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	o, err := s.Orders().FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestInventoryRepository_SumLedger(t *testing.T) {
	s := NewStore()
	s.PutProduct(model.Product{ID: "p-1"})
	inv := s.Inventory()
	ctx := context.Background()

	moves := []model.StockTransaction{
		{ID: "t-1", Type: model.MovementIn, ProductID: "p-1", Quantity: 10},
		{ID: "t-2", Type: model.MovementOut, ProductID: "p-1", Quantity: 4},
		{ID: "t-3", Type: model.MovementAdjust, ProductID: "p-1", Quantity: -1},
	}
	qty := int64(0)
	for i := range moves {
		qty += moves[i].Type.Signed(moves[i].Quantity)
		require.NoError(t, inv.AdjustStockWithMovement(ctx, &model.Product{ID: "p-1", Quantity: qty}, &moves[i]))
	}

	total, entries, err := inv.SumLedger(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, 3, entries)
}
