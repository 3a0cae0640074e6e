package memory

import (
	"context"
	"sort"

	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
)

type InventoryRepository struct {
	s *Store
}

func (r *InventoryRepository) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	defer r.s.guard(ctx)()
	p, ok := r.s.st.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *InventoryRepository) GetProductForUpdate(ctx context.Context, productID string) (*model.Product, error) {
	return r.GetProduct(ctx, productID)
}

func (r *InventoryRepository) AdjustStockWithMovement(ctx context.Context, p *model.Product, movement *model.StockTransaction) error {
	defer r.s.guard(ctx)()
	cur, ok := r.s.st.products[p.ID]
	if !ok {
		return errMissingRow("product", p.ID)
	}
	if p.Quantity < 0 {
		return errCheckViolation("products.quantity")
	}
	cur.Quantity = p.Quantity
	cur.UpdatedAt = p.UpdatedAt
	r.s.st.products[p.ID] = cur
	r.s.st.ledger = append(r.s.st.ledger, *movement)
	return nil
}

func (r *InventoryRepository) ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	defer r.s.guard(ctx)()

	var out []model.StockTransaction
	for _, t := range r.s.st.ledger {
		if f.ProductID != "" && t.ProductID != f.ProductID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.StartDate != nil && t.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && !t.CreatedAt.Before(*f.EndDate) {
			continue
		}
		out = append(out, t)
	}
	// Newest first, matching the Postgres repository.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := len(out)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.PageSize
		if start > len(out) {
			start = len(out)
		}
		end := start + f.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (r *InventoryRepository) SumLedger(ctx context.Context, productID string) (int64, int, error) {
	defer r.s.guard(ctx)()
	var total int64
	var entries int
	for _, t := range r.s.st.ledger {
		if t.ProductID != productID {
			continue
		}
		total += t.Type.Signed(t.Quantity)
		entries++
	}
	return total, entries, nil
}
