package inventory

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
)

type UseCase interface {
	ApplyMovement(ctx context.Context, input *dto.MovementInput) (*model.StockTransaction, error)
	AddStockIn(ctx context.Context, input *dto.StockInInput) (*model.StockTransaction, error)
	GetProductStock(ctx context.Context, productID string) (*model.Product, error)
	ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error)
	Reconcile(ctx context.Context, productID string) (*model.Reconciliation, error)
}
