package inventory

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
)

type Repository interface {
	// Products. Both return nil, nil when the product does not exist.
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	GetProductForUpdate(ctx context.Context, productID string) (*model.Product, error)

	// Ledger
	ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error)
	SumLedger(ctx context.Context, productID string) (total int64, entries int, err error)

	// AdjustStockWithMovement writes the new product quantity and appends the
	// ledger row. Callers run it inside a transaction.
	AdjustStockWithMovement(ctx context.Context, product *model.Product, movement *model.StockTransaction) error
}
