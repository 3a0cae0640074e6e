package order

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order/dto"
)

type Repository interface {
	Create(ctx context.Context, order *model.Order) error

	// Lookups return nil, nil when the row does not exist.
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Order, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error)
	FindReadyToClose(ctx context.Context) ([]model.Order, error)
	UpdateStatus(ctx context.Context, order *model.Order) error

	// Items
	FindItems(ctx context.Context, orderID string) ([]model.OrderItem, error)
	// FindOpenItemsByProductForUpdate locks the order's items for productID
	// that still have remaining quantity, oldest first.
	FindOpenItemsByProductForUpdate(ctx context.Context, orderID, productID string) ([]model.OrderItem, error)
	UpdateItemFulfillment(ctx context.Context, item *model.OrderItem) error
	CountOpenItems(ctx context.Context, orderID string) (int, error)

	// CountActiveRequests counts requests against the order that are neither
	// Rejected nor Closed.
	CountActiveRequests(ctx context.Context, orderID string) (int, error)
}
