package order

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order/dto"
)

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetItems(ctx context.Context, orderID string) ([]model.OrderItem, error)

	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error)
	ListConfirmed(ctx context.Context) ([]model.Order, error)
	ListReadyToClose(ctx context.Context) ([]model.Order, error)

	Close(ctx context.Context, orderID, staffID string) (*model.Order, error)
}
