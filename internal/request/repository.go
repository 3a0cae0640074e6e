package request

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request/dto"
)

type Repository interface {
	// Create inserts the request together with its items.
	Create(ctx context.Context, req *model.Request) error

	// Lookups return nil, nil when the row does not exist.
	FindByID(ctx context.Context, id string) (*model.Request, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Request, error)
	FindAll(ctx context.Context, filters *dto.RequestFilters) ([]model.Request, error)
	FindReadyToClose(ctx context.Context) ([]model.Request, error)
	UpdateStatus(ctx context.Context, req *model.Request) error

	// Items
	FindItems(ctx context.Context, requestID string) ([]model.RequestItem, error)
	FindItemByID(ctx context.Context, itemID string) (*model.RequestItem, error)
	FindItemByIDForUpdate(ctx context.Context, itemID string) (*model.RequestItem, error)
	UpdateItemFulfillment(ctx context.Context, item *model.RequestItem) error
	CountOpenItems(ctx context.Context, requestID string) (int, error)
}
