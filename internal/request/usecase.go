package request

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request/dto"
)

type UseCase interface {
	CreateRequest(ctx context.Context, input *dto.CreateRequestInput) (*model.Request, error)
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	GetItems(ctx context.Context, requestID string) ([]model.RequestItem, error)

	ListRequests(ctx context.Context, filters *dto.RequestFilters) ([]model.Request, error)
	ListPending(ctx context.Context) ([]model.Request, error)
	ListApproved(ctx context.Context) ([]model.Request, error)
	ListReadyToClose(ctx context.Context) ([]model.Request, error)

	Approve(ctx context.Context, requestID, approverID string) (*model.Request, error)
	Reject(ctx context.Context, requestID, approverID string) (*model.Request, error)
	Close(ctx context.Context, requestID, staffID string) (*model.Request, error)
}
