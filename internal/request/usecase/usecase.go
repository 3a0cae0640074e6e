package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/broker"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/txn"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestUseCase struct {
	repo      request.Repository
	orderRepo order.Repository
	tm        txn.Manager
	pub       broker.Publisher
	logger    logger.ZapLogger
}

func NewRequestUseCase(repo request.Repository, orderRepo order.Repository, tm txn.Manager, pub broker.Publisher, log logger.ZapLogger) request.UseCase {
	return &requestUseCase{
		repo:      repo,
		orderRepo: orderRepo,
		tm:        tm,
		pub:       pub,
		logger:    log,
	}
}

func (uc *requestUseCase) CreateRequest(ctx context.Context, input *dto.CreateRequestInput) (*model.Request, error) {
	const op = "request.Create"

	if len(input.Items) == 0 {
		return nil, &apperr.Error{Kind: apperr.InvalidArgument, Op: op, Entity: "request", Msg: "at least one item is required"}
	}
	for _, it := range input.Items {
		if it.Quantity <= 0 {
			return nil, apperr.NewInvalidArgument(op, "product", it.ProductID, it.Quantity, "quantity must be positive")
		}
	}

	now := time.Now().UTC()
	req := &model.Request{
		ID:          uuid.New().String(),
		RequestDate: now,
		Status:      model.RequestAwaitingApproval,
		StaffID:     input.StaffID,
		Description: input.Description,
	}
	if input.OrderID != "" {
		orderID := input.OrderID
		req.OrderID = &orderID
	}
	for i, it := range input.Items {
		req.Items = append(req.Items, model.RequestItem{
			ID:           uuid.New().String(),
			RequestID:    req.ID,
			LineNo:       i + 1,
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			FulfilledQty: 0,
			RemainingQty: it.Quantity,
			CreatedAt:    now,
		})
	}

	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		if req.OrderID != nil {
			// Held until commit. Order.Close takes the same row lock.
			o, err := uc.orderRepo.FindByIDForUpdate(ctx, *req.OrderID)
			if err != nil {
				return err
			}
			if o == nil {
				return apperr.NewNotFound(op, "order", *req.OrderID)
			}
			if o.Status != model.OrderConfirmed {
				return apperr.NewInvalidState(op, "order", o.ID, "order is "+string(o.Status))
			}
		}
		return uc.repo.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("request created",
		zap.String("request_id", req.ID),
		zap.String("staff_id", req.StaffID),
		zap.Int("items", len(req.Items)),
	)
	return req, nil
}

func (uc *requestUseCase) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	req, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NewNotFound("request.Get", "request", id)
	}
	req.Items, err = uc.repo.FindItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (uc *requestUseCase) GetItems(ctx context.Context, requestID string) ([]model.RequestItem, error) {
	req, err := uc.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NewNotFound("request.GetItems", "request", requestID)
	}
	return uc.repo.FindItems(ctx, requestID)
}

func (uc *requestUseCase) ListRequests(ctx context.Context, filters *dto.RequestFilters) ([]model.Request, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *requestUseCase) ListPending(ctx context.Context) ([]model.Request, error) {
	return uc.repo.FindAll(ctx, &dto.RequestFilters{Status: model.RequestAwaitingApproval})
}

func (uc *requestUseCase) ListApproved(ctx context.Context) ([]model.Request, error) {
	return uc.repo.FindAll(ctx, &dto.RequestFilters{Status: model.RequestApproved})
}

func (uc *requestUseCase) ListReadyToClose(ctx context.Context) ([]model.Request, error) {
	return uc.repo.FindReadyToClose(ctx)
}

func (uc *requestUseCase) Approve(ctx context.Context, requestID, approverID string) (*model.Request, error) {
	return uc.decide(ctx, "request.Approve", requestID, approverID, model.RequestApproved, model.EventRequestApproved)
}

func (uc *requestUseCase) Reject(ctx context.Context, requestID, approverID string) (*model.Request, error) {
	return uc.decide(ctx, "request.Reject", requestID, approverID, model.RequestRejected, model.EventRequestRejected)
}

// decide records an approver's verdict on an AwaitingApproval request.
func (uc *requestUseCase) decide(ctx context.Context, op, requestID, approverID string, next model.RequestStatus, eventType string) (*model.Request, error) {
	var req *model.Request
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = uc.repo.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NewNotFound(op, "request", requestID)
		}
		if req.Status != model.RequestAwaitingApproval || !req.Status.CanTransitionTo(next) {
			return apperr.NewInvalidState(op, "request", requestID, "request is "+string(req.Status))
		}

		now := time.Now().UTC()
		req.Status = next
		req.ApprovedBy = &approverID
		req.ApprovedAt = &now
		if err := uc.repo.UpdateStatus(ctx, req); err != nil {
			return err
		}

		broker.PublishAfterCommit(ctx, uc.pub, uc.logger, broker.NewEvent(eventType, req.ID, model.StatusChangedPayload{
			ID:      req.ID,
			Status:  string(next),
			ActorID: approverID,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("request decided",
		zap.String("request_id", req.ID),
		zap.String("status", string(req.Status)),
		zap.String("approver_id", approverID),
	)
	return req, nil
}

func (uc *requestUseCase) Close(ctx context.Context, requestID, staffID string) (*model.Request, error) {
	const op = "request.Close"

	var req *model.Request
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = uc.repo.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NewNotFound(op, "request", requestID)
		}
		if !req.Status.CanTransitionTo(model.RequestClosed) {
			return apperr.NewInvalidState(op, "request", requestID, "request is "+string(req.Status))
		}

		open, err := uc.repo.CountOpenItems(ctx, requestID)
		if err != nil {
			return err
		}
		if open > 0 {
			return apperr.NewConflict(op, "request", requestID, "request has unfulfilled items")
		}

		now := time.Now().UTC()
		req.Status = model.RequestClosed
		req.ClosedBy = &staffID
		req.ClosedAt = &now
		if err := uc.repo.UpdateStatus(ctx, req); err != nil {
			return err
		}

		broker.PublishAfterCommit(ctx, uc.pub, uc.logger, broker.NewEvent(model.EventRequestClosed, req.ID, model.StatusChangedPayload{
			ID:      req.ID,
			Status:  string(model.RequestClosed),
			ActorID: staffID,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("request closed", zap.String("request_id", requestID), zap.String("staff_id", staffID))
	return req, nil
}
