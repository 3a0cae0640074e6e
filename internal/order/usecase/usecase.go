package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/broker"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/txn"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type orderUseCase struct {
	repo   order.Repository
	tm     txn.Manager
	pub    broker.Publisher
	logger logger.ZapLogger
}

func NewOrderUseCase(repo order.Repository, tm txn.Manager, pub broker.Publisher, log logger.ZapLogger) order.UseCase {
	return &orderUseCase{
		repo:   repo,
		tm:     tm,
		pub:    pub,
		logger: log,
	}
}

func (uc *orderUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	const op = "order.Create"

	if len(input.Items) == 0 {
		return nil, &apperr.Error{Kind: apperr.InvalidArgument, Op: op, Entity: "order", Msg: "at least one item is required"}
	}

	now := time.Now().UTC()
	o := &model.Order{
		ID:          uuid.New().String(),
		OrderDate:   now,
		TotalAmount: decimal.Zero,
		Status:      model.OrderConfirmed,
		CustomerID:  input.CustomerID,
		StaffID:     input.StaffID,
	}

	for i, it := range input.Items {
		if it.Quantity <= 0 {
			return nil, apperr.NewInvalidArgument(op, "product", it.ProductID, it.Quantity, "quantity must be positive")
		}
		if it.UnitPrice.IsNegative() {
			return nil, &apperr.Error{
				Kind:   apperr.InvalidArgument,
				Op:     op,
				Entity: "product",
				ID:     it.ProductID,
				Msg:    fmt.Sprintf("unit price %s must not be negative", it.UnitPrice),
			}
		}

		lineTotal := it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
		o.TotalAmount = o.TotalAmount.Add(lineTotal)
		o.Items = append(o.Items, model.OrderItem{
			ID:           uuid.New().String(),
			OrderID:      o.ID,
			LineNo:       i + 1,
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			LineTotal:    lineTotal,
			FulfilledQty: 0,
			RemainingQty: it.Quantity,
			CreatedAt:    now,
		})
	}

	if err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		return uc.repo.Create(ctx, o)
	}); err != nil {
		return nil, err
	}

	uc.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.String("total_amount", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NewNotFound("order.Get", "order", id)
	}
	o.Items, err = uc.repo.FindItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *orderUseCase) GetItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	o, err := uc.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NewNotFound("order.GetItems", "order", orderID)
	}
	return uc.repo.FindItems(ctx, orderID)
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *orderUseCase) ListConfirmed(ctx context.Context) ([]model.Order, error) {
	return uc.repo.FindAll(ctx, &dto.OrderFilters{Status: model.OrderConfirmed})
}

func (uc *orderUseCase) ListReadyToClose(ctx context.Context) ([]model.Order, error) {
	return uc.repo.FindReadyToClose(ctx)
}

// Close closes an order once every item is fulfilled and every request
// raised against it is Rejected or Closed.
func (uc *orderUseCase) Close(ctx context.Context, orderID, staffID string) (*model.Order, error) {
	const op = "order.Close"

	var o *model.Order
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = uc.repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.NewNotFound(op, "order", orderID)
		}
		if !o.Status.CanTransitionTo(model.OrderClosed) {
			return apperr.NewInvalidState(op, "order", orderID, "order is "+string(o.Status))
		}

		active, err := uc.repo.CountActiveRequests(ctx, orderID)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.NewConflict(op, "order", orderID, fmt.Sprintf("%d request(s) still pending", active))
		}

		open, err := uc.repo.CountOpenItems(ctx, orderID)
		if err != nil {
			return err
		}
		if open > 0 {
			return apperr.NewConflict(op, "order", orderID, fmt.Sprintf("%d item(s) not fulfilled", open))
		}

		now := time.Now().UTC()
		o.Status = model.OrderClosed
		o.ClosedBy = &staffID
		o.ClosedAt = &now
		if err := uc.repo.UpdateStatus(ctx, o); err != nil {
			return err
		}

		broker.PublishAfterCommit(ctx, uc.pub, uc.logger, broker.NewEvent(model.EventOrderClosed, o.ID, model.StatusChangedPayload{
			ID:      o.ID,
			Status:  string(model.OrderClosed),
			ActorID: staffID,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order closed", zap.String("order_id", orderID), zap.String("staff_id", staffID))
	return o, nil
}
