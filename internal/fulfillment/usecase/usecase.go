package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/broker"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory"
	invDto "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request"
	"github.com/fekuna/omnipos-fulfillment-service/internal/txn"
	"go.uber.org/zap"
)

const op = "fulfillment.Fulfill"

type fulfillmentUseCase struct {
	requests  request.Repository
	orders    order.Repository
	inventory inventory.UseCase
	tm        txn.Manager
	pub       broker.Publisher
	logger    logger.ZapLogger
}

func NewFulfillmentUseCase(
	requests request.Repository,
	orders order.Repository,
	inv inventory.UseCase,
	tm txn.Manager,
	pub broker.Publisher,
	log logger.ZapLogger,
) fulfillment.UseCase {
	return &fulfillmentUseCase{
		requests:  requests,
		orders:    orders,
		inventory: inv,
		tm:        tm,
		pub:       pub,
		logger:    log,
	}
}

// Fulfill runs as one transaction. Locks are taken in a fixed order:
// request, request item, product (inside the movement writer), then the
// matching order items.
func (uc *fulfillmentUseCase) Fulfill(ctx context.Context, input *dto.FulfillInput) (*dto.FulfillResult, error) {
	if input.Quantity <= 0 {
		return nil, apperr.NewInvalidArgument(op, "request_item", input.RequestItemID, input.Quantity, "quantity must be positive")
	}

	var result *dto.FulfillResult
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = uc.fulfill(ctx, input)
		return err
	})
	if err != nil {
		uc.logger.Debug("fulfillment rejected",
			zap.String("request_item_id", input.RequestItemID),
			zap.Int64("quantity", input.Quantity),
			zap.Error(err),
		)
		return nil, err
	}

	uc.logger.Info("request item fulfilled",
		zap.String("request_item_id", result.Item.ID),
		zap.String("request_id", result.Item.RequestID),
		zap.String("product_id", result.Item.ProductID),
		zap.Int64("quantity", input.Quantity),
		zap.Int64("remaining_qty", result.Item.RemainingQty),
		zap.Bool("request_closed", result.RequestClosed),
		zap.String("staff_id", input.StaffID),
	)
	return result, nil
}

func (uc *fulfillmentUseCase) fulfill(ctx context.Context, input *dto.FulfillInput) (*dto.FulfillResult, error) {
	// Unlocked read to learn the owning request, so the request row can be
	// locked before the item.
	probe, err := uc.requests.FindItemByID(ctx, input.RequestItemID)
	if err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, apperr.NewNotFound(op, "request_item", input.RequestItemID)
	}

	req, err := uc.requests.FindByIDForUpdate(ctx, probe.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NewNotFound(op, "request", probe.RequestID)
	}

	item, err := uc.requests.FindItemByIDForUpdate(ctx, input.RequestItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NewNotFound(op, "request_item", input.RequestItemID)
	}

	if req.Status != model.RequestApproved {
		return nil, apperr.NewInvalidState(op, "request", req.ID, "request is "+string(req.Status))
	}
	if input.Quantity > item.RemainingQty {
		return nil, apperr.NewInvalidArgument(op, "request_item", item.ID, input.Quantity, "exceeds remaining quantity")
	}

	movement, err := uc.inventory.ApplyMovement(ctx, &invDto.MovementInput{
		ProductID: item.ProductID,
		Quantity:  -input.Quantity,
		Type:      model.MovementOut,
		StaffID:   input.StaffID,
		Reference: "Fulfill request " + req.ID,
	})
	if err != nil {
		return nil, err
	}

	item.Fulfill(input.Quantity)
	if err := uc.requests.UpdateItemFulfillment(ctx, item); err != nil {
		return nil, err
	}

	result := &dto.FulfillResult{Item: *item, Transaction: *movement}

	if result.RequestClosed, err = uc.closeIfComplete(ctx, req); err != nil {
		return nil, err
	}

	if req.OrderID != nil {
		result.OrderItems, result.Unmatched, err = uc.propagateToOrder(ctx, *req.OrderID, item.ProductID, input.Quantity)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (uc *fulfillmentUseCase) closeIfComplete(ctx context.Context, req *model.Request) (bool, error) {
	open, err := uc.requests.CountOpenItems(ctx, req.ID)
	if err != nil {
		return false, err
	}
	if open > 0 {
		return false, nil
	}

	now := time.Now().UTC()
	req.Status = model.RequestClosed
	req.ClosedAt = &now
	if err := uc.requests.UpdateStatus(ctx, req); err != nil {
		return false, err
	}

	broker.PublishAfterCommit(ctx, uc.pub, uc.logger, broker.NewEvent(model.EventRequestClosed, req.ID, model.StatusChangedPayload{
		ID:     req.ID,
		Status: string(model.RequestClosed),
	}))
	return true, nil
}

// propagateToOrder spreads qty over the order's open lines for the product,
// oldest line first, never past a line's remaining quantity. Whatever is
// left over is returned as unmatched.
func (uc *fulfillmentUseCase) propagateToOrder(ctx context.Context, orderID, productID string, qty int64) ([]model.OrderItem, int64, error) {
	lines, err := uc.orders.FindOpenItemsByProductForUpdate(ctx, orderID, productID)
	if err != nil {
		return nil, 0, err
	}

	var touched []model.OrderItem
	left := qty
	for i := range lines {
		if left == 0 {
			break
		}
		take := min(left, lines[i].RemainingQty)
		lines[i].Fulfill(take)
		if err := uc.orders.UpdateItemFulfillment(ctx, &lines[i]); err != nil {
			return nil, 0, err
		}
		touched = append(touched, lines[i])
		left -= take
	}

	if left > 0 {
		uc.logger.Warn("fulfilled quantity not matched to an open order line",
			zap.String("order_id", orderID),
			zap.String("product_id", productID),
			zap.Int64("unmatched", left),
		)
	}
	return touched, left, nil
}
