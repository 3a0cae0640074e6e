package handler

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/auth"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/transport/grpcjson"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.fulfillment.v1.FulfillmentService"

type FulfillRequest struct {
	RequestItemID string `json:"request_item_id"`
	Quantity      int64  `json:"quantity"`
	StaffID       string `json:"staff_id"`
}

type FulfillResponse struct {
	Item          model.RequestItem      `json:"item"`
	Transaction   model.StockTransaction `json:"transaction"`
	RequestClosed bool                   `json:"request_closed"`
	OrderItems    []model.OrderItem      `json:"order_items"`
	Unmatched     int64                  `json:"unmatched"`
}

type FulfillmentHandler struct {
	uc     fulfillment.UseCase
	logger logger.ZapLogger
}

func NewFulfillmentHandler(uc fulfillment.UseCase, log logger.ZapLogger) *FulfillmentHandler {
	return &FulfillmentHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *FulfillmentHandler) Register(s grpc.ServiceRegistrar) {
	grpcjson.Register(s, ServiceName, h,
		grpcjson.Method(ServiceName, "Fulfill", h.Fulfill),
	)
}

func (h *FulfillmentHandler) Fulfill(ctx context.Context, req *FulfillRequest) (*FulfillResponse, error) {
	res, err := h.uc.Fulfill(ctx, &dto.FulfillInput{
		RequestItemID: req.RequestItemID,
		Quantity:      req.Quantity,
		StaffID:       auth.StaffOr(ctx, req.StaffID),
	})
	if err != nil {
		return nil, err
	}

	return &FulfillResponse{
		Item:          res.Item,
		Transaction:   res.Transaction,
		RequestClosed: res.RequestClosed,
		OrderItems:    res.OrderItems,
		Unmatched:     res.Unmatched,
	}, nil
}
