package handler

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/auth"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/transport/grpcjson"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.fulfillment.v1.OrderService"

type CreateOrderRequest struct {
	CustomerID string              `json:"customer_id"`
	StaffID    string              `json:"staff_id"`
	Items      []CreateItemRequest `json:"items"`
}

type CreateItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type GetOrderRequest struct {
	ID string `json:"id"`
}

type ListOrdersRequest struct {
	Status     string `json:"status"`
	CustomerID string `json:"customer_id"`
}

type ListOrdersResponse struct {
	Orders []model.Order `json:"orders"`
}

type CloseOrderRequest struct {
	ID      string `json:"id"`
	StaffID string `json:"staff_id"`
}

type Empty struct{}

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *OrderHandler) Register(s grpc.ServiceRegistrar) {
	grpcjson.Register(s, ServiceName, h,
		grpcjson.Method(ServiceName, "CreateOrder", h.CreateOrder),
		grpcjson.Method(ServiceName, "GetOrder", h.GetOrder),
		grpcjson.Method(ServiceName, "ListOrders", h.ListOrders),
		grpcjson.Method(ServiceName, "ListConfirmed", h.ListConfirmed),
		grpcjson.Method(ServiceName, "ListReadyToClose", h.ListReadyToClose),
		grpcjson.Method(ServiceName, "CloseOrder", h.CloseOrder),
	)
}

func (h *OrderHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error) {
	input := &dto.CreateOrderInput{
		CustomerID: req.CustomerID,
		StaffID:    auth.StaffOr(ctx, req.StaffID),
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, dto.CreateOrderItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return h.uc.CreateOrder(ctx, input)
}

func (h *OrderHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*model.Order, error) {
	return h.uc.GetOrder(ctx, req.ID)
}

func (h *OrderHandler) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	return list(h.uc.ListOrders(ctx, &dto.OrderFilters{
		Status:     model.OrderStatus(req.Status),
		CustomerID: req.CustomerID,
	}))
}

func (h *OrderHandler) ListConfirmed(ctx context.Context, _ *Empty) (*ListOrdersResponse, error) {
	return list(h.uc.ListConfirmed(ctx))
}

func (h *OrderHandler) ListReadyToClose(ctx context.Context, _ *Empty) (*ListOrdersResponse, error) {
	return list(h.uc.ListReadyToClose(ctx))
}

func (h *OrderHandler) CloseOrder(ctx context.Context, req *CloseOrderRequest) (*model.Order, error) {
	return h.uc.Close(ctx, req.ID, auth.StaffOr(ctx, req.StaffID))
}

func list(os []model.Order, err error) (*ListOrdersResponse, error) {
	if err != nil {
		return nil, err
	}
	if os == nil {
		os = []model.Order{}
	}
	return &ListOrdersResponse{Orders: os}, nil
}
