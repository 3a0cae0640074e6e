package handler

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/auth"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/transport/grpcjson"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.fulfillment.v1.RequestService"

type CreateRequestRequest struct {
	OrderID     string              `json:"order_id"`
	StaffID     string              `json:"staff_id"`
	Description string              `json:"description"`
	Items       []CreateItemRequest `json:"items"`
}

type CreateItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type GetRequestRequest struct {
	ID string `json:"id"`
}

type ListRequestsRequest struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
}

type ListRequestsResponse struct {
	Requests []model.Request `json:"requests"`
}

type DecisionRequest struct {
	ID      string `json:"id"`
	StaffID string `json:"staff_id"`
}

type Empty struct{}

type RequestHandler struct {
	uc     request.UseCase
	logger logger.ZapLogger
}

func NewRequestHandler(uc request.UseCase, log logger.ZapLogger) *RequestHandler {
	return &RequestHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *RequestHandler) Register(s grpc.ServiceRegistrar) {
	grpcjson.Register(s, ServiceName, h,
		grpcjson.Method(ServiceName, "CreateRequest", h.CreateRequest),
		grpcjson.Method(ServiceName, "GetRequest", h.GetRequest),
		grpcjson.Method(ServiceName, "ListRequests", h.ListRequests),
		grpcjson.Method(ServiceName, "ListPending", h.ListPending),
		grpcjson.Method(ServiceName, "ListApproved", h.ListApproved),
		grpcjson.Method(ServiceName, "ListReadyToClose", h.ListReadyToClose),
		grpcjson.Method(ServiceName, "ApproveRequest", h.ApproveRequest),
		grpcjson.Method(ServiceName, "RejectRequest", h.RejectRequest),
		grpcjson.Method(ServiceName, "CloseRequest", h.CloseRequest),
	)
}

func (h *RequestHandler) CreateRequest(ctx context.Context, req *CreateRequestRequest) (*model.Request, error) {
	input := &dto.CreateRequestInput{
		OrderID:     req.OrderID,
		StaffID:     auth.StaffOr(ctx, req.StaffID),
		Description: req.Description,
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, dto.CreateRequestItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return h.uc.CreateRequest(ctx, input)
}

func (h *RequestHandler) GetRequest(ctx context.Context, req *GetRequestRequest) (*model.Request, error) {
	return h.uc.GetRequest(ctx, req.ID)
}

func (h *RequestHandler) ListRequests(ctx context.Context, req *ListRequestsRequest) (*ListRequestsResponse, error) {
	return list(h.uc.ListRequests(ctx, &dto.RequestFilters{
		Status:  model.RequestStatus(req.Status),
		OrderID: req.OrderID,
	}))
}

func (h *RequestHandler) ListPending(ctx context.Context, _ *Empty) (*ListRequestsResponse, error) {
	return list(h.uc.ListPending(ctx))
}

func (h *RequestHandler) ListApproved(ctx context.Context, _ *Empty) (*ListRequestsResponse, error) {
	return list(h.uc.ListApproved(ctx))
}

func (h *RequestHandler) ListReadyToClose(ctx context.Context, _ *Empty) (*ListRequestsResponse, error) {
	return list(h.uc.ListReadyToClose(ctx))
}

func (h *RequestHandler) ApproveRequest(ctx context.Context, req *DecisionRequest) (*model.Request, error) {
	return h.uc.Approve(ctx, req.ID, auth.StaffOr(ctx, req.StaffID))
}

func (h *RequestHandler) RejectRequest(ctx context.Context, req *DecisionRequest) (*model.Request, error) {
	return h.uc.Reject(ctx, req.ID, auth.StaffOr(ctx, req.StaffID))
}

func (h *RequestHandler) CloseRequest(ctx context.Context, req *DecisionRequest) (*model.Request, error) {
	return h.uc.Close(ctx, req.ID, auth.StaffOr(ctx, req.StaffID))
}

func list(rs []model.Request, err error) (*ListRequestsResponse, error) {
	if err != nil {
		return nil, err
	}
	if rs == nil {
		rs = []model.Request{}
	}
	return &ListRequestsResponse{Requests: rs}, nil
}
