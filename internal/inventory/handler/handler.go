package handler

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/auth"
	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory"
	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/transport/grpcjson"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.fulfillment.v1.InventoryService"

type GetStockRequest struct {
	ProductID string `json:"product_id"`
}

type StockInRequest struct {
	ProductID  string `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	StaffID    string `json:"staff_id"`
	SupplierID string `json:"supplier_id"`
	Note       string `json:"note"`
}

type AdjustStockRequest struct {
	ProductID string `json:"product_id"`
	Delta     int64  `json:"delta"`
	StaffID   string `json:"staff_id"`
	Reason    string `json:"reason"`
}

type ListTransactionsRequest struct {
	ProductID string     `json:"product_id"`
	Type      string     `json:"type"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}

type ListTransactionsResponse struct {
	Transactions []model.StockTransaction `json:"transactions"`
	Total        int                      `json:"total"`
}

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) Register(s grpc.ServiceRegistrar) {
	grpcjson.Register(s, ServiceName, h,
		grpcjson.Method(ServiceName, "GetProductStock", h.GetProductStock),
		grpcjson.Method(ServiceName, "StockIn", h.StockIn),
		grpcjson.Method(ServiceName, "AdjustStock", h.AdjustStock),
		grpcjson.Method(ServiceName, "ListTransactions", h.ListTransactions),
		grpcjson.Method(ServiceName, "Reconcile", h.Reconcile),
	)
}

func (h *InventoryHandler) GetProductStock(ctx context.Context, req *GetStockRequest) (*model.Product, error) {
	return h.uc.GetProductStock(ctx, req.ProductID)
}

func (h *InventoryHandler) StockIn(ctx context.Context, req *StockInRequest) (*model.StockTransaction, error) {
	return h.uc.AddStockIn(ctx, &dto.StockInInput{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		StaffID:    auth.StaffOr(ctx, req.StaffID),
		SupplierID: req.SupplierID,
		Note:       req.Note,
	})
}

func (h *InventoryHandler) AdjustStock(ctx context.Context, req *AdjustStockRequest) (*model.StockTransaction, error) {
	return h.uc.ApplyMovement(ctx, &dto.MovementInput{
		ProductID: req.ProductID,
		Quantity:  req.Delta,
		Type:      model.MovementAdjust,
		StaffID:   auth.StaffOr(ctx, req.StaffID),
		Reference: req.Reason,
	})
}

func (h *InventoryHandler) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*ListTransactionsResponse, error) {
	txs, total, err := h.uc.ListTransactions(ctx, &dto.TransactionFilters{
		ProductID: req.ProductID,
		Type:      model.MovementType(req.Type),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []model.StockTransaction{}
	}
	return &ListTransactionsResponse{Transactions: txs, Total: total}, nil
}

func (h *InventoryHandler) Reconcile(ctx context.Context, req *GetStockRequest) (*model.Reconciliation, error) {
	return h.uc.Reconcile(ctx, req.ProductID)
}
