package dto

import "github.com/fekuna/omnipos-fulfillment-service/internal/model"

type FulfillInput struct {
	RequestItemID string
	Quantity      int64
	StaffID       string
}

type FulfillResult struct {
	Item          model.RequestItem
	Transaction   model.StockTransaction
	RequestClosed bool
	// OrderItems are the order lines the quantity was propagated to.
	OrderItems []model.OrderItem
	// Unmatched is the part of the quantity no open order line could absorb.
	Unmatched int64
}
