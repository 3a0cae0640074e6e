package dto

import "github.com/shopspring/decimal"

type CreateOrderInput struct {
	CustomerID string
	StaffID    string
	Items      []CreateOrderItemInput
}

type CreateOrderItemInput struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}
