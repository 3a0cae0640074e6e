package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderClosed    OrderStatus = "CLOSED"
)

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderConfirmed:
		return next == OrderClosed
	case OrderClosed:
		return false
	default:
		return false
	}
}

type Order struct {
	ID          string          `db:"id" json:"id"`
	OrderDate   time.Time       `db:"order_date" json:"order_date"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status      OrderStatus     `db:"status" json:"status"`
	CustomerID  string          `db:"customer_id" json:"customer_id"`
	StaffID     string          `db:"staff_id" json:"staff_id"`
	ClosedBy    *string         `db:"closed_by" json:"closed_by"`
	ClosedAt    *time.Time      `db:"closed_at" json:"closed_at"`
	Items       []OrderItem     `db:"-" json:"items,omitempty"`
}

type OrderItem struct {
	ID           string          `db:"id" json:"id"`
	OrderID      string          `db:"order_id" json:"order_id"`
	LineNo       int             `db:"line_no" json:"line_no"`
	ProductID    string          `db:"product_id" json:"product_id"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal    decimal.Decimal `db:"line_total" json:"line_total"`
	FulfilledQty int64           `db:"fulfilled_qty" json:"fulfilled_qty"`
	RemainingQty int64           `db:"remaining_qty" json:"remaining_qty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func (i *OrderItem) Fulfill(qty int64) {
	i.FulfilledQty += qty
	i.RemainingQty -= qty
}
