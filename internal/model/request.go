package model

import "time"

type RequestStatus string

const (
	RequestAwaitingApproval RequestStatus = "AWAITING_APPROVAL"
	RequestApproved         RequestStatus = "APPROVED"
	RequestRejected         RequestStatus = "REJECTED"
	RequestClosed           RequestStatus = "CLOSED"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestClosed
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case RequestAwaitingApproval:
		return next == RequestApproved || next == RequestRejected
	case RequestApproved:
		return next == RequestClosed
	case RequestRejected, RequestClosed:
		return false
	default:
		return false
	}
}

type Request struct {
	ID          string        `db:"id" json:"id"`
	RequestDate time.Time     `db:"request_date" json:"request_date"`
	Status      RequestStatus `db:"status" json:"status"`
	OrderID     *string       `db:"order_id" json:"order_id"`
	StaffID     string        `db:"staff_id" json:"staff_id"`
	Description string        `db:"description" json:"description"`
	ApprovedBy  *string       `db:"approved_by" json:"approved_by"`
	ApprovedAt  *time.Time    `db:"approved_at" json:"approved_at"`
	ClosedBy    *string       `db:"closed_by" json:"closed_by"`
	ClosedAt    *time.Time    `db:"closed_at" json:"closed_at"`
	Items       []RequestItem `db:"-" json:"items,omitempty"`
}

// RequestItem keeps FulfilledQty + RemainingQty == Quantity.
type RequestItem struct {
	ID           string    `db:"id" json:"id"`
	RequestID    string    `db:"request_id" json:"request_id"`
	LineNo       int       `db:"line_no" json:"line_no"`
	ProductID    string    `db:"product_id" json:"product_id"`
	Quantity     int64     `db:"quantity" json:"quantity"`
	FulfilledQty int64     `db:"fulfilled_qty" json:"fulfilled_qty"`
	RemainingQty int64     `db:"remaining_qty" json:"remaining_qty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (i *RequestItem) Fulfill(qty int64) {
	i.FulfilledQty += qty
	i.RemainingQty -= qty
}
