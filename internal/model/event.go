package model

import "time"

const (
	EventStockMoved      = "StockMoved"
	EventRequestApproved = "RequestApproved"
	EventRequestRejected = "RequestRejected"
	EventRequestClosed   = "RequestClosed"
	EventOrderClosed     = "OrderClosed"
)

type Event struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	Payload     any       `json:"payload"`
	Timestamp   time.Time `json:"timestamp"`
}

type StockMovedPayload struct {
	TransactionID string       `json:"transaction_id"`
	ProductID     string       `json:"product_id"`
	Type          MovementType `json:"type"`
	Quantity      int64        `json:"quantity"`
	QuantityAfter int64        `json:"quantity_after"`
	StaffID       string       `json:"staff_id"`
	Reference     string       `json:"reference"`
}

type StatusChangedPayload struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	ActorID string `json:"actor_id,omitempty"`
}
