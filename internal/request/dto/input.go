package dto

type CreateRequestInput struct {
	OrderID     string // optional
	StaffID     string
	Description string
	Items       []CreateRequestItemInput
}

type CreateRequestItemInput struct {
	ProductID string
	Quantity  int64
}
