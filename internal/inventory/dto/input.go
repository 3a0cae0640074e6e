package dto

import "github.com/fekuna/omnipos-fulfillment-service/internal/model"

// MovementInput is a signed stock delta. IN must be positive, OUT negative,
// ADJUST any non-zero value.
type MovementInput struct {
	ProductID string
	Quantity  int64
	Type      model.MovementType
	StaffID   string
	Reference string
}

type StockInInput struct {
	ProductID  string
	Quantity   int64
	StaffID    string
	SupplierID string
	Note       string
}
