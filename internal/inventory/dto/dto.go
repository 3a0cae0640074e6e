package dto

import (
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
)

type TransactionFilters struct {
	ProductID string
	Type      model.MovementType
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}
