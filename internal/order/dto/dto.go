package dto

import "github.com/fekuna/omnipos-fulfillment-service/internal/model"

type OrderFilters struct {
	Status     model.OrderStatus
	CustomerID string
}
