package dto

import "github.com/fekuna/omnipos-fulfillment-service/internal/model"

type RequestFilters struct {
	Status  model.RequestStatus
	OrderID string
}
