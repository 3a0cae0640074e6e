package fulfillment

import (
	"context"

	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment/dto"
)

type UseCase interface {
	// Fulfill withdraws stock against an approved request item. Each call is
	// a distinct physical withdrawal; callers deduplicate retries.
	Fulfill(ctx context.Context, input *dto.FulfillInput) (*dto.FulfillResult, error)
}
