package broker

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/txn"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func NewEvent(eventType, aggregateID string, payload any) model.Event {
	return model.Event{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	}
}

// PublishAfterCommit queues evt for delivery once the transaction on ctx
// commits. A nil publisher disables events. Delivery failures are logged.
func PublishAfterCommit(ctx context.Context, pub Publisher, log logger.ZapLogger, evt model.Event) {
	if pub == nil {
		return
	}
	txn.AfterCommit(ctx, func(ctx context.Context) {
		if err := pub.Publish(ctx, evt.AggregateID, evt); err != nil {
			log.Error("failed to publish event",
				zap.String("event_type", evt.EventType),
				zap.String("aggregate_id", evt.AggregateID),
				zap.Error(err),
			)
		}
	})
}
