package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	keys []string
	err  error
}

func (r *recorder) Publish(_ context.Context, key string, _ any) error {
	r.keys = append(r.keys, key)
	return r.err
}

func TestPublishAfterCommit_WaitsForCommit(t *testing.T) {
	pub := &recorder{}
	ctx, hooks := txn.WithHooks(context.Background())

	PublishAfterCommit(ctx, pub, logger.NewNop(), NewEvent(model.EventRequestClosed, "req-1", nil))
	assert.Empty(t, pub.keys)

	hooks.Run(context.Background())
	require.Len(t, pub.keys, 1)
	assert.Equal(t, "req-1", pub.keys[0])
}

func TestPublishAfterCommit_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		PublishAfterCommit(context.Background(), nil, logger.NewNop(), NewEvent(model.EventOrderClosed, "o-1", nil))
	})
}

func TestPublishAfterCommit_ErrorIsSwallowed(t *testing.T) {
	pub := &recorder{err: errors.New("broker down")}

	assert.NotPanics(t, func() {
		PublishAfterCommit(context.Background(), pub, logger.NewNop(), NewEvent(model.EventStockMoved, "p-1", nil))
	})
	assert.Equal(t, []string{"p-1"}, pub.keys)
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(model.EventStockMoved, "p-1", model.StockMovedPayload{ProductID: "p-1"})

	assert.NotEmpty(t, evt.EventID)
	assert.Equal(t, model.EventStockMoved, evt.EventType)
	assert.False(t, evt.Timestamp.IsZero())
}
