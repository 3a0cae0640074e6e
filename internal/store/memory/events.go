package memory

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
)

// EventLog is an in-process broker.Publisher that keeps every event.
type EventLog struct {
	mu     sync.Mutex
	events []model.Event
}

func (l *EventLog) Publish(_ context.Context, _ string, event any) error {
	evt, ok := event.(model.Event)
	if !ok {
		return nil
	}
	l.mu.Lock()
	l.events = append(l.events, evt)
	l.mu.Unlock()
	return nil
}

func (l *EventLog) Events() []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Event(nil), l.events...)
}

// Types lists event types in publish order.
func (l *EventLog) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.EventType
	}
	return out
}
