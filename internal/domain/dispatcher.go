package domain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"keyport.io/keyport/internal/pkg/logger"
)

// EventHandler processes a domain event.
type EventHandler func(ctx context.Context, event *DomainEvent) error

// Publisher is implemented by EventDispatcher. Services depend on this
// interface so tests can record events.
type Publisher interface {
	Dispatch(ctx context.Context, event *DomainEvent) error
}

// EventDispatcher routes domain events to registered handlers.
type EventDispatcher struct {
	handlers map[EventType][]EventHandler
	mu       sync.RWMutex
}

// NewEventDispatcher creates a new EventDispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Register registers a handler for the given event types.
func (d *EventDispatcher) Register(handler EventHandler, eventTypes ...EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, et := range eventTypes {
		d.handlers[et] = append(d.handlers[et], handler)
	}
}

// Dispatch calls every handler for the event's type in registration order.
// A failing handler is logged and does not stop the others; the first error
// is returned.
func (d *EventDispatcher) Dispatch(ctx context.Context, event *DomainEvent) error {
	if d == nil || event == nil {
		return nil
	}

	d.mu.RLock()
	handlers := d.handlers[event.EventType]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("No handlers registered for event type",
			zap.String("event_type", string(event.EventType)),
			zap.String("event_id", event.EventID),
		)
		return nil
	}

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			logger.Error("Event handler failed",
				zap.String("event_type", string(event.EventType)),
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("handler for %s failed: %w", event.EventType, err)
			}
		}
	}

	return firstErr
}
