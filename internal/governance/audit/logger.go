// Package audit writes the append-only audit trail.
//
// Rows are never updated. Only the retention job deletes them, by age.
package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"keyport.io/keyport/internal/domain"
	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/pkg/worker"
	"keyport.io/keyport/internal/repository"
)

// Writer is the storage the Logger needs.
type Writer interface {
	InsertAuditLog(ctx context.Context, arg repository.InsertAuditLogParams) error
}

// Logger writes audit records to the database.
type Logger struct {
	store Writer
	pools *worker.Pools
}

// NewLogger creates a new audit Logger. With non-nil pools, event handling
// is detached from the request so a slow insert never delays a response.
func NewLogger(store Writer, pools *worker.Pools) *Logger {
	return &Logger{store: store, pools: pools}
}

// LogAction records an auditable action.
func (l *Logger) LogAction(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]interface{}) error {
	err := l.store.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Actor:        actor,
		Details:      details,
	})
	if err != nil {
		logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// HandleEvent is a domain.EventHandler that records the event.
func (l *Logger) HandleEvent(ctx context.Context, event *domain.DomainEvent) error {
	if l.pools == nil {
		return l.record(ctx, event)
	}
	return l.pools.SubmitDetached(func(ctx context.Context) {
		_ = l.record(ctx, event)
	})
}

func (l *Logger) record(ctx context.Context, event *domain.DomainEvent) error {
	details := make(map[string]interface{}, len(event.Attributes)+1)
	for k, v := range event.Attributes {
		details[k] = v
	}
	details["event_id"] = event.EventID
	return l.LogAction(ctx, string(event.EventType), event.AggregateType, event.AggregateID, event.Actor, details)
}
