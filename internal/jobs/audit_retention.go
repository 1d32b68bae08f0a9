// Package jobs defines River job types for background maintenance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"keyport.io/keyport/internal/pkg/logger"
)

// DefaultAuditRetention is how long audit rows are kept.
const DefaultAuditRetention = 90 * 24 * time.Hour

// AuditPurger deletes audit rows older than a cutoff.
type AuditPurger interface {
	DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionArgs is a periodic job that prunes the audit trail.
type AuditRetentionArgs struct{}

// Kind returns the job kind identifier.
func (AuditRetentionArgs) Kind() string { return "audit_retention" }

// InsertOpts ensures at most one retention job is enqueued per day.
func (AuditRetentionArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// AuditRetentionWorker deletes audit rows older than the retention window.
type AuditRetentionWorker struct {
	river.WorkerDefaults[AuditRetentionArgs]
	store     AuditPurger
	retention time.Duration
	now       func() time.Time
}

// NewAuditRetentionWorker creates the worker. Non-positive retention falls
// back to DefaultAuditRetention.
func NewAuditRetentionWorker(store AuditPurger, retention time.Duration) *AuditRetentionWorker {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}
	return &AuditRetentionWorker{
		store:     store,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Work removes expired audit rows.
func (w *AuditRetentionWorker) Work(ctx context.Context, _ *river.Job[AuditRetentionArgs]) error {
	if w == nil || w.store == nil {
		return fmt.Errorf("audit retention worker is not initialized")
	}

	cutoff := w.now().Add(-w.retention)
	deleted, err := w.store.DeleteAuditLogsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete audit logs before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	logger.Info("audit retention completed",
		zap.Int64("deleted_rows", deleted),
		zap.String("cutoff", cutoff.Format(time.RFC3339)),
		zap.Duration("retention", w.retention),
	)
	return nil
}

// AuditRetentionPeriodicJob runs the retention job daily and once on start.
func AuditRetentionPeriodicJob() *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(24*time.Hour),
		func() (river.JobArgs, *river.InsertOpts) {
			return AuditRetentionArgs{}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
