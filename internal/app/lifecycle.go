package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"keyport.io/keyport/internal/pkg/logger"
)

// Start begins consuming River jobs, which runs the audit retention sweep
// once at startup and daily afterwards. Without a database it is a no-op.
func (a *Application) Start(ctx context.Context) error {
	if a.DB == nil || a.DB.RiverClient == nil {
		return nil
	}
	if err := a.DB.RiverClient.Start(ctx); err != nil {
		return fmt.Errorf("start river client: %w", err)
	}

	fields := []zap.Field{zap.Int("modules", len(a.Modules))}
	if a.Config != nil {
		fields = append(fields,
			zap.String("credentials_cipher", a.Config.Credentials.Cipher),
			zap.Duration("audit_retention", a.Config.Audit.Retention),
		)
	}
	logger.Info("Background jobs started", fields...)
	return nil
}

// Shutdown stops job consumption first so no retention sweep starts while
// modules close. The worker pools drain next, letting queued audit inserts
// and in-flight password hashes finish before the database pool goes away.
func (a *Application) Shutdown(ctx context.Context) {
	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Stop(ctx); err != nil {
			logger.Error("Stop river client failed", zap.Error(err))
		} else {
			logger.Info("Background jobs stopped")
		}
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(ctx); err != nil {
			logger.Warn("Module shutdown failed",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	if a.Pools != nil {
		logger.Info("Draining worker pools", zap.Any("occupancy", a.Pools.Metrics()))
		a.Pools.Shutdown()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
