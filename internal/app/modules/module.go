// Package modules contains the dependency units of the composition root.
package modules

import (
	"context"

	"github.com/riverqueue/river"

	"keyport.io/keyport/internal/api/handlers"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// RegisterWorkers registers module workers into a shared River worker registry.
	RegisterWorkers(*river.Workers)

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}

// ServerDepsContributor is implemented by modules that own HTTP dependencies.
type ServerDepsContributor interface {
	ContributeServerDeps(*handlers.ServerDeps)
}

// PeriodicJobContributor is implemented by modules that schedule recurring jobs.
type PeriodicJobContributor interface {
	PeriodicJobs() []*river.PeriodicJob
}
