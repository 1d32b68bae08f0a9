package modules

import (
	"context"

	"github.com/riverqueue/river"

	"keyport.io/keyport/internal/domain"
	"keyport.io/keyport/internal/jobs"
	"keyport.io/keyport/internal/pkg/metrics"
)

// GovernanceModule subscribes the audit trail and event metrics to every
// domain event and owns the audit retention job.
type GovernanceModule struct {
	infra *Infrastructure
}

func NewGovernanceModule(infra *Infrastructure) *GovernanceModule {
	if infra.Events != nil {
		if infra.Audit != nil {
			infra.Events.Register(infra.Audit.HandleEvent, domain.AllEventTypes...)
		}
		infra.Events.Register(metrics.RecordEvent, domain.AllEventTypes...)
	}
	return &GovernanceModule{infra: infra}
}

func (m *GovernanceModule) Name() string { return "governance" }

func (m *GovernanceModule) RegisterWorkers(workers *river.Workers) {
	river.AddWorker(workers, jobs.NewAuditRetentionWorker(m.infra.Store, m.infra.Config.Audit.Retention))
}

func (m *GovernanceModule) PeriodicJobs() []*river.PeriodicJob {
	return []*river.PeriodicJob{jobs.AuditRetentionPeriodicJob()}
}

func (m *GovernanceModule) Shutdown(context.Context) error { return nil }
