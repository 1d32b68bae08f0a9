package modules

import (
	"context"

	"github.com/riverqueue/river"

	"keyport.io/keyport/internal/api/handlers"
	"keyport.io/keyport/internal/usecase"
)

// IntegrationModule wires the integration and credential write workflows.
type IntegrationModule struct {
	integrations *usecase.IntegrationUseCase
}

func NewIntegrationModule(infra *Infrastructure) *IntegrationModule {
	return &IntegrationModule{
		integrations: usecase.NewIntegrationUseCase(infra.Store, infra.Vault, infra.Events),
	}
}

func (m *IntegrationModule) Name() string { return "integration" }

func (m *IntegrationModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Integrations = m.integrations
}

func (m *IntegrationModule) RegisterWorkers(_ *river.Workers) {}

func (m *IntegrationModule) Shutdown(context.Context) error { return nil }
