package modules

import (
	"context"

	"github.com/riverqueue/river"

	"keyport.io/keyport/internal/api/handlers"
	"keyport.io/keyport/internal/service"
)

// CatalogModule wires the read side of users, platforms and credentials,
// plus admin platform creation.
type CatalogModule struct {
	catalog *service.CatalogService
}

func NewCatalogModule(infra *Infrastructure) *CatalogModule {
	return &CatalogModule{
		catalog: service.NewCatalogService(infra.Store, infra.Vault, infra.Events),
	}
}

func (m *CatalogModule) Name() string { return "catalog" }

func (m *CatalogModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Catalog = m.catalog
}

func (m *CatalogModule) RegisterWorkers(_ *river.Workers) {}

func (m *CatalogModule) Shutdown(context.Context) error { return nil }
