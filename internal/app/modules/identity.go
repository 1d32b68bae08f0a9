package modules

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"

	"keyport.io/keyport/internal/api/handlers"
	"keyport.io/keyport/internal/api/middleware"
	"keyport.io/keyport/internal/pkg/worker"
	"keyport.io/keyport/internal/service"
)

// IdentityModule wires registration, login and token verification.
type IdentityModule struct {
	auth *service.AuthService
}

// NewIdentityModule creates the token service and the AuthService.
func NewIdentityModule(infra *Infrastructure) (*IdentityModule, error) {
	sec := infra.Config.Security
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  []byte(sec.AccessTokenSecret),
		RefreshSecret: []byte(sec.RefreshTokenSecret),
		Issuer:        sec.TokenIssuer,
		AccessTTL:     sec.AccessTokenTTL,
		RefreshTTL:    sec.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	var hashPool *worker.Pool
	if infra.Pools != nil {
		hashPool = infra.Pools.Hash
	}
	hasher := service.NewPasswordHasher(sec.PasswordHashCost, hashPool)

	return &IdentityModule{
		auth: service.NewAuthService(infra.Store, hasher, tokens, infra.Events),
	}, nil
}

func (m *IdentityModule) Name() string { return "identity" }

// Gate is what the auth middleware checks tokens and admin rights against.
func (m *IdentityModule) Gate() middleware.Gate { return m.auth }

func (m *IdentityModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Auth = m.auth
}

func (m *IdentityModule) RegisterWorkers(_ *river.Workers) {}

func (m *IdentityModule) Shutdown(context.Context) error { return nil }
