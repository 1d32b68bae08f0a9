package modules

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"keyport.io/keyport/internal/config"
	"keyport.io/keyport/internal/domain"
	"keyport.io/keyport/internal/governance/audit"
	"keyport.io/keyport/internal/infrastructure"
	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/pkg/secretbox"
	"keyport.io/keyport/internal/pkg/worker"
	"keyport.io/keyport/internal/repository"
	"keyport.io/keyport/internal/service"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config *config.Config
	DB     *infrastructure.DatabaseClients
	Pools  *worker.Pools
	Store  repository.Store
	Events *domain.EventDispatcher
	Audit  *audit.Logger
	Vault  *service.CredentialVault
}

// NewInfrastructure opens the database, worker pools and credential cipher.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		HashPoolSize:    cfg.Worker.HashPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	cipher, err := NewCipher(ctx, cfg)
	if err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init credential cipher: %w", err)
	}

	return &Infrastructure{
		Config: cfg,
		DB:     db,
		Pools:  pools,
		Store:  db.Store,
		Events: domain.NewEventDispatcher(),
		Audit:  audit.NewLogger(db.Store, pools),
		Vault:  service.NewCredentialVault(cipher),
	}, nil
}

// NewCipher builds the cipher that seals credential values at rest.
func NewCipher(ctx context.Context, cfg *config.Config) (secretbox.Cipher, error) {
	switch cfg.Credentials.Cipher {
	case config.CipherKMS:
		logger.Info("Credential values sealed with KMS",
			zap.String("key_id", cfg.Credentials.KMSKeyID),
			zap.String("region", cfg.Credentials.KMSRegion),
		)
		return secretbox.NewKMS(ctx, cfg.Credentials.KMSKeyID, cfg.Credentials.KMSRegion)
	case config.CipherLocal, "":
		return secretbox.NewAESGCM(cfg.Security.EncryptionKey)
	default:
		return nil, fmt.Errorf("unknown credentials cipher %q", cfg.Credentials.Cipher)
	}
}

// InitRiver initializes the River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers, periodic []*river.PeriodicJob) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, periodic, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
