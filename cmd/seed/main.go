// Package main seeds a Keyport database.
//
// It applies migrations, creates the default administrator and loads the
// platform catalog from a YAML file. Every step is idempotent.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"keyport.io/keyport/internal/config"
	"keyport.io/keyport/internal/domain"
	"keyport.io/keyport/internal/infrastructure"
	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/repository"
	"keyport.io/keyport/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, logger.ComponentSeed); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	logger.Info("Starting data seeding...")

	if err := db.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	hasher := service.NewPasswordHasher(cfg.Security.PasswordHashCost, nil)
	if err := seedDefaultAdmin(ctx, db.Store, hasher, cfg.Seed); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if cfg.Seed.PlatformsFile != "" {
		catalog, err := loadPlatformCatalog(cfg.Seed.PlatformsFile)
		if err != nil {
			return fmt.Errorf("load platform catalog: %w", err)
		}
		if err := seedPlatforms(ctx, db.Store, catalog); err != nil {
			return fmt.Errorf("seed platforms: %w", err)
		}
	}

	logger.Info("Data seeding completed successfully")
	return nil
}

// seedStore is the slice of the repository the seeder writes through.
type seedStore interface {
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (domain.User, error)
	GetPlatformByName(ctx context.Context, name string) (domain.Platform, error)
	CreatePlatform(ctx context.Context, arg repository.CreatePlatformParams) (domain.Platform, error)
}

// seedDefaultAdmin creates the administrator named in seed config. Without a
// configured password one is generated and logged once.
func seedDefaultAdmin(ctx context.Context, store seedStore, hasher *service.PasswordHasher, cfg config.SeedConfig) error {
	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" {
		username = "admin"
	}

	existing, err := store.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if !existing.IsAdmin {
			logger.Warn("Seed admin username belongs to a non-admin user, skipping", zap.String("username", username))
			return nil
		}
		logger.Info("Default admin already exists, skipping", zap.String("username", username))
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("look up %s: %w", username, err)
	}

	password := cfg.AdminPassword
	generated := password == ""
	if generated {
		password, err = randomPassword()
		if err != nil {
			return err
		}
	}

	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = store.CreateUser(ctx, repository.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		logger.Info("Default admin already exists, skipping", zap.String("username", username))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	if generated {
		// Printed to stdout only; never logged.
		fmt.Fprintf(os.Stdout, "generated password for %s: %s\n", username, password)
	}
	logger.Info("Seeded default admin user", zap.String("username", username), zap.Bool("generated_password", generated))
	return nil
}

func randomPassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate admin password: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// platformCatalog is the YAML document read from seed.platforms_file.
type platformCatalog struct {
	Platforms []platformEntry `yaml:"platforms"`
}

type platformEntry struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
}

func loadPlatformCatalog(path string) ([]platformEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var catalog platformCatalog
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(catalog.Platforms))
	for i, p := range catalog.Platforms {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("platform #%d has no name", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("platform %q listed twice", name)
		}
		seen[name] = struct{}{}
		catalog.Platforms[i].Name = name
	}
	return catalog.Platforms, nil
}

// seedPlatforms creates catalog entries whose name is not yet taken.
func seedPlatforms(ctx context.Context, store seedStore, platforms []platformEntry) error {
	for _, p := range platforms {
		_, err := store.GetPlatformByName(ctx, p.Name)
		if err == nil {
			logger.Info("Platform already exists, skipping", zap.String("platform", p.Name))
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("look up platform %s: %w", p.Name, err)
		}

		if _, err := store.CreatePlatform(ctx, repository.CreatePlatformParams{
			Name:        p.Name,
			Description: p.Description,
		}); err != nil {
			return fmt.Errorf("create platform %s: %w", p.Name, err)
		}
		logger.Info("Seeded platform", zap.String("platform", p.Name))
	}
	return nil
}
