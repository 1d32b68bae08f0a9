// Package config loads service configuration.
//
// Sources, highest priority first:
//  1. Environment variables (DATABASE_URL, SERVER_PORT, SECURITY_ACCESS_TOKEN_SECRET, ...)
//  2. A .env file in the working directory, if present
//  3. config.yaml (optional)
//  4. Defaults
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Cipher backends for credential values at rest.
const (
	CipherLocal = "local"
	CipherKMS   = "kms"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	River       RiverConfig       `mapstructure:"river"`
	Security    SecurityConfig    `mapstructure:"security"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Seed        SeedConfig        `mapstructure:"seed"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout bounds every API request, storage calls included.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	AllowedOrigins        []string `mapstructure:"allowed_origins"`
	AllowCredentials      bool     `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool     `mapstructure:"unsafe_allow_all_origins"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// The same pool serves the repository and River.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// SecurityConfig contains token, password and local encryption settings.
// Missing signing secrets are generated on boot, so tokens then do not survive
// restarts. EncryptionKey is never generated: credentials sealed with a
// throwaway key are unreadable after a restart.
type SecurityConfig struct {
	AccessTokenSecret  string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret string        `mapstructure:"refresh_token_secret"`
	EncryptionKey      string        `mapstructure:"encryption_key"`
	TokenIssuer        string        `mapstructure:"token_issuer"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	PasswordHashCost   int           `mapstructure:"password_hash_cost"`
}

// CredentialsConfig selects how credential values are sealed at rest.
type CredentialsConfig struct {
	Cipher    string `mapstructure:"cipher"` // local or kms
	KMSKeyID  string `mapstructure:"kms_key_id"`
	KMSRegion string `mapstructure:"kms_region"`
}

// AuditConfig contains audit trail settings.
type AuditConfig struct {
	Retention time.Duration `mapstructure:"retention"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	HashPoolSize    int `mapstructure:"hash_pool_size"`
}

// SeedConfig is read by cmd/seed only.
type SeedConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
	PlatformsFile string `mapstructure:"platforms_file"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/keyport")

	// database.max_conns -> DATABASE_MAX_CONNS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding the real
// environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if len(c.Security.AccessTokenSecret) < 32 {
		return fmt.Errorf("security.access_token_secret must be at least 32 characters")
	}
	if len(c.Security.RefreshTokenSecret) < 32 {
		return fmt.Errorf("security.refresh_token_secret must be at least 32 characters")
	}
	if c.Security.AccessTokenSecret == c.Security.RefreshTokenSecret {
		return fmt.Errorf("security.access_token_secret and security.refresh_token_secret must differ")
	}
	if c.Security.AccessTokenTTL <= 0 || c.Security.RefreshTokenTTL <= 0 {
		return fmt.Errorf("security token TTLs must be positive")
	}
	switch c.Credentials.Cipher {
	case CipherLocal:
		if c.Security.EncryptionKey == "" {
			return fmt.Errorf("security.encryption_key is required when credentials.cipher is %q", CipherLocal)
		}
		if len(c.Security.EncryptionKey) < 32 {
			return fmt.Errorf("security.encryption_key must be at least 32 characters")
		}
	case CipherKMS:
		if c.Credentials.KMSKeyID == "" {
			return fmt.Errorf("credentials.kms_key_id is required when credentials.cipher is %q", CipherKMS)
		}
	default:
		return fmt.Errorf("credentials.cipher must be %q or %q, got %q", CipherLocal, CipherKMS, c.Credentials.Cipher)
	}
	return nil
}

// ensureSecrets generates any missing token signing secret.
func (c *Config) ensureSecrets() error {
	secrets := []struct {
		name string
		env  string
		dst  *string
	}{
		{"access_token_secret", "SECURITY_ACCESS_TOKEN_SECRET", &c.Security.AccessTokenSecret},
		{"refresh_token_secret", "SECURITY_REFRESH_TOKEN_SECRET", &c.Security.RefreshTokenSecret},
	}
	for _, s := range secrets {
		if *s.dst != "" {
			continue
		}
		value, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate %s: %w", s.name, err)
		}
		*s.dst = value
		logBootstrapWarn(
			"auto-generated "+s.name+"; set "+s.env+" env var for persistence",
			zap.Int("length", len(value)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)

	// Database
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "keyport")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "keyport")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 10)
	v.SetDefault("river.completed_job_retention_period", "24h")

	// Security
	v.SetDefault("security.access_token_secret", "")
	v.SetDefault("security.refresh_token_secret", "")
	v.SetDefault("security.encryption_key", "")
	v.SetDefault("security.token_issuer", "keyport")
	v.SetDefault("security.access_token_ttl", "30m")
	v.SetDefault("security.refresh_token_ttl", "168h")
	v.SetDefault("security.password_hash_cost", 12)

	// Credentials at rest
	v.SetDefault("credentials.cipher", CipherLocal)
	v.SetDefault("credentials.kms_key_id", "")
	v.SetDefault("credentials.kms_region", "")

	// Audit
	v.SetDefault("audit.retention", "2160h")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 100)
	v.SetDefault("worker.hash_pool_size", 8)

	// Seed
	v.SetDefault("seed.admin_username", "admin")
	v.SetDefault("seed.admin_password", "")
	v.SetDefault("seed.platforms_file", "")
}
