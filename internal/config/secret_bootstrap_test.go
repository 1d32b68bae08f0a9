package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Security: SecurityConfig{
			AccessTokenSecret:  "access-0123456789abcdef0123456789abcdef",
			RefreshTokenSecret: "refresh-0123456789abcdef0123456789abcdef",
			AccessTokenTTL:     30 * time.Minute,
			RefreshTokenTTL:    7 * 24 * time.Hour,
			EncryptionKey:      "encryption-0123456789abcdef0123456789",
		},
		Credentials: CredentialsConfig{Cipher: CipherLocal},
	}
}

func TestEnsureSecrets_GeneratesMissingValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	if err := cfg.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() error = %v", err)
	}

	for name, got := range map[string]string{
		"access":  cfg.Security.AccessTokenSecret,
		"refresh": cfg.Security.RefreshTokenSecret,
	} {
		// 32 random bytes hex-encoded -> 64 chars.
		if len(got) != 64 {
			t.Fatalf("%s secret length = %d, want 64", name, len(got))
		}
	}
	if cfg.Security.AccessTokenSecret == cfg.Security.RefreshTokenSecret {
		t.Fatal("generated access and refresh secrets must differ")
	}
	if cfg.Security.EncryptionKey != "" {
		t.Fatalf("encryption key was generated: %q", cfg.Security.EncryptionKey)
	}
}

func TestEnsureSecrets_PreservesProvidedValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Security: SecurityConfig{
			AccessTokenSecret: "keep-existing-access-secret",
			EncryptionKey:     "keep-existing-encryption-key",
		},
	}

	if err := cfg.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() error = %v", err)
	}

	if got := cfg.Security.AccessTokenSecret; got != "keep-existing-access-secret" {
		t.Fatalf("access secret changed unexpectedly: %q", got)
	}
	if got := cfg.Security.EncryptionKey; got != "keep-existing-encryption-key" {
		t.Fatalf("encryption key changed unexpectedly: %q", got)
	}
	if cfg.Security.RefreshTokenSecret == "" {
		t.Fatal("refresh secret should be auto-generated")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"short access secret", func(c *Config) { c.Security.AccessTokenSecret = "short" }, true},
		{"short refresh secret", func(c *Config) { c.Security.RefreshTokenSecret = "short" }, true},
		{"shared secret", func(c *Config) { c.Security.RefreshTokenSecret = c.Security.AccessTokenSecret }, true},
		{"zero ttl", func(c *Config) { c.Security.AccessTokenTTL = 0 }, true},
		{"local without encryption key", func(c *Config) { c.Security.EncryptionKey = "" }, true},
		{"local with short encryption key", func(c *Config) { c.Security.EncryptionKey = "short" }, true},
		{"kms without encryption key", func(c *Config) {
			c.Credentials.Cipher = CipherKMS
			c.Credentials.KMSKeyID = "alias/keyport"
			c.Security.EncryptionKey = ""
		}, false},
		{"kms without key", func(c *Config) { c.Credentials.Cipher = CipherKMS }, true},
		{"kms with key", func(c *Config) {
			c.Credentials.Cipher = CipherKMS
			c.Credentials.KMSKeyID = "alias/keyport"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
