// Package domain holds the entities shared by the repository, services and
// HTTP layer.
package domain

import "time"

// User is an account. PasswordHash never leaves the process.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Platform is a catalog entry for an external system users integrate with.
type Platform struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Integration links one user to one platform. There is at most one per pair.
type Integration struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	PlatformID int64     `json:"platform_id"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Credentials is populated only by detail listings.
	Credentials []CredentialDetail `json:"credentials,omitempty"`
}

// CredentialDetail is one key/value pair owned by an integration.
// UserID and PlatformID always mirror the owning integration.
type CredentialDetail struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	PlatformID    int64     `json:"platform_id"`
	IntegrationID int64     `json:"integration_id"`
	Key           string    `json:"key"`
	Value         string    `json:"value"`
	CreatedAt     time.Time `json:"created_at"`

	// SealedValue is the stored ciphertext; Value is filled only after opening it.
	SealedValue string `json:"-"`
}

// CredentialPair is client input for a credential row.
type CredentialPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// IntegrationResult is returned by the integration workflow.
type IntegrationResult struct {
	Integration Integration
	// Created is false when an existing integration was reused.
	Created     bool
	Credentials []CredentialDetail
}

// AuditLog is one row of the append-only audit trail.
type AuditLog struct {
	ID           int64          `json:"id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Actor        string         `json:"actor"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
