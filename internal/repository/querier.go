package repository

import (
	"context"
	"time"

	"keyport.io/keyport/internal/domain"
)

// Querier is every query the service runs.
type Querier interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (domain.User, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	ListUsers(ctx context.Context, arg domain.UserListParams) ([]domain.User, error)

	CreatePlatform(ctx context.Context, arg CreatePlatformParams) (domain.Platform, error)
	GetPlatform(ctx context.Context, id int64) (domain.Platform, error)
	GetPlatformByName(ctx context.Context, name string) (domain.Platform, error)
	ListPlatforms(ctx context.Context, arg domain.PlatformListParams) ([]domain.Platform, error)
	ListPlatformsForUser(ctx context.Context, userID int64, arg domain.PlatformListParams) ([]domain.Platform, error)

	// InsertIntegration returns created=false and a zero Integration when the
	// (user, platform) pair already exists.
	InsertIntegration(ctx context.Context, arg InsertIntegrationParams) (integration domain.Integration, created bool, err error)
	GetIntegration(ctx context.Context, userID, platformID int64) (domain.Integration, error)
	GetIntegrationByID(ctx context.Context, id int64) (domain.Integration, error)
	SetIntegrationActive(ctx context.Context, id int64, active bool) (domain.Integration, error)
	ListIntegrations(ctx context.Context, userID int64, arg domain.IntegrationListParams) ([]domain.Integration, error)

	// CreateCredential copies user_id and platform_id from the integration row.
	CreateCredential(ctx context.Context, arg CreateCredentialParams) (domain.CredentialDetail, error)
	ListCredentials(ctx context.Context, arg domain.CredentialListParams) ([]domain.CredentialDetail, error)
	ListCredentialsByIntegrations(ctx context.Context, integrationIDs []int64) ([]domain.CredentialDetail, error)

	InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error
	DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ Querier = (*Queries)(nil)

// CreateUserParams holds CreateUser input.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	IsAdmin      bool
}

// CreatePlatformParams holds CreatePlatform input.
type CreatePlatformParams struct {
	Name        string
	Description *string
}

// InsertIntegrationParams holds InsertIntegration input.
type InsertIntegrationParams struct {
	UserID     int64
	PlatformID int64
	IsActive   bool
}

// CreateCredentialParams holds CreateCredential input.
type CreateCredentialParams struct {
	IntegrationID int64
	Key           string
	SealedValue   string
}

// InsertAuditLogParams holds InsertAuditLog input.
type InsertAuditLogParams struct {
	Action       string
	ResourceType string
	ResourceID   string
	Actor        string
	Details      map[string]any
}
