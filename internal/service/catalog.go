package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"keyport.io/keyport/internal/domain"
	apperrors "keyport.io/keyport/internal/pkg/errors"
	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/repository"
)

// MaxPlatformNameLength bounds platform names.
const MaxPlatformNameLength = 128

// CatalogService serves lookups over users, platforms, integrations and
// credentials, and platform creation.
type CatalogService struct {
	store  repository.Querier
	vault  *CredentialVault
	events domain.Publisher
}

// NewCatalogService creates a CatalogService. events may be nil.
func NewCatalogService(store repository.Querier, vault *CredentialVault, events domain.Publisher) *CatalogService {
	return &CatalogService{store: store, vault: vault, events: events}
}

// ListUsers lists users matching params.
func (s *CatalogService) ListUsers(ctx context.Context, params domain.UserListParams) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns one user.
func (s *CatalogService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrUserNotFoundf(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// ListPlatforms lists the catalog.
func (s *CatalogService) ListPlatforms(ctx context.Context, params domain.PlatformListParams) ([]domain.Platform, error) {
	platforms, err := s.store.ListPlatforms(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	return platforms, nil
}

// GetPlatform returns one platform.
func (s *CatalogService) GetPlatform(ctx context.Context, id int64) (*domain.Platform, error) {
	platform, err := s.store.GetPlatform(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrPlatformNotFoundf(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get platform %d: %w", id, err)
	}
	return &platform, nil
}

// CreatePlatform adds a catalog entry. Authorization is the caller's job.
func (s *CatalogService) CreatePlatform(ctx context.Context, actor *domain.User, name string, description *string) (*domain.Platform, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.BadRequest(apperrors.CodeNameRequired, "platform name is required")
	}
	if len(name) > MaxPlatformNameLength {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, fmt.Sprintf("platform name must be at most %d characters", MaxPlatformNameLength))
	}
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		description = &trimmed
	}

	platform, err := s.store.CreatePlatform(ctx, repository.CreatePlatformParams{Name: name, Description: description})
	if err != nil {
		return nil, fmt.Errorf("create platform: %w", err)
	}

	logger.Info("Platform created", zap.Int64("platform_id", platform.ID), zap.String("name", platform.Name))
	if s.events != nil {
		_ = s.events.Dispatch(ctx, domain.NewEvent(domain.EventPlatformCreated, "platform", platform.ID, actor.Username,
			map[string]any{"name": platform.Name}))
	}
	return &platform, nil
}

// ListPlatformsForUser lists platforms the user has an integration with.
func (s *CatalogService) ListPlatformsForUser(ctx context.Context, userID int64, params domain.PlatformListParams) ([]domain.Platform, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	platforms, err := s.store.ListPlatformsForUser(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("list platforms for user %d: %w", userID, err)
	}
	return platforms, nil
}

// ListIntegrations lists a user's integrations with their opened credentials.
func (s *CatalogService) ListIntegrations(ctx context.Context, userID int64, params domain.IntegrationListParams) ([]domain.Integration, error) {
	integrations, err := s.store.ListIntegrations(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	if len(integrations) == 0 {
		return integrations, nil
	}

	ids := make([]int64, len(integrations))
	for i, in := range integrations {
		ids[i] = in.ID
	}
	sealed, err := s.store.ListCredentialsByIntegrations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list integration credentials: %w", err)
	}
	creds, err := s.vault.Reveal(ctx, sealed)
	if err != nil {
		return nil, err
	}

	byIntegration := make(map[int64][]domain.CredentialDetail, len(integrations))
	for _, c := range creds {
		byIntegration[c.IntegrationID] = append(byIntegration[c.IntegrationID], c)
	}
	for i := range integrations {
		integrations[i].Credentials = byIntegration[integrations[i].ID]
	}
	return integrations, nil
}

// ListCredentials lists a user's credentials on one platform, opened.
func (s *CatalogService) ListCredentials(ctx context.Context, params domain.CredentialListParams) ([]domain.CredentialDetail, error) {
	if _, err := s.GetUser(ctx, params.UserID); err != nil {
		return nil, err
	}
	if _, err := s.GetPlatform(ctx, params.PlatformID); err != nil {
		return nil, err
	}
	sealed, err := s.store.ListCredentials(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return s.vault.Reveal(ctx, sealed)
}
