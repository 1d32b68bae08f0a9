// Package usecase provides the multi-row write workflows.
//
// Each workflow runs its writes inside one repository transaction and
// publishes domain events only after commit.
package usecase

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
	"keyport.io/keyport/internal/service"
)

// MaxCredentialKeyLength bounds credential keys.
const MaxCredentialKeyLength = 128

// IntegrateInput is the input of the integration workflow.
type IntegrateInput struct {
	UserID     int64
	PlatformID int64
	// IsActive applies only when the integration is created.
	IsActive    bool
	Credentials []domain.CredentialPair
	Actor       string
}

// AddCredentialInput is the input of AddCredential.
type AddCredentialInput struct {
	UserID     int64
	PlatformID int64
	Key        string
	Value      string
	Actor      string
}

// IntegrationUseCase creates or reuses integrations and appends credentials.
type IntegrationUseCase struct {
	store  repository.Store
	vault  *service.CredentialVault
	events domain.Publisher
}

// NewIntegrationUseCase creates an IntegrationUseCase. events may be nil.
func NewIntegrationUseCase(store repository.Store, vault *service.CredentialVault, events domain.Publisher) *IntegrationUseCase {
	return &IntegrationUseCase{store: store, vault: vault, events: events}
}

// Integrate creates the (user, platform) integration or reuses the existing
// one, then appends one credential row per pair. Everything commits together
// or not at all.
func (uc *IntegrationUseCase) Integrate(ctx context.Context, in IntegrateInput) (*domain.IntegrationResult, error) {
	pairs, err := normalizePairs(in.Credentials)
	if err != nil {
		return nil, err
	}

	result := &domain.IntegrationResult{}
	txErr := uc.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := requireUserAndPlatform(ctx, q, in.UserID, in.PlatformID); err != nil {
			return err
		}

		integration, created, err := resolveIntegration(ctx, q, in.UserID, in.PlatformID, in.IsActive)
		if err != nil {
			return err
		}
		result.Integration = integration
		result.Created = created

		sealed, err := uc.sealAll(ctx, integration.ID, pairs)
		if err != nil {
			return err
		}

		result.Credentials = make([]domain.CredentialDetail, 0, len(pairs))
		for i, pair := range pairs {
			cred, err := q.CreateCredential(ctx, repository.CreateCredentialParams{
				IntegrationID: integration.ID,
				Key:           pair.Key,
				SealedValue:   sealed[i],
			})
			if err != nil {
				return fmt.Errorf("create credential %q: %w", pair.Key, err)
			}
			cred.Value = pair.Value
			result.Credentials = append(result.Credentials, cred)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	logger.Info("Integration resolved",
		zap.Int64("integration_id", result.Integration.ID),
		zap.Int64("user_id", in.UserID),
		zap.Int64("platform_id", in.PlatformID),
		zap.Bool("created", result.Created),
		zap.Int("credentials", len(result.Credentials)),
	)

	eventType := domain.EventIntegrationReused
	if result.Created {
		eventType = domain.EventIntegrationCreated
	}
	uc.publish(ctx, domain.NewEvent(eventType, "integration", result.Integration.ID, in.Actor, map[string]any{
		"user_id":     in.UserID,
		"platform_id": in.PlatformID,
		"is_active":   result.Integration.IsActive,
	}))
	for _, cred := range result.Credentials {
		uc.publishCredentialAdded(ctx, cred, in.Actor)
	}
	return result, nil
}

// AssignUser links a user to a platform without credentials.
func (uc *IntegrationUseCase) AssignUser(ctx context.Context, actor string, userID, platformID int64) (*domain.IntegrationResult, error) {
	return uc.Integrate(ctx, IntegrateInput{
		UserID:     userID,
		PlatformID: platformID,
		IsActive:   true,
		Actor:      actor,
	})
}

// AddCredential appends one credential to an existing integration. It never
// creates the integration.
func (uc *IntegrationUseCase) AddCredential(ctx context.Context, in AddCredentialInput) (*domain.CredentialDetail, error) {
	pairs, err := normalizePairs([]domain.CredentialPair{{Key: in.Key, Value: in.Value}})
	if err != nil {
		return nil, err
	}

	var cred domain.CredentialDetail
	txErr := uc.store.ExecTx(ctx, func(q repository.Querier) error {
		integration, err := q.GetIntegration(ctx, in.UserID, in.PlatformID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrIntegrationNotFoundf(in.UserID, in.PlatformID)
		}
		if err != nil {
			return fmt.Errorf("get integration: %w", err)
		}

		sealed, err := uc.vault.Seal(ctx, integration.ID, pairs[0].Key, pairs[0].Value)
		if err != nil {
			return err
		}

		cred, err = q.CreateCredential(ctx, repository.CreateCredentialParams{
			IntegrationID: integration.ID,
			Key:           pairs[0].Key,
			SealedValue:   sealed,
		})
		if err != nil {
			return fmt.Errorf("create credential: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	cred.Value = pairs[0].Value
	logger.Info("Credential added",
		zap.Int64("credential_id", cred.ID),
		zap.Int64("integration_id", cred.IntegrationID),
		zap.String("key", cred.Key),
	)
	uc.publishCredentialAdded(ctx, cred, in.Actor)
	return &cred, nil
}

// SetIntegrationActive changes the active flag of one of the user's own
// integrations. Another user's integration reports NotFound.
func (uc *IntegrationUseCase) SetIntegrationActive(ctx context.Context, actor string, userID, integrationID int64, active bool) (*domain.Integration, error) {
	var (
		updated  domain.Integration
		previous bool
	)
	txErr := uc.store.ExecTx(ctx, func(q repository.Querier) error {
		current, err := q.GetIntegrationByID(ctx, integrationID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && current.UserID != userID) {
			return apperrors.NotFound(apperrors.CodeIntegrationNotFound, "integration does not exist").
				WithParams(map[string]interface{}{"integration_id": integrationID})
		}
		if err != nil {
			return fmt.Errorf("get integration %d: %w", integrationID, err)
		}
		previous = current.IsActive
		if previous == active {
			updated = current
			return nil
		}

		updated, err = q.SetIntegrationActive(ctx, integrationID, active)
		if err != nil {
			return fmt.Errorf("update integration %d: %w", integrationID, err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if previous != active {
		logger.Info("Integration status changed",
			zap.Int64("integration_id", integrationID),
			zap.Bool("is_active", active),
		)
		uc.publish(ctx, domain.NewEvent(domain.EventIntegrationStatusChanged, "integration", integrationID, actor,
			map[string]any{"is_active": active}))
	}
	return &updated, nil
}

// resolveIntegration inserts the pair or, when the unique constraint already
// holds a row, loads that row inside the same transaction.
func resolveIntegration(ctx context.Context, q repository.Querier, userID, platformID int64, active bool) (domain.Integration, bool, error) {
	integration, created, err := q.InsertIntegration(ctx, repository.InsertIntegrationParams{
		UserID:     userID,
		PlatformID: platformID,
		IsActive:   active,
	})
	if err != nil {
		return domain.Integration{}, false, fmt.Errorf("insert integration: %w", err)
	}
	if created {
		return integration, true, nil
	}

	integration, err = q.GetIntegration(ctx, userID, platformID)
	if err != nil {
		return domain.Integration{}, false, fmt.Errorf("load existing integration: %w", err)
	}
	return integration, false, nil
}

func requireUserAndPlatform(ctx context.Context, q repository.Querier, userID, platformID int64) error {
	if _, err := q.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrUserNotFoundf(userID)
		}
		return fmt.Errorf("get user %d: %w", userID, err)
	}
	if _, err := q.GetPlatform(ctx, platformID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrPlatformNotFoundf(platformID)
		}
		return fmt.Errorf("get platform %d: %w", platformID, err)
	}
	return nil
}

func normalizePairs(pairs []domain.CredentialPair) ([]domain.CredentialPair, error) {
	out := make([]domain.CredentialPair, len(pairs))
	for i, p := range pairs {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "credential key is required").
				WithParams(map[string]interface{}{"index": i})
		}
		if len(key) > MaxCredentialKeyLength {
			return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest,
				fmt.Sprintf("credential key must be at most %d characters", MaxCredentialKeyLength)).
				WithParams(map[string]interface{}{"index": i})
		}
		out[i] = domain.CredentialPair{Key: key, Value: p.Value}
	}
	return out, nil
}

func (uc *IntegrationUseCase) sealAll(ctx context.Context, integrationID int64, pairs []domain.CredentialPair) ([]string, error) {
	sealed := make([]string, len(pairs))
	for i, p := range pairs {
		s, err := uc.vault.Seal(ctx, integrationID, p.Key, p.Value)
		if err != nil {
			return nil, err
		}
		sealed[i] = s
	}
	return sealed, nil
}

func (uc *IntegrationUseCase) publishCredentialAdded(ctx context.Context, cred domain.CredentialDetail, actor string) {
	uc.publish(ctx, domain.NewEvent(domain.EventCredentialAdded, "credential", cred.ID, actor, map[string]any{
		"integration_id": cred.IntegrationID,
		"user_id":        cred.UserID,
		"platform_id":    cred.PlatformID,
		"key":            cred.Key,
	}))
}

func (uc *IntegrationUseCase) publish(ctx context.Context, event *domain.DomainEvent) {
	if uc.events == nil {
		return
	}
	_ = uc.events.Dispatch(ctx, event)
}
