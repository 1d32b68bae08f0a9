package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"keyport.io/keyport/internal/domain"
	apperrors "keyport.io/keyport/internal/pkg/errors"
	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/pkg/secretbox"
)

// CredentialVault seals credential values for storage and opens them for
// owners and administrators.
type CredentialVault struct {
	cipher secretbox.Cipher
}

// NewCredentialVault creates a CredentialVault.
func NewCredentialVault(cipher secretbox.Cipher) *CredentialVault {
	return &CredentialVault{cipher: cipher}
}

// Seal encrypts a credential value bound to its integration and key.
func (v *CredentialVault) Seal(ctx context.Context, integrationID int64, key, value string) (string, error) {
	sealed, err := v.cipher.Seal(ctx, value, credentialBinding(integrationID, key))
	if err != nil {
		return "", fmt.Errorf("seal credential value: %w", err)
	}
	return sealed, nil
}

// Reveal returns a copy of creds with Value opened. A value that fails
// authentication yields a DataCorruption error naming the row.
func (v *CredentialVault) Reveal(ctx context.Context, creds []domain.CredentialDetail) ([]domain.CredentialDetail, error) {
	out := make([]domain.CredentialDetail, len(creds))
	for i, c := range creds {
		plain, err := v.cipher.Open(ctx, c.SealedValue, credentialBinding(c.IntegrationID, c.Key))
		if err != nil {
			if errors.Is(err, secretbox.ErrCorrupted) {
				logger.Error("Stored credential cannot be decrypted",
					zap.Int64("credential_id", c.ID),
					zap.Int64("integration_id", c.IntegrationID),
					zap.Error(err),
				)
				return nil, apperrors.DataCorruption(apperrors.CodeCredentialCorrupted, "stored credential could not be read").
					WithParams(map[string]interface{}{"credential_id": c.ID})
			}
			return nil, fmt.Errorf("open credential %d: %w", c.ID, err)
		}
		c.Value = plain
		out[i] = c
	}
	return out, nil
}

// credentialBinding is the associated data of a credential value. The
// integration ID is all digits, so the key that follows cannot be confused
// with it.
func credentialBinding(integrationID int64, key string) string {
	return "integration:" + strconv.FormatInt(integrationID, 10) + "/key:" + key
}
