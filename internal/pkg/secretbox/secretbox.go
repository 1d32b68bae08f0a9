// Package secretbox seals credential values before they reach the database.
package secretbox

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrCorrupted means a sealed value could not be decoded or authenticated.
var ErrCorrupted = errors.New("sealed value is corrupted")

// Cipher seals and opens string values. Sealed output is ASCII-safe.
//
// aad is authenticated but not encrypted. Open succeeds only with the aad
// the value was sealed under, so a ciphertext copied to another row fails
// with ErrCorrupted.
type Cipher interface {
	Seal(ctx context.Context, plaintext, aad string) (string, error)
	Open(ctx context.Context, sealed, aad string) (string, error)
}

// AESGCM is a local AES-256-GCM Cipher. Output is base64(nonce || ciphertext).
type AESGCM struct {
	aead cipher.AEAD
}

var _ Cipher = (*AESGCM)(nil)

// NewAESGCM derives a 256-bit key from secret.
func NewAESGCM(secret string) (*AESGCM, error) {
	if len(secret) < 32 {
		return nil, errors.New("encryption key must be at least 32 characters")
	}
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &AESGCM{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (c *AESGCM) Seal(_ context.Context, plaintext, aad string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (c *AESGCM) Open(_ context.Context, sealed, aad string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrCorrupted)
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, []byte(aad))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return string(plaintext), nil
}
