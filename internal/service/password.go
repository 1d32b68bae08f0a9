package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"keyport.io/keyport/internal/pkg/metrics"
	"keyport.io/keyport/internal/pkg/worker"
)

// DefaultPasswordHashCost matches bcrypt work factor 12.
const DefaultPasswordHashCost = 12

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned for passwords bcrypt would reject.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// PasswordHasher runs bcrypt on a bounded worker pool. A nil pool hashes
// on the calling goroutine.
type PasswordHasher struct {
	cost int
	pool *worker.Pool
}

// NewPasswordHasher creates a PasswordHasher. Out-of-range costs fall back
// to DefaultPasswordHashCost.
func NewPasswordHasher(cost int, pool *worker.Pool) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordHashCost
	}
	return &PasswordHasher{cost: cost, pool: pool}
}

// Hash returns the bcrypt hash of plaintext.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	var (
		hashed  []byte
		hashErr error
	)
	start := time.Now()
	err := h.pool.Do(ctx, func(context.Context) {
		hashed, hashErr = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	})
	metrics.ObservePasswordHash(time.Since(start))
	if err != nil {
		return "", fmt.Errorf("schedule password hash: %w", err)
	}
	if hashErr != nil {
		return "", fmt.Errorf("hash password: %w", hashErr)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. A malformed hash, a
// mismatch and a cancelled context all report false.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, hash string) bool {
	var match bool
	start := time.Now()
	err := h.pool.Do(ctx, func(context.Context) {
		match = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
	})
	metrics.ObservePasswordHash(time.Since(start))
	return err == nil && match
}
