package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenKind selects the key and lifetime used for a token.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

var (
	ErrTokenSigningKeyMissing = errors.New("token signing key is not configured")
	ErrTokenSubjectMissing    = errors.New("token subject is required")
	ErrTokenKindMismatch      = errors.New("token kind mismatch")
	ErrUnknownTokenKind       = errors.New("unknown token kind")
)

// TokenClaims is the signed payload. Subject carries the username.
type TokenClaims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService issues and verifies access and refresh tokens. The two kinds
// are signed with different keys, so one can never stand in for the other.
type TokenService struct {
	keys   map[TokenKind][]byte
	ttls   map[TokenKind]time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService creates a TokenService. Zero TTLs fall back to the defaults.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrTokenSigningKeyMissing
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenService{
		keys: map[TokenKind][]byte{
			AccessToken:  cfg.AccessSecret,
			RefreshToken: cfg.RefreshSecret,
		},
		ttls: map[TokenKind]time.Duration{
			AccessToken:  cfg.AccessTTL,
			RefreshToken: cfg.RefreshTTL,
		},
		issuer: cfg.Issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue signs a token of the given kind for subject.
func (s *TokenService) Issue(kind TokenKind, subject string) (string, time.Time, error) {
	key, ok := s.keys[kind]
	if !ok {
		return "", time.Time{}, ErrUnknownTokenKind
	}
	if subject == "" {
		return "", time.Time{}, ErrTokenSubjectMissing
	}

	now := s.now()
	expiresAt := now.Add(s.ttls[kind])
	jti, err := uuid.NewV7()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token id: %w", err)
	}

	claims := TokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti.String(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return token, expiresAt, nil
}

// Verify checks signature, algorithm, expiry, issuer and kind, and returns
// the subject. Expired tokens fail with an error matching jwt.ErrTokenExpired.
func (s *TokenService) Verify(kind TokenKind, token string) (string, error) {
	key, ok := s.keys[kind]
	if !ok {
		return "", ErrUnknownTokenKind
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, opts...)
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	if claims.Kind != kind {
		return "", ErrTokenKindMismatch
	}
	if claims.Subject == "" {
		return "", ErrTokenSubjectMissing
	}
	return claims.Subject, nil
}
