// Package service holds identity, token and catalog services.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"keyport.io/keyport/internal/domain"
	apperrors "keyport.io/keyport/internal/pkg/errors"
	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/repository"
)

// MaxUsernameLength bounds registered usernames.
const MaxUsernameLength = 64

// TokenTypeBearer is the token_type returned with every token.
const TokenTypeBearer = "Bearer"

// dummyHash is verified when a login names an unknown user so both failure
// paths cost one bcrypt comparison.
const dummyHash = "$2a$12$C6UzMDM.H6dfI/f/IKcEeO5Rj3qKY8Ezy5bQJdE0O3cR1LRv7Ssa6"

// UserStore is the storage the AuthService needs.
type UserStore interface {
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AccessTokenResult is returned by a refresh.
type AccessTokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService registers users, issues tokens and resolves bearer tokens to
// users. Every error it returns is an *apperrors.AppError or a storage error.
type AuthService struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenService
	events domain.Publisher
}

// NewAuthService creates an AuthService. events may be nil.
func NewAuthService(users UserStore, hasher *PasswordHasher, tokens *TokenService, events domain.Publisher) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, events: events}
}

// Register creates a non-admin user.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "username and password are required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, fmt.Sprintf("username must be at most %d characters", MaxUsernameLength))
	}
	if len(password) > MaxPasswordBytes {
		return nil, apperrors.BadRequest(apperrors.CodePasswordTooLong, "password must be at most 72 bytes")
	}

	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, apperrors.ErrUsernameTaken()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up username: %w", err)
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, repository.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		// Lost a race with a concurrent registration of the same name.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrUsernameTaken()
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	s.publish(ctx, domain.NewEvent(domain.EventUserRegistered, "user", user.ID, user.Username, nil))
	return &user, nil
}

// Login verifies credentials and issues an access and a refresh token.
// Unknown usernames and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.hasher.Verify(ctx, password, dummyHash)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.loginFailed(ctx, username, "unknown_user")
		return nil, apperrors.ErrInvalidCredentials()
	case err != nil:
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.loginFailed(ctx, username, "bad_password")
		return nil, apperrors.ErrInvalidCredentials()
	}

	access, accessExp, err := s.tokens.Issue(AccessToken, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.tokens.Issue(RefreshToken, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	logger.Info("User logged in", zap.Int64("user_id", user.ID))
	s.publish(ctx, domain.NewEvent(domain.EventUserLoggedIn, "user", user.ID, user.Username, nil))

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        TokenTypeBearer,
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AccessTokenResult, error) {
	user, err := s.resolve(ctx, RefreshToken, refreshToken)
	if err != nil {
		return nil, err
	}

	access, exp, err := s.tokens.Issue(AccessToken, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.publish(ctx, domain.NewEvent(domain.EventTokenRefreshed, "user", user.ID, user.Username, nil))
	return &AccessTokenResult{AccessToken: access, TokenType: TokenTypeBearer, ExpiresAt: exp}, nil
}

// Identify resolves an access token to its user.
func (s *AuthService) Identify(ctx context.Context, accessToken string) (*domain.User, error) {
	return s.resolve(ctx, AccessToken, accessToken)
}

// Authorize fails with Forbidden unless user is an administrator.
func (s *AuthService) Authorize(user *domain.User) error {
	if user == nil {
		return apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required")
	}
	if !user.IsAdmin {
		return apperrors.ErrAdminRequired()
	}
	return nil
}

func (s *AuthService) resolve(ctx context.Context, kind TokenKind, token string) (*domain.User, error) {
	subject, err := s.tokens.Verify(kind, token)
	if err != nil {
		logger.Debug("Token rejected", zap.String("kind", string(kind)), zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Unauthorized(apperrors.CodeTokenExpired, "token has expired")
		}
		return nil, apperrors.Unauthorized(apperrors.CodeTokenInvalid, "could not validate credentials")
	}

	user, err := s.users.GetUserByUsername(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized(apperrors.CodeTokenInvalid, "could not validate credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("look up token subject: %w", err)
	}
	return &user, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username, reason string) {
	logger.Info("Login failed", zap.String("username", username), zap.String("reason", reason))
	s.publish(ctx, domain.NewEvent(domain.EventLoginFailed, "user", 0, username, map[string]any{"reason": reason}))
}

func (s *AuthService) publish(ctx context.Context, event *domain.DomainEvent) {
	if s.events == nil {
		return
	}
	_ = s.events.Dispatch(ctx, event)
}
