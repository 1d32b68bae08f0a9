package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("access-signing-key-1234567890123456789012"),
		RefreshSecret: []byte("refresh-signing-key-123456789012345678901"),
		Issuer:        "keyport-test",
	})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return svc
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	for _, kind := range []TokenKind{AccessToken, RefreshToken} {
		token, exp, err := svc.Issue(kind, "alice")
		if err != nil {
			t.Fatalf("Issue(%s) error = %v", kind, err)
		}
		if token == "" {
			t.Fatalf("Issue(%s) token is empty", kind)
		}
		if !exp.After(time.Now()) {
			t.Fatalf("Issue(%s) expiry %v is not in the future", kind, exp)
		}

		subject, err := svc.Verify(kind, token)
		if err != nil {
			t.Fatalf("Verify(%s) error = %v", kind, err)
		}
		if subject != "alice" {
			t.Fatalf("Verify(%s) subject = %q, want %q", kind, subject, "alice")
		}
	}
}

func TestTokenService_DefaultLifetimes(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, accessExp, err := svc.Issue(AccessToken, "alice")
	if err != nil {
		t.Fatalf("Issue(access) error = %v", err)
	}
	_, refreshExp, err := svc.Issue(RefreshToken, "alice")
	if err != nil {
		t.Fatalf("Issue(refresh) error = %v", err)
	}
	if got := accessExp.Sub(fixed); got != 30*time.Minute {
		t.Fatalf("access lifetime = %v, want 30m", got)
	}
	if got := refreshExp.Sub(fixed); got != 7*24*time.Hour {
		t.Fatalf("refresh lifetime = %v, want 168h", got)
	}
}

func TestTokenService_KindsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	access, _, err := svc.Issue(AccessToken, "alice")
	if err != nil {
		t.Fatalf("Issue(access) error = %v", err)
	}
	refresh, _, err := svc.Issue(RefreshToken, "alice")
	if err != nil {
		t.Fatalf("Issue(refresh) error = %v", err)
	}

	if _, err := svc.Verify(RefreshToken, access); err == nil {
		t.Fatal("Verify(refresh, access token) succeeded, want error")
	}
	if _, err := svc.Verify(AccessToken, refresh); err == nil {
		t.Fatal("Verify(access, refresh token) succeeded, want error")
	}
}

func TestTokenService_SameKeyStillChecksKind(t *testing.T) {
	t.Parallel()

	key := []byte("shared-signing-key-123456789012345678901234")
	svc, err := NewTokenService(TokenConfig{AccessSecret: key, RefreshSecret: key})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	refresh, _, err := svc.Issue(RefreshToken, "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := svc.Verify(AccessToken, refresh); !errors.Is(err, ErrTokenKindMismatch) {
		t.Fatalf("Verify() err = %v, want %v", err, ErrTokenKindMismatch)
	}
}

func TestTokenService_Expired(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	issuedAt := time.Now().UTC().Add(-time.Hour)
	svc.now = func() time.Time { return issuedAt }
	token, _, err := svc.Issue(AccessToken, "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	svc.now = func() time.Time { return time.Now().UTC() }
	if _, err := svc.Verify(AccessToken, token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("Verify() err = %v, want %v", err, jwt.ErrTokenExpired)
	}
}

func TestTokenService_RejectsTamperedAndForeignTokens(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	token, _, err := svc.Issue(AccessToken, "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	parts := strings.Split(token, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := svc.Verify(AccessToken, strings.Join(parts, ".")); err == nil {
		t.Fatal("Verify(tampered) succeeded, want error")
	}

	other, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("another-access-key-12345678901234567890123"),
		RefreshSecret: []byte("another-refresh-key-1234567890123456789012"),
		Issuer:        "keyport-test",
	})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	foreign, _, err := other.Issue(AccessToken, "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := svc.Verify(AccessToken, foreign); err == nil {
		t.Fatal("Verify(foreign) succeeded, want error")
	}

	if _, err := svc.Verify(AccessToken, "not-a-token"); err == nil {
		t.Fatal("Verify(garbage) succeeded, want error")
	}
}

func TestTokenService_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	claims := TokenClaims{
		Kind: AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "keyport-test",
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := svc.Verify(AccessToken, unsigned); err == nil {
		t.Fatal("Verify(alg=none) succeeded, want error")
	}
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	if _, _, err := svc.Issue(AccessToken, ""); !errors.Is(err, ErrTokenSubjectMissing) {
		t.Fatalf("Issue(\"\") err = %v, want %v", err, ErrTokenSubjectMissing)
	}
	if _, _, err := svc.Issue(TokenKind("session"), "alice"); !errors.Is(err, ErrUnknownTokenKind) {
		t.Fatalf("Issue(session) err = %v, want %v", err, ErrUnknownTokenKind)
	}
}

func TestNewTokenService_RequiresKeys(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenService(TokenConfig{AccessSecret: []byte("x")}); !errors.Is(err, ErrTokenSigningKeyMissing) {
		t.Fatalf("NewTokenService() err = %v, want %v", err, ErrTokenSigningKeyMissing)
	}
}
