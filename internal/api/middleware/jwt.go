package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/domain"
	apperrors "keyport.io/keyport/internal/pkg/errors"
)

// Gate resolves bearer tokens to users and checks admin rights.
type Gate interface {
	Identify(ctx context.Context, accessToken string) (*domain.User, error)
	Authorize(user *domain.User) error
}

// JWTAuth resolves the bearer access token to a user and stores it on the
// context. Any failure is a 401.
func JWTAuth(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, gate) {
			return
		}
		c.Next()
	}
}

// AccessRules selects which paths skip authentication and which also need
// an administrator. Matching is by path prefix.
type AccessRules struct {
	PublicPrefixes []string
	AdminPrefixes  []string
}

// Guard applies JWTAuth and RequireAdmin by path so one middleware can sit
// in front of the whole API.
func Guard(gate Gate, rules AccessRules) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if hasAnyPrefix(path, rules.PublicPrefixes) {
			c.Next()
			return
		}
		if !authenticate(c, gate) {
			return
		}
		if hasAnyPrefix(path, rules.AdminPrefixes) && !authorize(c, gate) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, gate Gate) bool {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		RenderError(c, apperrors.Unauthorized(apperrors.CodeUnauthorized, "not authenticated"))
		return false
	}

	user, err := gate.Identify(c.Request.Context(), token)
	if err != nil {
		RenderError(c, err)
		return false
	}

	SetUser(c, user)
	return true
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
