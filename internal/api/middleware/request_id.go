package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"keyport.io/keyport/internal/domain"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
	ctxKeyUser      contextKey = "user"
)

// RequestID injects a unique request ID into the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ctxKeyRequestID, rid),
		)
		c.Next()
	}
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// SetUser stores the authenticated user on the Gin and request contexts.
func SetUser(c *gin.Context, user *domain.User) {
	c.Set(string(ctxKeyUser), user)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKeyUser, user))
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(string(ctxKeyUser))
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

// UserFromContext returns the authenticated user stored by SetUser.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(ctxKeyUser).(*domain.User)
	return user
}
