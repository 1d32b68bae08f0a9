// Package handlers implements openapi.ServerInterface.
//
// Route registration is handled by openapi.RegisterHandlersWithOptions;
// handlers never register their own routes. Failures are pushed onto the gin
// context with c.Error and rendered by middleware.ErrorHandler.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/api/middleware"
	"keyport.io/keyport/internal/api/openapi"
	"keyport.io/keyport/internal/domain"
	apperrors "keyport.io/keyport/internal/pkg/errors"
	"keyport.io/keyport/internal/service"
	"keyport.io/keyport/internal/usecase"
)

// Compile-time check: Server must implement openapi.ServerInterface.
var _ openapi.ServerInterface = (*Server)(nil)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server implements all API handlers.
type Server struct {
	auth         *service.AuthService
	catalog      *service.CatalogService
	integrations *usecase.IntegrationUseCase
	db           Pinger
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Auth         *service.AuthService
	Catalog      *service.CatalogService
	Integrations *usecase.IntegrationUseCase
	// DB backs the readiness probe. Nil reports the database as unchecked.
	DB Pinger
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		auth:         deps.Auth,
		catalog:      deps.Catalog,
		integrations: deps.Integrations,
		db:           deps.DB,
	}
}

// currentUser returns the authenticated caller. When JWTAuth did not run it
// pushes a 401 and returns false.
func currentUser(c *gin.Context) (*domain.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required"))
		return nil, false
	}
	return user, true
}

// bindJSON decodes the request body, pushing a 400 on failure.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInvalidRequest, "request body is invalid", http.StatusBadRequest))
		return false
	}
	return true
}
