package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/api/openapi"
	"keyport.io/keyport/internal/domain"
	"keyport.io/keyport/internal/usecase"
)

// GetCurrentUser handles GET /users/me.
func (s *Server) GetCurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListMyPlatforms handles GET /users/me/platforms.
func (s *Server) ListMyPlatforms(c *gin.Context, params openapi.ListMyPlatformsParams) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	s.listPlatformsForUser(c, user.ID, params)
}

// ListUserPlatforms handles GET /users/{user_id}/platforms.
func (s *Server) ListUserPlatforms(c *gin.Context, userId int64, params openapi.ListUserPlatformsParams) {
	if _, ok := requireSelfOrAdmin(c, userId); !ok {
		return
	}
	s.listPlatformsForUser(c, userId, params)
}

func (s *Server) listPlatformsForUser(c *gin.Context, userID int64, params openapi.ListPlatformsParams) {
	filter, err := platformListParams(params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	platforms, err := s.catalog.ListPlatformsForUser(c.Request.Context(), userID, filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, nonNil(platforms))
}

// ListMyIntegrations handles GET /users/me/integrations.
func (s *Server) ListMyIntegrations(c *gin.Context, params openapi.ListMyIntegrationsParams) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, err := parseOrderBy(params.OrderBy, domain.IntegrationSortFields)
	if err != nil {
		_ = c.Error(err)
		return
	}

	integrations, err := s.catalog.ListIntegrations(c.Request.Context(), user.ID, domain.IntegrationListParams{
		IsActive:   params.IsActive,
		PlatformID: params.PlatformId,
		OrderBy:    order,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, nonNil(integrations))
}

// CreateMyIntegration handles POST /users/me/integrations. It creates the
// caller's integration with the platform or reuses the existing one, then
// appends the submitted credentials.
func (s *Server) CreateMyIntegration(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req openapi.CreateIntegrationRequest
	if !bindJSON(c, &req) {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	pairs := make([]domain.CredentialPair, 0, len(req.Credentials))
	for _, p := range req.Credentials {
		pairs = append(pairs, domain.CredentialPair{Key: p.Key, Value: p.Value})
	}

	result, err := s.integrations.Integrate(c.Request.Context(), usecase.IntegrateInput{
		UserID:      user.ID,
		PlatformID:  req.PlatformId,
		IsActive:    active,
		Credentials: pairs,
		Actor:       user.Username,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toIntegrationResult(result))
}

// UpdateMyIntegration handles PATCH /users/me/integrations/{integration_id}.
func (s *Server) UpdateMyIntegration(c *gin.Context, integrationId int64) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req openapi.UpdateIntegrationRequest
	if !bindJSON(c, &req) {
		return
	}

	integration, err := s.integrations.SetIntegrationActive(c.Request.Context(), user.Username, user.ID, integrationId, req.IsActive)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, integration)
}

// AddMyCredential handles POST /users/me/credentials. The caller must already
// be integrated with the platform.
func (s *Server) AddMyCredential(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req openapi.AddCredentialRequest
	if !bindJSON(c, &req) {
		return
	}

	cred, err := s.integrations.AddCredential(c.Request.Context(), usecase.AddCredentialInput{
		UserID:     user.ID,
		PlatformID: req.PlatformId,
		Key:        req.Key,
		Value:      req.Value,
		Actor:      user.Username,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cred)
}
