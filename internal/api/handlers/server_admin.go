package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/api/openapi"
	"keyport.io/keyport/internal/domain"
	"keyport.io/keyport/internal/usecase"
)

// Every handler here sits behind middleware.RequireAdmin.

// AdminListUsers handles GET /admin/users.
func (s *Server) AdminListUsers(c *gin.Context, params openapi.AdminListUsersParams) {
	order, err := parseOrderBy(params.OrderBy, domain.UserSortFields)
	if err != nil {
		_ = c.Error(err)
		return
	}

	users, err := s.catalog.ListUsers(c.Request.Context(), domain.UserListParams{
		Username: params.Username,
		IsAdmin:  params.IsAdmin,
		OrderBy:  order,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, nonNil(users))
}

// AdminGetUser handles GET /admin/users/{user_id}.
func (s *Server) AdminGetUser(c *gin.Context, userId int64) {
	user, err := s.catalog.GetUser(c.Request.Context(), userId)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// AdminListCredentials handles
// GET /admin/users/{user_id}/platforms/{platform_id}/credentials.
func (s *Server) AdminListCredentials(c *gin.Context, userId int64, platformId int64, params openapi.AdminListCredentialsParams) {
	order, err := parseOrderBy(params.OrderBy, domain.CredentialSortFields)
	if err != nil {
		_ = c.Error(err)
		return
	}

	creds, err := s.catalog.ListCredentials(c.Request.Context(), domain.CredentialListParams{
		UserID:     userId,
		PlatformID: platformId,
		Key:        params.Key,
		OrderBy:    order,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, nonNil(creds))
}

// AdminCreatePlatform handles POST /admin/platforms.
func (s *Server) AdminCreatePlatform(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}

	var req openapi.CreatePlatformRequest
	if !bindJSON(c, &req) {
		return
	}

	platform, err := s.catalog.CreatePlatform(c.Request.Context(), admin, req.Name, req.Description)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, platform)
}

// AdminAssignUser handles POST /admin/integrations.
func (s *Server) AdminAssignUser(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}

	var req openapi.AssignUserRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.integrations.AssignUser(c.Request.Context(), admin.Username, req.UserId, req.PlatformId)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toIntegrationResult(result))
}

// AdminAddCredential handles POST /admin/credentials.
func (s *Server) AdminAddCredential(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}

	var req openapi.AdminAddCredentialRequest
	if !bindJSON(c, &req) {
		return
	}

	cred, err := s.integrations.AddCredential(c.Request.Context(), usecase.AddCredentialInput{
		UserID:     req.UserId,
		PlatformID: req.PlatformId,
		Key:        req.Key,
		Value:      req.Value,
		Actor:      admin.Username,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cred)
}
