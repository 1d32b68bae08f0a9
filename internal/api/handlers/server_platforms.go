package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/api/openapi"
)

// ListPlatforms handles GET /platforms.
func (s *Server) ListPlatforms(c *gin.Context, params openapi.ListPlatformsParams) {
	filter, err := platformListParams(params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	platforms, err := s.catalog.ListPlatforms(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, nonNil(platforms))
}

// GetPlatform handles GET /platforms/{platform_id}.
func (s *Server) GetPlatform(c *gin.Context, platformId int64) {
	platform, err := s.catalog.GetPlatform(c.Request.Context(), platformId)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, platform)
}
