package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/api/openapi"
)

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, openapi.Health{
		Status: openapi.HealthStatusOk,
	})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	switch {
	case s.db == nil:
		checks["database"] = "unchecked"
	case s.db.Ping(c.Request.Context()) != nil:
		checks["database"] = "error"
		allHealthy = false
	default:
		checks["database"] = "ok"
	}

	status := openapi.HealthStatusOk
	httpStatus := http.StatusOK
	if !allHealthy {
		status = openapi.HealthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, openapi.Health{
		Status: status,
		Checks: checks,
	})
}
