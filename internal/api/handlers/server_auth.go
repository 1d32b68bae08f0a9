package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/api/openapi"
	apperrors "keyport.io/keyport/internal/pkg/errors"
)

// Register handles POST /auth/register. New accounts are never administrators.
func (s *Server) Register(c *gin.Context) {
	var req openapi.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := s.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Login handles POST /auth/login. The body is an OAuth2 password form.
func (s *Server) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if username == "" || password == "" {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "username and password are required"))
		return
	}

	pair, err := s.auth.Login(c.Request.Context(), username, password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// RefreshToken handles POST /auth/refresh.
func (s *Server) RefreshToken(c *gin.Context) {
	var req openapi.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, token)
}
