package middleware

import (
	"github.com/gin-gonic/gin"
)

// RequireAdmin aborts with 403 unless the authenticated user is an admin,
// and with 401 when no user was resolved.
func RequireAdmin(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorize(c, gate) {
			return
		}
		c.Next()
	}
}

func authorize(c *gin.Context, gate Gate) bool {
	user, _ := CurrentUser(c)
	if err := gate.Authorize(user); err != nil {
		RenderError(c, err)
		return false
	}
	return true
}
