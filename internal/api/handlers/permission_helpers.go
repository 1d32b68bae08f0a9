package handlers

import (
	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/domain"
	apperrors "keyport.io/keyport/internal/pkg/errors"
)

// requireSelfOrAdmin lets a caller read data about their own account, and
// administrators read anyone's. Fail-closed:
//   - unauthenticated => 401
//   - another user's data without admin => 403
func requireSelfOrAdmin(c *gin.Context, userID int64) (*domain.User, bool) {
	caller, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	if caller.ID == userID || caller.IsAdmin {
		return caller, true
	}
	_ = c.Error(apperrors.ErrAdminRequired())
	return nil, false
}
