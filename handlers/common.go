package handlers

import (
	"rentwheels/middleware"
	"rentwheels/services/identity"
	"rentwheels/utils"

	"github.com/gin-gonic/gin"
)

// callerOrAbort returns the authenticated identity or writes a 401.
func callerOrAbort(c *gin.Context) (*identity.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.RespondError(c, getLogger(c), utils.NewAuthError("unauthenticated", "User not authenticated"))
		return nil, false
	}
	return id, true
}

// bindJSON binds the body into v. An empty body is accepted when optional.
func bindJSON(c *gin.Context, v any, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		utils.RespondError(c, getLogger(c), utils.NewValidationError("invalid_body", err.Error()))
		return false
	}
	return true
}
