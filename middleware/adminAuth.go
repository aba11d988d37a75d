package middleware

import (
	"rentwheels/services/identity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminOnly restricts a route group to admins.
func AdminOnly(logger *zap.Logger) gin.HandlerFunc {
	return RequireRole(logger, identity.RoleAdmin)
}
