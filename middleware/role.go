package middleware

import (
	"rentwheels/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireRole lets the request through only when the authenticated caller has
// one of roles. It must run after AuthMiddleware.
func RequireRole(logger *zap.Logger, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			utils.RespondError(c, logger, utils.NewAuthError("unauthenticated", "User not authenticated"))
			return
		}
		if !allowed[id.Role] {
			utils.RespondError(c, logger, utils.NewForbiddenError("insufficient role for this operation"))
			return
		}
		c.Next()
	}
}
