package middleware

import (
	"strings"

	"rentwheels/services/identity"
	"rentwheels/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware.
const (
	IdentityKey = "identity"
	UserIDKey   = "userID"
)

// AuthMiddleware verifies the bearer token and stores the caller's identity
// in the gin context.
func AuthMiddleware(verifier identity.Verifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, logger, utils.NewAuthError("missing_token", "Missing or invalid Authorization header"))
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			utils.RespondError(c, logger, utils.NewAuthError("missing_token", "Missing or invalid Authorization header"))
			return
		}

		id, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			utils.RespondError(c, logger, err)
			return
		}

		c.Set(IdentityKey, id)
		c.Set(UserIDKey, id.UID)
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (*identity.Identity, bool) {
	raw, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	id, ok := raw.(*identity.Identity)
	return id, ok && id != nil
}
