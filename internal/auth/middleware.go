package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextUserIDKey is the gin context key under which the verified caller
// identity is stored.
const ContextUserIDKey = "user_id"

// Middleware verifies the bearer token on every request and stores the
// caller identity in the request context. Requests without a valid token are
// rejected with the "unauthenticated" wire code before any handler runs.
func Middleware(verifier *TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthenticated",
				"message": "User must be authenticated",
			})
			return
		}

		userID, err := verifier.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Warn("token verification failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthenticated",
				"message": "User must be authenticated",
			})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}
