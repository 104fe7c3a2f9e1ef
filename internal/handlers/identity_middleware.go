package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/prakasham-om/jbnet/internal/ports"

	"github.com/gin-gonic/gin"
)

// IdentityMiddleware verifies the Bearer token minted by the external
// identity provider and stores the verified email in the request context.
// When required is false a missing token passes through, which matches the
// original open REST surface.
func IdentityMiddleware(identity ports.IIdentityService, required bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")

		if token == "" || token == header {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
			return
		}

		email, err := identity.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Warn("rejected request with invalid token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set("email", email)
		c.Next()
	}
}
