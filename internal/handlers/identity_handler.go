package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/prakasham-om/jbnet/internal/ports"

	"github.com/gin-gonic/gin"
)

// IdentityHandler covers the session-token lifecycle the relay owns: the
// external identity provider mints tokens, this endpoint retires them.
type IdentityHandler struct {
	service ports.IIdentityService
	logger  *slog.Logger
}

func NewIdentityHandler(service ports.IIdentityService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{service: service, logger: logger}
}

// RevokeToken blacklists the presented Bearer token for the rest of its
// lifetime. Revoking is idempotent; presenting garbage is not.
func (h *IdentityHandler) RevokeToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")

	if token == "" || token == header {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.service.RevokeToken(c.Request.Context(), token); err != nil {
		h.logger.Warn("token revocation failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
