package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prakasham-om/jbnet/internal/models"
	"github.com/prakasham-om/jbnet/internal/ports"
	"github.com/prakasham-om/jbnet/internal/repositories"
	"github.com/prakasham-om/jbnet/internal/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service ports.IChatService
	logger  *slog.Logger
}

func NewChatHandler(service ports.IChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// GetMessages returns the conversation between user1 and user2, oldest first.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	user1 := c.Query("user1")
	user2 := c.Query("user2")

	if user1 == "" || user2 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user parameters"})
		return
	}

	if !h.participantAllowed(c, user1, user2) {
		return
	}

	messages, err := h.service.GetHistory(c.Request.Context(), user1, user2)
	if err != nil {
		h.logger.Error("Failed to fetch messages", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}

	c.JSON(http.StatusOK, messages)
}

// CreateMessage persists one message and returns the saved record, plaintext
// included, with the server-assigned id and timestamp.
func (h *ChatHandler) CreateMessage(c *gin.Context) {
	var req struct {
		Sender   string `json:"sender"`
		Receiver string `json:"receiver"`
		Message  string `json:"message"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if !h.participantAllowed(c, req.Sender, req.Receiver) {
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), req.Sender, req.Receiver, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) || errors.Is(err, services.ErrSelfConversation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}
		h.logger.Error("Failed to save message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// DeleteMessage removes one record by id. Deleting twice yields 404, which
// clients treat as success.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	id := c.Param("id")

	err := h.service.DeleteMessage(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing message id"})
			return
		}
		h.logger.Error("Failed to delete message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// participantAllowed enforces that a verified identity, when present, only
// touches its own conversations. Without the identity middleware every caller
// passes, matching the original open REST surface.
func (h *ChatHandler) participantAllowed(c *gin.Context, userA, userB string) bool {
	email := c.GetString("email")
	if email == "" || email == userA || email == userB {
		return true
	}

	h.logger.Warn("identity is not a conversation participant", "email", email)
	c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	return false
}
