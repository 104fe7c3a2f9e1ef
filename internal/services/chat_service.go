package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prakasham-om/jbnet/internal/models"
	"github.com/prakasham-om/jbnet/internal/ports"
)

// ChatService orchestrates the message store for both the REST layer and the
// websocket relay. It holds no message state itself; the repository is the
// single source of truth.
type ChatService struct {
	messageRepo ports.IMessageRepository
	logger      *slog.Logger
}

func NewChatService(messageRepo ports.IMessageRepository, logger *slog.Logger) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// SendMessage validates and persists one message. The returned record carries
// the server-assigned id and timestamp; live fan-out is the relay's job.
func (s *ChatService) SendMessage(ctx context.Context, sender, receiver, message string) (*models.Message, error) {
	if sender == "" || receiver == "" || message == "" {
		return nil, ErrInvalidInput
	}

	if sender == receiver {
		s.logger.Warn("rejected self-addressed message", "sender", sender)
		return nil, ErrSelfConversation
	}

	msg, err := s.messageRepo.CreateMessage(ctx, sender, receiver, message)
	if err != nil {
		s.logger.Error("failed to persist message", "sender", sender, "receiver", receiver, "error", err)
		return nil, err
	}

	s.logger.Info("message persisted", "id", msg.ID, "sender", sender, "receiver", receiver)
	return msg, nil
}

// GetHistory returns the conversation between the unordered pair {userA,
// userB} in timestamp order.
func (s *ChatService) GetHistory(ctx context.Context, userA, userB string) ([]models.Message, error) {
	if userA == "" || userB == "" {
		return nil, ErrInvalidInput
	}

	messages, err := s.messageRepo.GetConversation(ctx, userA, userB)
	if err != nil {
		s.logger.Error("failed to fetch conversation", "userA", userA, "userB", userB, "error", err)
		return nil, err
	}

	s.logger.Debug("retrieved conversation", "userA", userA, "userB", userB, "messageCount", len(messages))
	return messages, nil
}

// DeleteMessage removes one record permanently. A missing id surfaces the
// repository's not-found error; callers treat it as an idempotent miss.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID string) error {
	if messageID == "" {
		return ErrInvalidInput
	}

	if err := s.messageRepo.DeleteMessage(ctx, messageID); err != nil {
		s.logger.Warn("failed to delete message", "id", messageID, "error", err)
		return err
	}

	s.logger.Info("message deleted", "id", messageID)
	return nil
}

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSelfConversation = errors.New("sender and receiver must differ")
)
