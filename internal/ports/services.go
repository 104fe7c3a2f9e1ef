package ports

import (
	"context"

	"github.com/prakasham-om/jbnet/internal/models"
)

type IChatService interface {
	SendMessage(ctx context.Context, sender, receiver, message string) (*models.Message, error)
	GetHistory(ctx context.Context, userA, userB string) ([]models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

type IIdentityService interface {
	ValidateToken(ctx context.Context, token string) (string, error)
	RevokeToken(ctx context.Context, token string) error
}
