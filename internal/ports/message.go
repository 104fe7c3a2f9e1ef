package ports

import (
	"context"

	"github.com/prakasham-om/jbnet/internal/models"
)

type IMessageRepository interface {
	IMessageRepositoryReader
	IMessageRepositoryWriter
}

type IMessageRepositoryReader interface {
	GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error)
}

type IMessageRepositoryWriter interface {
	CreateMessage(ctx context.Context, sender, receiver, plaintext string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}
