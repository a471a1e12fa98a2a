package contract

import (
	"context"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteByChatSessionId(ctx context.Context, chatSessionId uuid.UUID) error
}
