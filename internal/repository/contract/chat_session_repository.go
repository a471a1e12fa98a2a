package contract

import (
	"context"
	"time"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Update(ctx context.Context, session *entity.ChatSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// BumpMessageCount increments message_count in place and returns the new value.
	// Inside a transaction the row stays locked until commit.
	BumpMessageCount(ctx context.Context, id uuid.UUID, at time.Time) (int, error)
}
