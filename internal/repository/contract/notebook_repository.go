package contract

import (
	"context"
	"time"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/repository/specification"

	"github.com/google/uuid"
)

type NotebookRepository interface {
	Create(ctx context.Context, notebook *entity.Notebook) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Notebook, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notebook, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// UpdateEmbedding writes only the embedding columns; last write wins.
	UpdateEmbedding(ctx context.Context, id uuid.UUID, vector []float32, model string, embeddedAt time.Time) error
}
