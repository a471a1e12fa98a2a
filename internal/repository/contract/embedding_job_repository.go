package contract

import (
	"context"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/repository/specification"

	"github.com/google/uuid"
)

type EmbeddingJobRepository interface {
	Create(ctx context.Context, job *entity.EmbeddingJob) error
	Update(ctx context.Context, job *entity.EmbeddingJob) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.EmbeddingJob, error)
	// RecordOutcome atomically bumps processed and either succeeded or failed.
	RecordOutcome(ctx context.Context, id uuid.UUID, succeeded bool, lastError string) error
}
