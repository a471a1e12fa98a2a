package implementation

import (
	"context"
	"errors"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/mapper"
	"ai-notebook-companion/internal/model"
	"ai-notebook-companion/internal/repository/contract"
	"ai-notebook-companion/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmbeddingJobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EmbeddingJobMapper
}

func NewEmbeddingJobRepository(db *gorm.DB) contract.EmbeddingJobRepository {
	return &EmbeddingJobRepositoryImpl{
		db:     db,
		mapper: mapper.NewEmbeddingJobMapper(),
	}
}

func (r *EmbeddingJobRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *EmbeddingJobRepositoryImpl) Create(ctx context.Context, job *entity.EmbeddingJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

// Update persists status, timestamps and last error. Counters are owned by
// RecordOutcome and left untouched.
func (r *EmbeddingJobRepositoryImpl) Update(ctx context.Context, job *entity.EmbeddingJob) error {
	res := r.db.WithContext(ctx).
		Model(&model.EmbeddingJob{}).
		Where("id = ?", job.Id).
		Updates(map[string]interface{}{
			"status":      string(job.Status),
			"started_at":  job.StartedAt,
			"finished_at": job.FinishedAt,
			"last_error":  job.LastError,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *EmbeddingJobRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.EmbeddingJob, error) {
	var m model.EmbeddingJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *EmbeddingJobRepositoryImpl) RecordOutcome(ctx context.Context, id uuid.UUID, succeeded bool, lastError string) error {
	updates := map[string]interface{}{
		"processed": gorm.Expr("processed + 1"),
	}
	if succeeded {
		updates["succeeded"] = gorm.Expr("succeeded + 1")
	} else {
		updates["failed"] = gorm.Expr("failed + 1")
		updates["last_error"] = lastError
	}
	return r.db.WithContext(ctx).Model(&model.EmbeddingJob{}).Where("id = ?", id).Updates(updates).Error
}
