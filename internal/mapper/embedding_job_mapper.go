package mapper

import (
	"time"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/model"
)

type EmbeddingJobMapper struct{}

func NewEmbeddingJobMapper() *EmbeddingJobMapper {
	return &EmbeddingJobMapper{}
}

func (m *EmbeddingJobMapper) ToEntity(j *model.EmbeddingJob) *entity.EmbeddingJob {
	if j == nil {
		return nil
	}

	var updatedAt *time.Time
	if !j.UpdatedAt.IsZero() {
		t := j.UpdatedAt
		updatedAt = &t
	}

	return &entity.EmbeddingJob{
		Id:         j.Id,
		Kind:       entity.EmbeddingJobKind(j.Kind),
		NotebookId: j.NotebookId,
		UserId:     j.UserId,
		Status:     entity.EmbeddingJobStatus(j.Status),
		Processed:  j.Processed,
		Succeeded:  j.Succeeded,
		Failed:     j.Failed,
		LastError:  j.LastError,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *EmbeddingJobMapper) ToModel(j *entity.EmbeddingJob) *model.EmbeddingJob {
	if j == nil {
		return nil
	}

	var updatedAt time.Time
	if j.UpdatedAt != nil {
		updatedAt = *j.UpdatedAt
	}

	return &model.EmbeddingJob{
		Id:         j.Id,
		Kind:       string(j.Kind),
		NotebookId: j.NotebookId,
		UserId:     j.UserId,
		Status:     string(j.Status),
		Processed:  j.Processed,
		Succeeded:  j.Succeeded,
		Failed:     j.Failed,
		LastError:  j.LastError,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}
