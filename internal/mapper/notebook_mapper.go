package mapper

import (
	"time"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type NotebookMapper struct{}

func NewNotebookMapper() *NotebookMapper {
	return &NotebookMapper{}
}

func (m *NotebookMapper) ToEntity(n *model.Notebook) *entity.Notebook {
	if n == nil {
		return nil
	}
	var deletedAt *time.Time
	if n.DeletedAt.Valid {
		t := n.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !n.UpdatedAt.IsZero() {
		t := n.UpdatedAt
		updatedAt = &t
	}

	var embedding []float32
	if n.Embedding != nil {
		embedding = n.Embedding.Slice()
	}

	return &entity.Notebook{
		Id:             n.Id,
		Title:          n.Title,
		Content:        n.Content,
		UserId:         n.UserId,
		Embedding:      embedding,
		EmbeddingModel: n.EmbeddingModel,
		EmbeddedAt:     n.EmbeddedAt,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      n.DeletedAt.Valid,
	}
}

func (m *NotebookMapper) ToModel(n *entity.Notebook) *model.Notebook {
	if n == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if n.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *n.DeletedAt, Valid: true}
	} else if n.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if n.UpdatedAt != nil {
		updatedAt = *n.UpdatedAt
	}

	var embedding *pgvector.Vector
	if len(n.Embedding) > 0 {
		v := pgvector.NewVector(n.Embedding)
		embedding = &v
	}

	return &model.Notebook{
		Id:             n.Id,
		Title:          n.Title,
		Content:        n.Content,
		UserId:         n.UserId,
		Embedding:      embedding,
		EmbeddingModel: n.EmbeddingModel,
		EmbeddedAt:     n.EmbeddedAt,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *NotebookMapper) ToEntities(notebooks []*model.Notebook) []*entity.Notebook {
	entities := make([]*entity.Notebook, len(notebooks))
	for i, n := range notebooks {
		entities[i] = m.ToEntity(n)
	}
	return entities
}
