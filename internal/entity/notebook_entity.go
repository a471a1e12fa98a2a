package entity

import (
	"time"

	"github.com/google/uuid"
)

type Notebook struct {
	Id             uuid.UUID
	Title          string
	Content        string
	UserId         uuid.UUID
	Embedding      []float32 // nil when never embedded
	EmbeddingModel string
	EmbeddedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

// LastModified is the recency key used for ranking ties.
func (n *Notebook) LastModified() time.Time {
	if n.UpdatedAt != nil {
		return *n.UpdatedAt
	}
	return n.CreatedAt
}
