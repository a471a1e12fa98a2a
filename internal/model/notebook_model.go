package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Notebook rows are owned by the notebook service; only the embedding
// columns are written from here.
type Notebook struct {
	Id             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Title          string           `gorm:"type:varchar(255);not null"`
	Content        string           `gorm:"type:text"`
	UserId         uuid.UUID        `gorm:"type:uuid;not null;index"`
	Embedding      *pgvector.Vector `gorm:"type:vector(768)"`
	EmbeddingModel string           `gorm:"type:varchar(128)"`
	EmbeddedAt     *time.Time
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Notebook) TableName() string {
	return "notebooks"
}

func (n *Notebook) BeforeCreate(tx *gorm.DB) error {
	if n.Id == uuid.Nil {
		n.Id = uuid.New()
	}
	return nil
}
