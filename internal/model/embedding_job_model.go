package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmbeddingJob struct {
	Id         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Kind       string     `gorm:"type:varchar(16);not null"`
	NotebookId *uuid.UUID `gorm:"type:uuid;index"`
	UserId     *uuid.UUID `gorm:"type:uuid;index"`
	Status     string     `gorm:"type:varchar(16);not null;index"`
	Processed  int        `gorm:"not null;default:0"`
	Succeeded  int        `gorm:"not null;default:0"`
	Failed     int        `gorm:"not null;default:0"`
	LastError  string     `gorm:"type:text"`
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (EmbeddingJob) TableName() string {
	return "embedding_jobs"
}

func (j *EmbeddingJob) BeforeCreate(tx *gorm.DB) error {
	if j.Id == uuid.Nil {
		j.Id = uuid.New()
	}
	return nil
}
