package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSession struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserId            uuid.UUID      `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Title             string         `gorm:"type:text;not null"`
	NotebookId        *uuid.UUID     `gorm:"type:uuid;index"`
	PersonaPreference string         `gorm:"type:varchar(32)"`
	IsPinned          bool           `gorm:"not null;default:false"`
	IsArchived        bool           `gorm:"not null;default:false"`
	LastMessageAt     time.Time      `gorm:"not null;index"`
	MessageCount      int            `gorm:"not null;default:0"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.Id == uuid.Nil {
		s.Id = uuid.New()
	}
	return nil
}
