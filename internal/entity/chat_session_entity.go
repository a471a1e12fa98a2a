package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id                uuid.UUID
	UserId            uuid.UUID
	Title             string
	NotebookId        *uuid.UUID
	PersonaPreference string
	IsPinned          bool
	IsArchived        bool
	LastMessageAt     time.Time
	MessageCount      int
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	DeletedAt         *time.Time
	IsDeleted         bool
}
