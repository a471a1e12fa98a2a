package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleSystem    = "system"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Sequence      int
	Role          string
	Content       string
	Metadata      *ChatMessageMetadata
	TokenCount    int
	CreatedAt     time.Time
}

// ChatMessageMetadata is stored as JSON alongside assistant replies.
type ChatMessageMetadata struct {
	Model        string      `json:"model,omitempty"`
	RetrievedIds []uuid.UUID `json:"retrieved_ids,omitempty"`
	Persona      string      `json:"persona,omitempty"`
	TimingMs     int64       `json:"timing_ms,omitempty"`
	Fallback     bool        `json:"fallback,omitempty"`
}
