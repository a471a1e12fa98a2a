package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title             string     `json:"title" validate:"max=200"`
	NotebookId        *uuid.UUID `json:"notebook_id"`
	PersonaPreference string     `json:"persona_preference" validate:"omitempty,max=32"`
}

type ListSessionsRequest struct {
	Page            int    `query:"page"`
	Limit           int    `query:"limit"`
	IncludeArchived bool   `query:"include_archived"`
	SortBy          string `query:"sort_by" validate:"omitempty,oneof=lastMessageAt createdAt title"`
	SortDirection   string `query:"sort_direction" validate:"omitempty,oneof=asc desc"`
}

type UpdateSessionRequest struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=200"`
	IsPinned   *bool   `json:"is_pinned"`
	IsArchived *bool   `json:"is_archived"`
}

type ListMessagesRequest struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

// AddMessageRequest posts a user turn to an existing session.
type AddMessageRequest struct {
	Content  string     `json:"content" validate:"required,max=4000"`
	DateFrom *time.Time `json:"date_from"`
	DateTo   *time.Time `json:"date_to"`
}

// SendChatRequest creates the session on the first turn when ChatSessionId is empty.
type SendChatRequest struct {
	ChatSessionId     *uuid.UUID `json:"chat_session_id"`
	Content           string     `json:"content" validate:"required,max=4000"`
	NotebookId        *uuid.UUID `json:"notebook_id"`
	PersonaPreference string     `json:"persona_preference" validate:"omitempty,max=32"`
	DateFrom          *time.Time `json:"date_from"`
	DateTo            *time.Time `json:"date_to"`
}

type PersonaResponse struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Greeting string `json:"greeting"`
	Style    string `json:"style"`
}

type SessionResponse struct {
	Id                uuid.UUID        `json:"id"`
	Title             string           `json:"title"`
	NotebookId        *uuid.UUID       `json:"notebook_id"`
	PersonaPreference string           `json:"persona_preference,omitempty"`
	IsPinned          bool             `json:"is_pinned"`
	IsArchived        bool             `json:"is_archived"`
	MessageCount      int              `json:"message_count"`
	LastMessageAt     time.Time        `json:"last_message_at"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         *time.Time       `json:"updated_at"`
	CurrentPersona    *PersonaResponse `json:"current_persona,omitempty"`
}

type ListSessionsResponse struct {
	Items []*SessionResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type MessageMetadataResponse struct {
	Model        string      `json:"model,omitempty"`
	RetrievedIds []uuid.UUID `json:"retrieved_ids,omitempty"`
	Persona      string      `json:"persona,omitempty"`
	TimingMs     int64       `json:"timing_ms,omitempty"`
	Fallback     bool        `json:"fallback,omitempty"`
}

type MessageResponse struct {
	Id         uuid.UUID                `json:"id"`
	Sequence   int                      `json:"sequence"`
	Role       string                   `json:"role"`
	Content    string                   `json:"content"`
	Metadata   *MessageMetadataResponse `json:"metadata,omitempty"`
	TokenCount int                      `json:"token_count"`
	CreatedAt  time.Time                `json:"created_at"`
}

type ListMessagesResponse struct {
	Items []*MessageResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type SessionDetailResponse struct {
	Session  *SessionResponse   `json:"session"`
	Messages []*MessageResponse `json:"messages"`
}

// SourceResponse is one notebook excerpt the reply was grounded on.
type SourceResponse struct {
	NotebookId uuid.UUID  `json:"notebook_id"`
	Title      string     `json:"title"`
	Excerpt    string     `json:"excerpt"`
	Score      float64    `json:"score"`
	Similarity int        `json:"similarity_percent"`
	Date       *time.Time `json:"date,omitempty"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID         `json:"chat_session_id"`
	ChatSessionTitle string            `json:"title"`
	Sent             *MessageResponse  `json:"sent"`
	Reply            *MessageResponse  `json:"reply"`
	Persona          *PersonaResponse  `json:"persona"`
	Sources          []*SourceResponse `json:"sources"`
}
