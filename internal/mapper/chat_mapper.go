package mapper

import (
	"encoding/json"
	"time"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:                s.Id,
		UserId:            s.UserId,
		Title:             s.Title,
		NotebookId:        s.NotebookId,
		PersonaPreference: s.PersonaPreference,
		IsPinned:          s.IsPinned,
		IsArchived:        s.IsArchived,
		LastMessageAt:     s.LastMessageAt,
		MessageCount:      s.MessageCount,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         updatedAt,
		DeletedAt:         deletedAt,
		IsDeleted:         s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:                s.Id,
		UserId:            s.UserId,
		Title:             s.Title,
		NotebookId:        s.NotebookId,
		PersonaPreference: s.PersonaPreference,
		IsPinned:          s.IsPinned,
		IsArchived:        s.IsArchived,
		LastMessageAt:     s.LastMessageAt,
		MessageCount:      s.MessageCount,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         updatedAt,
		DeletedAt:         deletedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var metadata *entity.ChatMessageMetadata
	if len(msg.Metadata) > 0 && string(msg.Metadata) != "null" {
		var md entity.ChatMessageMetadata
		// Unknown or legacy metadata is dropped rather than failing the read.
		if err := json.Unmarshal(msg.Metadata, &md); err == nil {
			metadata = &md
		}
	}

	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Sequence:      msg.Sequence,
		Role:          msg.Role,
		Content:       msg.Content,
		Metadata:      metadata,
		TokenCount:    msg.TokenCount,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) (*model.ChatMessage, error) {
	if msg == nil {
		return nil, nil
	}

	var metadata datatypes.JSON
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = datatypes.JSON(raw)
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Sequence:      msg.Sequence,
		Role:          msg.Role,
		Content:       msg.Content,
		Metadata:      metadata,
		TokenCount:    msg.TokenCount,
		CreatedAt:     msg.CreatedAt,
	}, nil
}
