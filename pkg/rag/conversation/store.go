// Package conversation persists chat sessions and their ordered messages.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/repository/specification"
	"ai-notebook-companion/internal/repository/unitofwork"
	"ai-notebook-companion/pkg/rag/persona"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultTitle = "New conversation"
	MaxTitleLen  = 200

	DefaultLimit = 20
	MaxLimit     = 100
)

const (
	SortByLastMessageAt = "lastMessageAt"
	SortByCreatedAt     = "createdAt"
	SortByTitle         = "title"
)

var sortColumns = map[string]string{
	SortByLastMessageAt: "last_message_at",
	SortByCreatedAt:     "created_at",
	SortByTitle:         "title",
}

type ListSessionsParams struct {
	Page            int
	Limit           int
	IncludeArchived bool
	SortBy          string
	SortDirection   string // "asc" or "desc"
}

type SessionPage struct {
	Items []*entity.ChatSession
	Total int64
	Page  int
	Limit int
}

type MessagePage struct {
	Items []*entity.ChatMessage
	Total int64
	Page  int
	Limit int
}

type NewMessage struct {
	Role       string
	Content    string
	Metadata   *entity.ChatMessageMetadata
	TokenCount int
}

// SessionUpdate carries optional changes; nil fields are left alone.
type SessionUpdate struct {
	Title      *string
	IsPinned   *bool
	IsArchived *bool
}

type Store struct {
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
}

func NewStore(uowFactory unitofwork.RepositoryFactory) *Store {
	return &Store{uowFactory: uowFactory, now: time.Now}
}

func (s *Store) CreateSession(ctx context.Context, owner uuid.UUID, title string, notebookID *uuid.UUID, personaPreference string) (*entity.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if len([]rune(title)) > MaxTitleLen {
		return nil, apperror.NewValidationError("title", fmt.Sprintf("must be at most %d characters", MaxTitleLen))
	}
	if personaPreference != "" && !persona.Exists(personaPreference) {
		return nil, apperror.NewValidationError("persona_preference", fmt.Sprintf("unknown persona %q", personaPreference))
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	if notebookID != nil {
		nb, err := uow.NotebookRepository().FindOne(ctx,
			specification.ByID{ID: *notebookID},
			specification.UserOwnedBy{UserID: owner},
		)
		if err != nil {
			return nil, fmt.Errorf("%w: find notebook: %v", apperror.ErrInternal, err)
		}
		if nb == nil {
			return nil, apperror.ErrNotFoundOrUnauthorized
		}
	}

	session := &entity.ChatSession{
		UserId:            owner,
		Title:             title,
		NotebookId:        notebookID,
		PersonaPreference: personaPreference,
		LastMessageAt:     s.now(),
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", apperror.ErrInternal, err)
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, id, owner uuid.UUID) (*entity.ChatSession, error) {
	return s.findOwned(ctx, s.uowFactory.NewUnitOfWork(ctx), id, owner)
}

func (s *Store) ListSessions(ctx context.Context, owner uuid.UUID, params ListSessionsParams) (*SessionPage, error) {
	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = SortByLastMessageAt
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return nil, apperror.NewValidationError("sort_by", "must be one of lastMessageAt, createdAt, title")
	}

	desc := true
	switch strings.ToLower(params.SortDirection) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return nil, apperror.NewValidationError("sort_direction", "must be asc or desc")
	}

	page, limit := normalizePage(params.Page, params.Limit)

	filters := []specification.Specification{specification.UserOwnedBy{UserID: owner}}
	if !params.IncludeArchived {
		filters = append(filters, specification.NotArchived{})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.ChatSessionRepository().Count(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("%w: count sessions: %v", apperror.ErrInternal, err)
	}

	specs := append(filters,
		specification.PinnedFirst{},
		specification.OrderBy{Field: column, Desc: desc},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
		specification.OrderBy{Field: "id"},
	)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", apperror.ErrInternal, err)
	}

	return &SessionPage{Items: sessions, Total: total, Page: page, Limit: limit}, nil
}

// AddMessage appends to the session inside one transaction. The session row
// update serializes concurrent appends, so sequence numbers never collide.
func (s *Store) AddMessage(ctx context.Context, sessionID, owner uuid.UUID, msg NewMessage) (*entity.ChatMessage, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return nil, apperror.NewValidationError("content", "is required")
	}
	switch msg.Role {
	case entity.ChatRoleUser, entity.ChatRoleAssistant, entity.ChatRoleSystem:
	default:
		return nil, apperror.NewValidationError("role", "must be user, assistant or system")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("%w: begin: %v", apperror.ErrInternal, err)
	}
	defer uow.Rollback()

	session, err := s.findOwned(ctx, uow, sessionID, owner)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sequence, err := uow.ChatSessionRepository().BumpMessageCount(ctx, session.Id, now)
	if err != nil {
		return nil, fmt.Errorf("%w: bump message count: %v", apperror.ErrInternal, err)
	}

	message := &entity.ChatMessage{
		ChatSessionId: session.Id,
		Sequence:      sequence,
		Role:          msg.Role,
		Content:       msg.Content,
		Metadata:      msg.Metadata,
		TokenCount:    msg.TokenCount,
		CreatedAt:     now,
	}
	if err := uow.ChatMessageRepository().Create(ctx, message); err != nil {
		return nil, fmt.Errorf("%w: create message: %v", apperror.ErrInternal, err)
	}

	if msg.Role == entity.ChatRoleUser && session.Title == DefaultTitle {
		if title := AutoTitle(msg.Content); title != "" {
			session.Title = title
			if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
				return nil, fmt.Errorf("%w: auto title: %v", apperror.ErrInternal, err)
			}
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", apperror.ErrInternal, err)
	}
	return message, nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID, owner uuid.UUID, page, limit int) (*MessagePage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.findOwned(ctx, uow, sessionID, owner); err != nil {
		return nil, err
	}

	page, limit = normalizePage(page, limit)
	bySession := specification.ByChatSessionID{ChatSessionID: sessionID}

	total, err := uow.ChatMessageRepository().Count(ctx, bySession)
	if err != nil {
		return nil, fmt.Errorf("%w: count messages: %v", apperror.ErrInternal, err)
	}
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		bySession,
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", apperror.ErrInternal, err)
	}

	return &MessagePage{Items: messages, Total: total, Page: page, Limit: limit}, nil
}

// RecentMessages returns up to n of the latest messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, sessionID, owner uuid.UUID, n int) ([]*entity.ChatMessage, error) {
	if n <= 0 {
		return nil, nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.findOwned(ctx, uow, sessionID, owner)
	if err != nil {
		return nil, err
	}

	offset := session.MessageCount - n
	if offset < 0 {
		offset = 0
	}
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionID},
		specification.Pagination{Limit: n, Offset: offset},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: recent messages: %v", apperror.ErrInternal, err)
	}
	return messages, nil
}

func (s *Store) Pin(ctx context.Context, id, owner uuid.UUID) (*entity.ChatSession, error) {
	pinned := true
	return s.UpdateSession(ctx, id, owner, SessionUpdate{IsPinned: &pinned})
}

func (s *Store) Unpin(ctx context.Context, id, owner uuid.UUID) (*entity.ChatSession, error) {
	pinned := false
	return s.UpdateSession(ctx, id, owner, SessionUpdate{IsPinned: &pinned})
}

// UpdateSession applies the non-nil fields. Nothing is written when the
// session already matches.
func (s *Store) UpdateSession(ctx context.Context, id, owner uuid.UUID, update SessionUpdate) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.findOwned(ctx, uow, id, owner)
	if err != nil {
		return nil, err
	}

	changed := false
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, apperror.NewValidationError("title", "must not be empty")
		}
		if len([]rune(title)) > MaxTitleLen {
			return nil, apperror.NewValidationError("title", fmt.Sprintf("must be at most %d characters", MaxTitleLen))
		}
		if title != session.Title {
			session.Title = title
			changed = true
		}
	}
	if update.IsPinned != nil && *update.IsPinned != session.IsPinned {
		session.IsPinned = *update.IsPinned
		changed = true
	}
	if update.IsArchived != nil && *update.IsArchived != session.IsArchived {
		session.IsArchived = *update.IsArchived
		changed = true
	}

	if !changed {
		return session, nil
	}
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: update session: %v", apperror.ErrInternal, err)
	}
	return session, nil
}

// DeleteSession removes the session and all of its messages in one transaction.
func (s *Store) DeleteSession(ctx context.Context, id, owner uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("%w: begin: %v", apperror.ErrInternal, err)
	}
	defer uow.Rollback()

	if _, err := s.findOwned(ctx, uow, id, owner); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, id); err != nil {
		return fmt.Errorf("%w: delete messages: %v", apperror.ErrInternal, err)
	}
	if err := uow.ChatSessionRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete session: %v", apperror.ErrInternal, err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperror.ErrInternal, err)
	}
	return nil
}

func (s *Store) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, id, owner uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: owner},
	)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFoundOrUnauthorized
		}
		return nil, fmt.Errorf("%w: find session: %v", apperror.ErrInternal, err)
	}
	if session == nil {
		return nil, apperror.ErrNotFoundOrUnauthorized
	}
	return session, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 1:
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
