package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"ai-notebook-companion/internal/dto"
	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/pkg/logger"
	"ai-notebook-companion/internal/repository/memory"
	"ai-notebook-companion/internal/repository/specification"
	"ai-notebook-companion/internal/repository/unitofwork"
	"ai-notebook-companion/pkg/llm"
	"ai-notebook-companion/pkg/rag/conversation"
	"ai-notebook-companion/pkg/rag/persona"
	"ai-notebook-companion/pkg/rag/prompt"
	"ai-notebook-companion/pkg/rag/ranker"
	"ai-notebook-companion/pkg/rag/response"

	"github.com/google/uuid"
)

// QueryEmbedder embeds the user's question and cleans notebook text for excerpts.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, raw string) ([]float32, error)
	Clean(raw string) string
}

type ChatbotConfig struct {
	TopK          int
	MinSimilarity float64
	HistoryTurns  int
	// Zero keeps the provider default
	Temperature float64
}

type IChatbotService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, userId uuid.UUID, request *dto.ListSessionsRequest) (*dto.ListSessionsResponse, error)
	GetSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionDetailResponse, error)
	UpdateSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.UpdateSessionRequest) (*dto.SessionResponse, error)
	PinSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error)
	UnpinSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	ListMessages(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error)
	AddMessage(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.AddMessageRequest) (*dto.SendChatResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	ListPersonas(ctx context.Context) []*dto.PersonaResponse
}

type chatbotService struct {
	uowFactory   unitofwork.RepositoryFactory
	store        *conversation.Store
	embedder     QueryEmbedder
	assembler    *prompt.Assembler
	generator    *response.Generator
	personaState *memory.PersonaStateRepository
	logger       logger.ILogger
	cfg          ChatbotConfig
	now          func() time.Time

	selectorMu sync.Mutex
	selector   *persona.Selector
}

func NewChatbotService(
	uowFactory unitofwork.RepositoryFactory,
	store *conversation.Store,
	embedder QueryEmbedder,
	assembler *prompt.Assembler,
	generator *response.Generator,
	selector *persona.Selector,
	personaState *memory.PersonaStateRepository,
	log logger.ILogger,
	cfg ChatbotConfig,
) IChatbotService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &chatbotService{
		uowFactory:   uowFactory,
		store:        store,
		embedder:     embedder,
		assembler:    assembler,
		generator:    generator,
		selector:     selector,
		personaState: personaState,
		logger:       log,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (cs *chatbotService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	session, err := cs.store.CreateSession(ctx, userId, request.Title, request.NotebookId, request.PersonaPreference)
	if err != nil {
		return nil, err
	}
	return cs.toSessionResponse(session), nil
}

func (cs *chatbotService) ListSessions(ctx context.Context, userId uuid.UUID, request *dto.ListSessionsRequest) (*dto.ListSessionsResponse, error) {
	page, err := cs.store.ListSessions(ctx, userId, conversation.ListSessionsParams{
		Page:            request.Page,
		Limit:           request.Limit,
		IncludeArchived: request.IncludeArchived,
		SortBy:          request.SortBy,
		SortDirection:   request.SortDirection,
	})
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SessionResponse, 0, len(page.Items))
	for _, session := range page.Items {
		items = append(items, cs.toSessionResponse(session))
	}
	return &dto.ListSessionsResponse{Items: items, Total: page.Total, Page: page.Page, Limit: page.Limit}, nil
}

func (cs *chatbotService) GetSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionDetailResponse, error) {
	session, err := cs.store.GetSession(ctx, sessionId, userId)
	if err != nil {
		return nil, err
	}
	messages, err := cs.store.RecentMessages(ctx, sessionId, userId, conversation.MaxLimit)
	if err != nil {
		return nil, err
	}

	return &dto.SessionDetailResponse{
		Session:  cs.toSessionResponse(session),
		Messages: toMessageResponses(messages),
	}, nil
}

func (cs *chatbotService) UpdateSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	session, err := cs.store.UpdateSession(ctx, sessionId, userId, conversation.SessionUpdate{
		Title:      request.Title,
		IsPinned:   request.IsPinned,
		IsArchived: request.IsArchived,
	})
	if err != nil {
		return nil, err
	}
	return cs.toSessionResponse(session), nil
}

func (cs *chatbotService) PinSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error) {
	session, err := cs.store.Pin(ctx, sessionId, userId)
	if err != nil {
		return nil, err
	}
	return cs.toSessionResponse(session), nil
}

func (cs *chatbotService) UnpinSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error) {
	session, err := cs.store.Unpin(ctx, sessionId, userId)
	if err != nil {
		return nil, err
	}
	return cs.toSessionResponse(session), nil
}

func (cs *chatbotService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	if err := cs.store.DeleteSession(ctx, sessionId, userId); err != nil {
		return err
	}
	cs.personaState.Delete(sessionId)
	return nil
}

func (cs *chatbotService) ListMessages(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error) {
	page, err := cs.store.ListMessages(ctx, sessionId, userId, request.Page, request.Limit)
	if err != nil {
		return nil, err
	}
	return &dto.ListMessagesResponse{
		Items: toMessageResponses(page.Items),
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	}, nil
}

func (cs *chatbotService) AddMessage(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.AddMessageRequest) (*dto.SendChatResponse, error) {
	if err := validateTurn(request.Content, request.DateFrom, request.DateTo); err != nil {
		return nil, err
	}
	session, err := cs.store.GetSession(ctx, sessionId, userId)
	if err != nil {
		return nil, err
	}
	return cs.runTurn(ctx, userId, session, request.Content, request.DateFrom, request.DateTo)
}

// SendChat creates the session on the first turn when no session id is given.
func (cs *chatbotService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	if err := validateTurn(request.Content, request.DateFrom, request.DateTo); err != nil {
		return nil, err
	}

	var session *entity.ChatSession
	var err error
	if request.ChatSessionId == nil {
		session, err = cs.store.CreateSession(ctx, userId, "", request.NotebookId, request.PersonaPreference)
	} else {
		session, err = cs.store.GetSession(ctx, *request.ChatSessionId, userId)
	}
	if err != nil {
		return nil, err
	}

	return cs.runTurn(ctx, userId, session, request.Content, request.DateFrom, request.DateTo)
}

func (cs *chatbotService) ListPersonas(ctx context.Context) []*dto.PersonaResponse {
	all := persona.All()
	result := make([]*dto.PersonaResponse, 0, len(all))
	for _, d := range all {
		result = append(result, toPersonaResponse(d))
	}
	return result
}

// validateTurn runs before anything is written for the turn.
func validateTurn(content string, dateFrom, dateTo *time.Time) error {
	if strings.TrimSpace(content) == "" {
		return apperror.NewValidationError("content", "is required")
	}
	if dateFrom != nil && dateTo != nil && dateFrom.After(*dateTo) {
		return apperror.NewValidationError("date_from", "must not be after date_to")
	}
	return nil
}

// runTurn is the retrieval pipeline for one user message. External failures
// become the fallback reply; only persistence failures are returned.
func (cs *chatbotService) runTurn(ctx context.Context, userId uuid.UUID, session *entity.ChatSession, content string, dateFrom, dateTo *time.Time) (*dto.SendChatResponse, error) {
	content = strings.TrimSpace(content)

	history, err := cs.store.RecentMessages(ctx, session.Id, userId, cs.cfg.HistoryTurns)
	if err != nil {
		return nil, err
	}

	sent, err := cs.store.AddMessage(ctx, session.Id, userId, conversation.NewMessage{
		Role:       entity.ChatRoleUser,
		Content:    content,
		TokenCount: response.EstimateTokens(content),
	})
	if err != nil {
		return nil, err
	}

	ranked, retrievalErr := cs.retrieve(ctx, userId, session.NotebookId, content, dateFrom, dateTo)
	if retrievalErr != nil && errors.Is(retrievalErr, apperror.ErrInternal) {
		return nil, retrievalErr
	}

	selection := cs.selectPersona(persona.Input{
		Message:      content,
		Preference:   session.PersonaPreference,
		ExcerptCount: len(ranked),
	})

	excerpts := make([]prompt.Excerpt, 0, len(ranked))
	for _, r := range ranked {
		excerpts = append(excerpts, prompt.Excerpt{
			NotebookID: r.ID,
			Title:      r.Title,
			Text:       cs.embedder.Clean(r.Content),
			Score:      r.Score,
			Date:       r.UpdatedAt,
		})
	}

	var reply *response.Reply
	switch {
	case retrievalErr != nil:
		reply = staticReply(response.FallbackReply, true, retrievalErr)
	case len(excerpts) == 0:
		reply = staticReply(response.NoInformationReply, false, nil)
	default:
		messages := cs.assembler.Build(content, excerpts,
			prompt.WithPersonaHint(selection.Persona.Hint),
			prompt.WithHistory(toLLMHistory(history)),
		)
		var opts []llm.Option
		if cs.cfg.Temperature > 0 {
			opts = append(opts, llm.WithTemperature(cs.cfg.Temperature))
		}
		reply = cs.generator.Generate(ctx, messages, opts...)
	}

	if reply.Fallback {
		cs.logger.Error("CHATBOT", "Substituted fallback reply", map[string]interface{}{
			"session_id": session.Id,
			"model":      reply.Model,
			"malformed":  reply.IsMalformed(),
			"error":      reply.Cause.Error(),
		})
	}

	retrievedIds := make([]uuid.UUID, 0, len(excerpts))
	for _, ex := range excerpts {
		retrievedIds = append(retrievedIds, ex.NotebookID)
	}

	answer, err := cs.store.AddMessage(ctx, session.Id, userId, conversation.NewMessage{
		Role:    entity.ChatRoleAssistant,
		Content: reply.Content,
		Metadata: &entity.ChatMessageMetadata{
			Model:        reply.Model,
			RetrievedIds: retrievedIds,
			Persona:      selection.Persona.Key,
			TimingMs:     reply.TimingMs,
			Fallback:     reply.Fallback,
		},
		TokenCount: reply.TokenCount,
	})
	if err != nil {
		return nil, err
	}

	cs.personaState.Save(memory.PersonaState{
		SessionID:  session.Id,
		PersonaKey: selection.Persona.Key,
		Reason:     string(selection.Reason),
		SelectedAt: cs.now(),
	})

	cs.logger.Info("CHATBOT", "Chat turn completed", map[string]interface{}{
		"session_id": session.Id,
		"excerpts":   len(excerpts),
		"persona":    selection.Persona.Key,
		"reason":     selection.Reason,
		"fallback":   reply.Fallback,
		"timing_ms":  reply.TimingMs,
	})

	title := session.Title
	if refreshed, err := cs.store.GetSession(ctx, session.Id, userId); err == nil {
		title = refreshed.Title
	}

	sources := make([]*dto.SourceResponse, 0, len(excerpts))
	for _, ex := range excerpts {
		date := ex.Date
		sources = append(sources, &dto.SourceResponse{
			NotebookId: ex.NotebookID,
			Title:      ex.Title,
			Excerpt:    prompt.TruncateRunes(ex.Text, cs.assembler.ExcerptChars()),
			Score:      ex.Score,
			Similarity: int(math.Round(ex.Score * 100)),
			Date:       &date,
		})
	}

	return &dto.SendChatResponse{
		ChatSessionId:    session.Id,
		ChatSessionTitle: title,
		Sent:             toMessageResponse(sent),
		Reply:            toMessageResponse(answer),
		Persona:          toPersonaResponse(selection.Persona),
		Sources:          sources,
	}, nil
}

// retrieve ranks the owner's embedded notebooks against the query. An empty
// corpus short-circuits before the query is embedded.
func (cs *chatbotService) retrieve(ctx context.Context, userId uuid.UUID, notebookId *uuid.UUID, query string, dateFrom, dateTo *time.Time) ([]ranker.Ranked, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.HasEmbedding{},
		specification.UpdatedBetween{From: dateFrom, To: dateTo},
	}
	if notebookId != nil {
		specs = append(specs, specification.ByID{ID: *notebookId})
	}

	notebooks, err := uow.NotebookRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("%w: load notebooks: %v", apperror.ErrInternal, err)
	}
	if len(notebooks) == 0 {
		return nil, nil
	}

	vector, err := cs.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates := make([]ranker.Candidate, 0, len(notebooks))
	for _, nb := range notebooks {
		candidates = append(candidates, ranker.Candidate{
			ID:        nb.Id,
			Title:     nb.Title,
			Content:   nb.Content,
			Vector:    nb.Embedding,
			UpdatedAt: nb.LastModified(),
		})
	}

	return ranker.Rank(vector, candidates, ranker.Options{
		Limit:    cs.cfg.TopK,
		MinScore: cs.cfg.MinSimilarity,
	}), nil
}

func (cs *chatbotService) selectPersona(in persona.Input) persona.Selection {
	cs.selectorMu.Lock()
	defer cs.selectorMu.Unlock()
	return cs.selector.Select(in)
}

func staticReply(content string, fallback bool, cause error) *response.Reply {
	return &response.Reply{
		Role:       llm.RoleAssistant,
		Content:    content,
		TokenCount: response.EstimateTokens(content),
		Fallback:   fallback,
		Cause:      cause,
	}
}

func toLLMHistory(messages []*entity.ChatMessage) []llm.Message {
	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case entity.ChatRoleUser:
			history = append(history, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case entity.ChatRoleAssistant:
			history = append(history, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	return history
}

func (cs *chatbotService) toSessionResponse(session *entity.ChatSession) *dto.SessionResponse {
	res := &dto.SessionResponse{
		Id:                session.Id,
		Title:             session.Title,
		NotebookId:        session.NotebookId,
		PersonaPreference: session.PersonaPreference,
		IsPinned:          session.IsPinned,
		IsArchived:        session.IsArchived,
		MessageCount:      session.MessageCount,
		LastMessageAt:     session.LastMessageAt,
		CreatedAt:         session.CreatedAt,
		UpdatedAt:         session.UpdatedAt,
	}
	if state, ok := cs.personaState.Get(session.Id); ok {
		if d, ok := persona.Get(state.PersonaKey); ok {
			res.CurrentPersona = toPersonaResponse(d)
		}
	}
	return res
}

func toPersonaResponse(d persona.Descriptor) *dto.PersonaResponse {
	return &dto.PersonaResponse{
		Key:      d.Key,
		Name:     d.Name,
		Icon:     d.Icon,
		Greeting: d.Greeting,
		Style:    string(d.Style),
	}
}

func toMessageResponse(m *entity.ChatMessage) *dto.MessageResponse {
	res := &dto.MessageResponse{
		Id:         m.Id,
		Sequence:   m.Sequence,
		Role:       m.Role,
		Content:    m.Content,
		TokenCount: m.TokenCount,
		CreatedAt:  m.CreatedAt,
	}
	if m.Metadata != nil {
		res.Metadata = &dto.MessageMetadataResponse{
			Model:        m.Metadata.Model,
			RetrievedIds: m.Metadata.RetrievedIds,
			Persona:      m.Metadata.Persona,
			TimingMs:     m.Metadata.TimingMs,
			Fallback:     m.Metadata.Fallback,
		}
	}
	return res
}

func toMessageResponses(messages []*entity.ChatMessage) []*dto.MessageResponse {
	result := make([]*dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		result = append(result, toMessageResponse(m))
	}
	return result
}
