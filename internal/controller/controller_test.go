package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-notebook-companion/internal/dto"
	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/pkg/logger"
	"ai-notebook-companion/internal/pkg/serverutils"
	"ai-notebook-companion/internal/repository/memory"
	"ai-notebook-companion/internal/repository/testutil"
	"ai-notebook-companion/internal/repository/unitofwork"
	"ai-notebook-companion/internal/service"
	"ai-notebook-companion/pkg/events"
	"ai-notebook-companion/pkg/llm"
	"ai-notebook-companion/pkg/rag/conversation"
	"ai-notebook-companion/pkg/rag/persona"
	"ai-notebook-companion/pkg/rag/prompt"
	"ai-notebook-companion/pkg/rag/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type noopEmbedder struct{}

func (noopEmbedder) EmbedQuery(ctx context.Context, raw string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (noopEmbedder) Clean(raw string) string { return raw }

type cannedLLM struct{}

func (cannedLLM) Complete(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.RawCompletion, error) {
	return &llm.RawCompletion{Body: []byte(`{"response":"ok"}`)}, nil
}

func (cannedLLM) ModelName() string { return "llama3" }

type mockMaintenance struct {
	mock.Mock
}

func (m *mockMaintenance) EnqueueNotebook(ctx context.Context, userId uuid.UUID, notebookId uuid.UUID) (*dto.EmbeddingJobResponse, error) {
	args := m.Called(ctx, userId, notebookId)
	res, _ := args.Get(0).(*dto.EmbeddingJobResponse)
	return res, args.Error(1)
}

func (m *mockMaintenance) StartSweep(ctx context.Context, userId *uuid.UUID) (*dto.EmbeddingJobResponse, error) {
	args := m.Called(ctx, userId)
	res, _ := args.Get(0).(*dto.EmbeddingJobResponse)
	return res, args.Error(1)
}

func (m *mockMaintenance) RunSweep(ctx context.Context, userId *uuid.UUID) (*entity.EmbeddingJob, error) {
	args := m.Called(ctx, userId)
	res, _ := args.Get(0).(*entity.EmbeddingJob)
	return res, args.Error(1)
}

func (m *mockMaintenance) GetJob(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.EmbeddingJobResponse, error) {
	args := m.Called(ctx, userId, jobId)
	res, _ := args.Get(0).(*dto.EmbeddingJobResponse)
	return res, args.Error(1)
}

func (m *mockMaintenance) RunSingleJob(ctx context.Context, jobId, notebookId uuid.UUID) error {
	return m.Called(ctx, jobId, notebookId).Error(0)
}

func (m *mockMaintenance) EmbedNotebook(ctx context.Context, notebookId uuid.UUID) error {
	return m.Called(ctx, notebookId).Error(0)
}

func (m *mockMaintenance) HandleNotebookContentChanged(ctx context.Context, event events.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockMaintenance) Wait() {}

func fakeAuth(userId uuid.UUID) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ctx.Locals("user_id", userId.String())
		return ctx.Next()
	}
}

func newTestApp(t *testing.T, owner uuid.UUID, maintenance service.IEmbeddingMaintenanceService) *fiber.App {
	t.Helper()
	db := testutil.NewTestDB(t)
	factory := unitofwork.NewRepositoryFactory(db)

	selector, err := persona.NewSelector(rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	chatbot := service.NewChatbotService(
		factory,
		conversation.NewStore(factory),
		noopEmbedder{},
		prompt.NewAssembler(prompt.Config{}),
		response.NewGenerator(cannedLLM{}),
		selector,
		memory.NewPersonaStateRepository(time.Hour),
		logger.NewNopLogger(),
		service.ChatbotConfig{TopK: 5, MinSimilarity: -1, HistoryTurns: 4},
	)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
	api := app.Group("/api")
	NewChatbotController(chatbot).RegisterRoutes(api, fakeAuth(owner))
	NewEmbeddingController(maintenance).RegisterRoutes(api, fakeAuth(owner))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestChatbotController_SessionLifecycle(t *testing.T) {
	app := newTestApp(t, uuid.New(), new(mockMaintenance))

	status, body := doJSON(t, app, http.MethodPost, "/api/chat/v1/sessions", map[string]interface{}{"title": "Trip planning"})
	require.Equal(t, http.StatusCreated, status)
	session := body["data"].(map[string]interface{})
	id := session["id"].(string)
	assert.Equal(t, "Trip planning", session["title"])

	for i := 0; i < 2; i++ {
		status, body = doJSON(t, app, http.MethodPost, "/api/chat/v1/sessions/"+id+"/pin", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["data"].(map[string]interface{})["is_pinned"])
	}

	status, body = doJSON(t, app, http.MethodPost, "/api/chat/v1/sessions/"+id+"/messages", map[string]interface{}{"content": "hello there"})
	require.Equal(t, http.StatusCreated, status)
	reply := body["data"].(map[string]interface{})["reply"].(map[string]interface{})
	assert.Equal(t, response.NoInformationReply, reply["content"])

	status, body = doJSON(t, app, http.MethodGet, "/api/chat/v1/sessions/"+id+"/messages?page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["data"].(map[string]interface{})["total"])

	status, _ = doJSON(t, app, http.MethodDelete, "/api/chat/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/chat/v1/sessions/"+id+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestChatbotController_Errors(t *testing.T) {
	app := newTestApp(t, uuid.New(), new(mockMaintenance))

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{name: "malformed id", method: http.MethodGet, path: "/api/chat/v1/sessions/not-a-uuid", want: http.StatusBadRequest},
		{name: "unknown session", method: http.MethodGet, path: "/api/chat/v1/sessions/" + uuid.NewString(), want: http.StatusNotFound},
		{name: "missing content", method: http.MethodPost, path: "/api/chat/v1/send", body: map[string]interface{}{}, want: http.StatusBadRequest},
		{name: "bad sort", method: http.MethodGet, path: "/api/chat/v1/sessions?sort_by=size", want: http.StatusBadRequest},
		{name: "unknown persona", method: http.MethodPost, path: "/api/chat/v1/sessions", body: map[string]interface{}{"persona_preference": "nobody"}, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestChatbotController_SendCreatesSession(t *testing.T) {
	app := newTestApp(t, uuid.New(), new(mockMaintenance))

	status, body := doJSON(t, app, http.MethodPost, "/api/chat/v1/send", map[string]interface{}{"content": "what did I plan for spring?"})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["chat_session_id"])

	status, body = doJSON(t, app, http.MethodGet, "/api/chat/v1/sessions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["total"])

	status, body = doJSON(t, app, http.MethodGet, "/api/chat/v1/personas", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"].([]interface{}), len(persona.All()))
}

func TestEmbeddingController(t *testing.T) {
	owner := uuid.New()
	notebookId := uuid.New()
	jobId := uuid.New()

	maintenance := new(mockMaintenance)
	maintenance.On("EnqueueNotebook", mock.Anything, owner, notebookId).
		Return(&dto.EmbeddingJobResponse{Id: jobId, Kind: "single", Status: "pending"}, nil)
	maintenance.On("StartSweep", mock.Anything, &owner).
		Return(&dto.EmbeddingJobResponse{Id: jobId, Kind: "sweep", Status: "running"}, nil)
	maintenance.On("GetJob", mock.Anything, owner, jobId).
		Return(&dto.EmbeddingJobResponse{Id: jobId, Kind: "sweep", Status: "completed", Processed: 10, Succeeded: 9, Failed: 1}, nil)
	maintenance.On("GetJob", mock.Anything, owner, mock.Anything).
		Return(nil, apperror.ErrNotFoundOrUnauthorized)

	app := newTestApp(t, owner, maintenance)

	status, body := doJSON(t, app, http.MethodPost, "/api/embedding/v1/notebooks/"+notebookId.String(), nil)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "pending", body["data"].(map[string]interface{})["status"])

	status, body = doJSON(t, app, http.MethodPost, "/api/embedding/v1/sweeps", nil)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "running", body["data"].(map[string]interface{})["status"])

	status, body = doJSON(t, app, http.MethodGet, "/api/embedding/v1/jobs/"+jobId.String(), nil)
	require.Equal(t, http.StatusOK, status)
	job := body["data"].(map[string]interface{})
	assert.Equal(t, float64(9), job["succeeded"])
	assert.Equal(t, float64(1), job["failed"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/embedding/v1/jobs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)

	maintenance.AssertExpectations(t)
}
