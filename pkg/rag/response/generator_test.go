package response

import (
	"context"
	"errors"
	"testing"

	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/pkg/logger"
	"ai-notebook-companion/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Complete(ctx context.Context, messages []llm.Message, options ...llm.Option) (*llm.RawCompletion, error) {
	args := m.Called(ctx, messages)
	raw, _ := args.Get(0).(*llm.RawCompletion)
	return raw, args.Error(1)
}

func (m *mockProvider) ModelName() string {
	return "llama3"
}

var testMessages = []llm.Message{
	{Role: llm.RoleSystem, Content: "answer from context"},
	{Role: llm.RoleUser, Content: "what did I do in January?"},
}

func TestGenerator_Generate(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, testMessages).
		Return(&llm.RawCompletion{Body: []byte(`{"message":{"content":"You went skiing [1]."}}`), Model: "llama3:8b"}, nil)

	reply := NewGenerator(provider).Generate(context.Background(), testMessages)

	assert.False(t, reply.Fallback)
	assert.Nil(t, reply.Cause)
	assert.Equal(t, llm.RoleAssistant, reply.Role)
	assert.Equal(t, "You went skiing [1].", reply.Content)
	assert.Equal(t, "llama3:8b", reply.Model)
	assert.Equal(t, KindChatMessage, reply.Kind)
	assert.Equal(t, 5, reply.TokenCount)
	provider.AssertExpectations(t)
}

func TestGenerator_FallbackOnProviderError(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, testMessages).
		Return(nil, errors.Join(apperror.ErrTransientExternalService, errors.New("dial tcp: refused")))

	reply := NewGenerator(provider).Generate(context.Background(), testMessages)

	assert.True(t, reply.Fallback)
	assert.Equal(t, FallbackReply, reply.Content)
	assert.Equal(t, "llama3", reply.Model)
	assert.ErrorIs(t, reply.Cause, apperror.ErrTransientExternalService)
	assert.False(t, reply.IsMalformed())
	assert.Equal(t, EstimateTokens(FallbackReply), reply.TokenCount)
}

func TestGenerator_FallbackOnMalformedBody(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, testMessages).
		Return(&llm.RawCompletion{Body: []byte(`{"ok":true}`)}, nil)

	reply := NewGenerator(provider).Generate(context.Background(), testMessages)

	assert.True(t, reply.Fallback)
	assert.True(t, reply.IsMalformed())
	assert.Equal(t, FallbackReply, reply.Content)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 1, EstimateTokens("日本語"))
}

func TestGenerator_TraceLogger(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, testMessages).
		Return(&llm.RawCompletion{Body: []byte(`{"response":"Skiing."}`)}, nil)

	core, logs := observer.New(zap.DebugLevel)
	reply := NewGenerator(provider, WithTraceLogger(logger.NewWithCore(core))).
		Generate(context.Background(), testMessages)

	assert.Equal(t, "Skiing.", reply.Content)
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "LLM_TRACE", entries[0].ContextMap()["module"])
		details, _ := entries[0].ContextMap()["details"].(map[string]interface{})
		assert.Equal(t, `{"response":"Skiing."}`, details["body"])
	}
}
