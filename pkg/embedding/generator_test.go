package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ai-notebook-companion/internal/pkg/apperror"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noWait() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func newOllamaServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *OllamaProvider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return NewOllamaProvider(server.URL, "nomic-embed-text", 5*time.Second)
}

func TestGenerator_EmbedDocument(t *testing.T) {
	var got ollamaEmbedRequest
	provider := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	})

	gen := NewGenerator(provider, Config{Dimension: 3, MaxRetries: 1})
	vector, err := gen.EmbedDocument(context.Background(), "# Morning\n\n**Coffee** by the window")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, "nomic-embed-text", got.Model)
	assert.Equal(t, []string{"Morning Coffee by the window"}, got.Input)
}

func TestGenerator_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	provider := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[1,0]}`))
	})

	gen := NewGenerator(provider, Config{Dimension: 2, MaxRetries: 3}, WithBackOff(noWait))
	vector, err := gen.EmbedDocument(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vector)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerator_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{name: "unrecognized shape is not retried", status: http.StatusOK, body: `{"foo":1}`, wantCalls: 1},
		{name: "client error is not retried", status: http.StatusBadRequest, body: `{"error":"bad model"}`, wantCalls: 1},
		{name: "server error exhausts retries", status: http.StatusInternalServerError, body: `oops`, wantCalls: 3},
		{name: "empty vector", status: http.StatusOK, body: `{"embedding":[]}`, wantCalls: 1},
		{name: "dimension mismatch", status: http.StatusOK, body: `{"embedding":[1,2,3,4]}`, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			provider := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			gen := NewGenerator(provider, Config{Dimension: 2, MaxRetries: 3}, WithBackOff(noWait))
			_, err := gen.EmbedDocument(context.Background(), "some note")

			assert.ErrorIs(t, err, apperror.ErrNoEmbeddingAvailable)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestGenerator_EmptyTextSkipsProvider(t *testing.T) {
	provider := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called")
	})

	gen := NewGenerator(provider, Config{Dimension: 2})
	_, err := gen.EmbedQuery(context.Background(), "   <br/>  ")

	assert.ErrorIs(t, err, apperror.ErrNoEmbeddingAvailable)
}

type mapCache struct {
	items  map[string][]float32
	getErr error
}

func (c *mapCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, vector []float32) error {
	c.items[key] = vector
	return nil
}

func TestGenerator_EmbedQueryUsesCache(t *testing.T) {
	var calls atomic.Int32
	provider := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"embeddings":[[0.6,0.8]]}`))
	})

	cache := &mapCache{items: map[string][]float32{}}
	gen := NewGenerator(provider, Config{Dimension: 2}, WithQueryCache(cache))

	first, err := gen.EmbedQuery(context.Background(), "what did I eat?")
	require.NoError(t, err)
	second, err := gen.EmbedQuery(context.Background(), "  what did I   eat? ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, cache.items, 1)
}

func TestGenerator_CacheErrorsAreIgnored(t *testing.T) {
	provider := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,1]]}`))
	})

	var reported error
	cache := &mapCache{items: map[string][]float32{}, getErr: errors.New("redis down")}
	gen := NewGenerator(provider, Config{Dimension: 2},
		WithQueryCache(cache),
		WithCacheErrorHook(func(err error) { reported = err }),
	)

	vector, err := gen.EmbedQuery(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, vector)
	assert.EqualError(t, reported, "redis down")
}
