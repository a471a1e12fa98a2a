package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models/text-embedding-004:embedContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var req geminiEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "RETRIEVAL_QUERY", req.TaskType)
		assert.Equal(t, "hi there", req.Content.Parts[0].Text)

		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1]}}`))
	}))
	defer server.Close()

	provider := NewGeminiProvider("secret", "", time.Second)
	provider.BaseURL = server.URL

	body, err := provider.Embed(context.Background(), []string{"hi there"}, TaskRetrievalQuery)
	require.NoError(t, err)

	decoded, err := DecodeVectors(body)
	require.NoError(t, err)
	assert.Equal(t, ShapeValuesObject, decoded.Kind)
}

func TestOpenAIProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.3,0.4]}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(server.URL+"/", "key", "jina-embeddings-v3", time.Second)
	body, err := provider.Embed(context.Background(), []string{"a"}, TaskRetrievalDocument)
	require.NoError(t, err)

	decoded, err := DecodeVectors(body)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.3, 0.4}}, decoded.Vectors)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("jina", "", "jina-embeddings-v3", "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, JinaBaseURL, p.(*OpenAIProvider).BaseURL)

	_, err = NewProvider("word2vec", "", "", "", time.Second)
	assert.Error(t, err)
}
