package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-notebook-companion/pkg/httputil"
)

// OllamaProvider targets a local Ollama server (e.g. nomic-embed-text).
type OllamaProvider struct {
	BaseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  httputil.NewClient(timeout),
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string, _ TaskType) ([]byte, error) {
	body, err := httputil.PostJSON(ctx, p.client, p.BaseURL+"/api/embed", nil, ollamaEmbedRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return body, nil
}

func (p *OllamaProvider) Model() string {
	return p.model
}
