package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-notebook-companion/pkg/httputil"
)

const JinaBaseURL = "https://api.jina.ai"

// OpenAIProvider speaks the OpenAI /v1/embeddings dialect, which Jina,
// vLLM and most hosted gateways also accept.
type OpenAIProvider struct {
	BaseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  httputil.NewClient(timeout),
	}
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string, _ TaskType) ([]byte, error) {
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	body, err := httputil.PostJSON(ctx, p.client, p.BaseURL+"/v1/embeddings", headers, openAIEmbedRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	return body, nil
}

func (p *OpenAIProvider) Model() string {
	return p.model
}
