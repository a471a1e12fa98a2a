package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-notebook-companion/pkg/httputil"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

type GeminiProvider struct {
	BaseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewGeminiProvider(apiKey, model string, timeout time.Duration) *GeminiProvider {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiProvider{
		BaseURL: geminiBaseURL,
		apiKey:  apiKey,
		model:   model,
		client:  httputil.NewClient(timeout),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"task_type,omitempty"`
}

// Embed sends one embedContent call; Gemini's single-item endpoint only takes one text.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string, taskType TaskType) ([]byte, error) {
	if len(texts) != 1 {
		return nil, errors.New("gemini embed: exactly one text per request")
	}

	url := fmt.Sprintf("%s/v1/models/%s:embedContent", strings.TrimRight(p.BaseURL, "/"), p.model)
	body, err := httputil.PostJSON(ctx, p.client, url, map[string]string{"x-goog-api-key": p.apiKey}, geminiEmbedRequest{
		Model:    "models/" + p.model,
		Content:  geminiContent{Parts: []geminiPart{{Text: texts[0]}}},
		TaskType: string(taskType),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	return body, nil
}

func (p *GeminiProvider) Model() string {
	return p.model
}
