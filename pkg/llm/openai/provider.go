// Package openai talks to any OpenAI-compatible /chat/completions endpoint
// (OpenAI, HuggingFace router, vLLM, LM Studio).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-notebook-companion/pkg/httputil"
	"ai-notebook-companion/pkg/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = &Provider{}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

func NewProvider(apiKey, baseURL, model string, timeout time.Duration) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  httputil.NewClient(timeout),
	}
}

func (p *Provider) Complete(ctx context.Context, messages []llm.Message, options ...llm.Option) (*llm.RawCompletion, error) {
	opts := llm.ApplyOptions(llm.Options{Model: p.model, MaxTokens: 500}, options...)

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	body, err := httputil.PostJSON(ctx, p.client, p.baseURL+"/chat/completions", headers, chatRequest{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	return &llm.RawCompletion{Body: body, Model: opts.Model}, nil
}

func (p *Provider) ModelName() string {
	return p.model
}
