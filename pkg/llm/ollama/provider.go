package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-notebook-companion/pkg/httputil"
	"ai-notebook-companion/pkg/llm"
)

type OllamaProvider struct {
	BaseURL string
	model   string
	Client  *http.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		Client:  httputil.NewClient(timeout),
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []llm.Message  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

func (o *OllamaProvider) Complete(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.RawCompletion, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: o.model}, opts...)

	reqPayload := ollamaChatRequest{
		Model:    options.Model,
		Messages: messages,
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}

	body, err := httputil.PostJSON(ctx, o.Client, o.BaseURL+"/api/chat", nil, reqPayload)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return &llm.RawCompletion{Body: body, Model: options.Model}, nil
}

func (o *OllamaProvider) ModelName() string {
	return o.model
}
