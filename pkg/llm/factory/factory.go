package factory

import (
	"fmt"
	"time"

	"ai-notebook-companion/pkg/llm"
	"ai-notebook-companion/pkg/llm/ollama"
	"ai-notebook-companion/pkg/llm/openai"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string, timeout time.Duration) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName, timeout), nil
	case "openai", "huggingface":
		return openai.NewProvider(apiKey, baseURL, modelName, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
