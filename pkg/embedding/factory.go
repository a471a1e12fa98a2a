package embedding

import (
	"fmt"
	"time"
)

func NewProvider(providerType, baseURL, model, apiKey string, timeout time.Duration) (EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return NewOllamaProvider(baseURL, model, timeout), nil
	case "openai":
		return NewOpenAIProvider(baseURL, apiKey, model, timeout), nil
	case "jina":
		if baseURL == "" {
			baseURL = JinaBaseURL
		}
		return NewOpenAIProvider(baseURL, apiKey, model, timeout), nil
	case "gemini":
		return NewGeminiProvider(apiKey, model, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
