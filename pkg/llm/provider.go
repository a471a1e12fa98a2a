package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// RawCompletion is the undecoded reply of a completion backend. Backends disagree
// on the body layout, so decoding happens in one place (rag/response).
type RawCompletion struct {
	Body  []byte
	Model string
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Complete sends the ordered messages and returns the raw response body.
	Complete(ctx context.Context, messages []Message, options ...Option) (*RawCompletion, error)

	ModelName() string
}
