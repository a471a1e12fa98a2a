package response

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/pkg/logger"
	"ai-notebook-companion/pkg/llm"
)

// FallbackReply is shown whenever the completion service fails or answers in
// an unrecognized shape.
const FallbackReply = "I'm sorry, I couldn't put together an answer right now. Please try again in a moment."

// NoInformationReply answers a query that matched no embedded notebook entry.
const NoInformationReply = "I couldn't find anything about that in your notebook yet."

// Reply is the assistant turn produced for one completion call. Cause is set
// only when Fallback is true.
type Reply struct {
	Role       string
	Content    string
	Model      string
	Kind       Kind
	TimingMs   int64
	TokenCount int
	Fallback   bool
	Cause      error
}

// traceBodyChars caps how much of a raw completion body is traced.
const traceBodyChars = 2000

type Generator struct {
	provider llm.LLMProvider
	trace    logger.ILogger
	now      func() time.Time
}

type GeneratorOption func(*Generator)

// WithTraceLogger records every prompt and raw completion body.
func WithTraceLogger(l logger.ILogger) GeneratorOption {
	return func(g *Generator) {
		g.trace = l
	}
}

func NewGenerator(provider llm.LLMProvider, opts ...GeneratorOption) *Generator {
	g := &Generator{provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate never returns an error: failures are absorbed into the fallback reply.
func (g *Generator) Generate(ctx context.Context, messages []llm.Message, opts ...llm.Option) *Reply {
	start := g.now()

	reply := &Reply{Role: llm.RoleAssistant, Model: g.provider.ModelName()}

	raw, err := g.provider.Complete(ctx, messages, opts...)
	g.traceCall(messages, raw, err)
	if err == nil {
		if raw.Model != "" {
			reply.Model = raw.Model
		}
		var completion *Completion
		completion, err = Decode(raw.Body)
		if err == nil {
			reply.Kind = completion.Kind
			reply.Content = completion.Text
		} else {
			err = fmt.Errorf("decode completion from %s: %w", reply.Model, err)
		}
	}

	if err != nil {
		reply.Content = FallbackReply
		reply.Fallback = true
		reply.Cause = err
	}

	reply.TimingMs = g.now().Sub(start).Milliseconds()
	reply.TokenCount = EstimateTokens(reply.Content)
	return reply
}

func (g *Generator) traceCall(messages []llm.Message, raw *llm.RawCompletion, err error) {
	if g.trace == nil {
		return
	}
	details := map[string]interface{}{
		"model":    g.provider.ModelName(),
		"messages": messages,
	}
	if raw != nil {
		body := string(raw.Body)
		if len(body) > traceBodyChars {
			body = body[:traceBodyChars]
		}
		details["body"] = body
	}
	if err != nil {
		details["error"] = err.Error()
	}
	g.trace.Debug("LLM_TRACE", "Completion call", details)
}

// IsMalformed reports whether the reply fell back because of an unrecognized body.
func (r *Reply) IsMalformed() bool {
	return r.Cause != nil && errors.Is(r.Cause, apperror.ErrMalformedCompletionResponse)
}

// EstimateTokens approximates the token count as ceil(runes / 4).
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}
