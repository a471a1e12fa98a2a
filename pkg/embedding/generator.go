package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"ai-notebook-companion/internal/pkg/apperror"

	"github.com/cenkalti/backoff/v5"
)

// QueryCache stores query vectors between turns. Implementations should treat
// a miss as (nil, false, nil).
type QueryCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32) error
}

type Config struct {
	Dimension  int
	MaxChars   int
	MaxRetries int
}

type Generator struct {
	provider   EmbeddingProvider
	cleaner    *Cleaner
	cache      QueryCache
	dimension  int
	maxTries   uint
	newBackOff func() backoff.BackOff
	onCacheErr func(error)
}

type Option func(*Generator)

func WithQueryCache(cache QueryCache) Option {
	return func(g *Generator) {
		g.cache = cache
	}
}

// WithCacheErrorHook receives cache failures, which never fail an embedding.
func WithCacheErrorHook(hook func(error)) Option {
	return func(g *Generator) {
		g.onCacheErr = hook
	}
}

func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(g *Generator) {
		g.newBackOff = newBackOff
	}
}

func NewGenerator(provider EmbeddingProvider, cfg Config, opts ...Option) *Generator {
	tries := cfg.MaxRetries
	if tries < 1 {
		tries = 1
	}
	g := &Generator{
		provider:  provider,
		cleaner:   NewCleaner(cfg.MaxChars),
		dimension: cfg.Dimension,
		maxTries:  uint(tries),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		onCacheErr: func(error) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Model() string {
	return g.provider.Model()
}

func (g *Generator) Clean(raw string) string {
	return g.cleaner.Clean(raw)
}

// EmbedQuery embeds a chat query, consulting the query cache first.
func (g *Generator) EmbedQuery(ctx context.Context, raw string) ([]float32, error) {
	cleaned := g.cleaner.Clean(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty text", apperror.ErrNoEmbeddingAvailable)
	}

	key := g.cacheKey(cleaned)
	if g.cache != nil {
		vector, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.onCacheErr(err)
		} else if ok && (g.dimension <= 0 || len(vector) == g.dimension) {
			return vector, nil
		}
	}

	vector, err := g.embed(ctx, cleaned, TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, vector); err != nil {
			g.onCacheErr(err)
		}
	}
	return vector, nil
}

// EmbedDocument embeds notebook content for storage.
func (g *Generator) EmbedDocument(ctx context.Context, raw string) ([]float32, error) {
	cleaned := g.cleaner.Clean(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty text", apperror.ErrNoEmbeddingAvailable)
	}
	return g.embed(ctx, cleaned, TaskRetrievalDocument)
}

func (g *Generator) embed(ctx context.Context, cleaned string, taskType TaskType) ([]float32, error) {
	operation := func() ([]float32, error) {
		body, err := g.provider.Embed(ctx, []string{cleaned}, taskType)
		if err != nil {
			if errors.Is(err, apperror.ErrTransientExternalService) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		decoded, err := DecodeVectors(body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return decoded.Vectors[0], nil
	}

	vector, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(g.newBackOff()),
		backoff.WithMaxTries(g.maxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrNoEmbeddingAvailable, err)
	}

	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", apperror.ErrNoEmbeddingAvailable)
	}
	if g.dimension > 0 && len(vector) != g.dimension {
		return nil, fmt.Errorf("%w: expected vector size %d, got %d", apperror.ErrNoEmbeddingAvailable, g.dimension, len(vector))
	}
	return vector, nil
}

func (g *Generator) cacheKey(cleaned string) string {
	sum := sha256.Sum256([]byte(g.provider.Model() + "\x00" + cleaned))
	return "embedding:query:" + hex.EncodeToString(sum[:])
}
