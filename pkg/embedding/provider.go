package embedding

import "context"

// TaskType hints the provider about how the vector will be used. Only Gemini
// honours it; other providers ignore it.
type TaskType string

const (
	TaskRetrievalQuery    TaskType = "RETRIEVAL_QUERY"
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// EmbeddingProvider posts already-cleaned texts to an embedding service and
// returns the raw response body. Decoding is left to DecodeVectors so every
// provider goes through the same shape handling.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string, taskType TaskType) ([]byte, error)
	Model() string
}
