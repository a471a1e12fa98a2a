package unitofwork

import (
	"context"

	"ai-notebook-companion/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	NotebookRepository() contract.NotebookRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	EmbeddingJobRepository() contract.EmbeddingJobRepository
}
