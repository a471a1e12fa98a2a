package entity

import (
	"time"

	"github.com/google/uuid"
)

type EmbeddingJobKind string

const (
	EmbeddingJobKindSingle EmbeddingJobKind = "single"
	EmbeddingJobKindSweep  EmbeddingJobKind = "sweep"
)

type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending   EmbeddingJobStatus = "pending"
	EmbeddingJobStatusRunning   EmbeddingJobStatus = "running"
	EmbeddingJobStatusCompleted EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed    EmbeddingJobStatus = "failed"
)

type EmbeddingJob struct {
	Id         uuid.UUID
	Kind       EmbeddingJobKind
	NotebookId *uuid.UUID
	UserId     *uuid.UUID // requester; nil for system sweeps
	Status     EmbeddingJobStatus
	Processed  int
	Succeeded  int
	Failed     int
	LastError  string
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
