package dto

import (
	"time"

	"github.com/google/uuid"
)

// EmbedNotebookMessage is the Watermill payload of a single-notebook job.
type EmbedNotebookMessage struct {
	NotebookId uuid.UUID `json:"notebook_id"`
	JobId      uuid.UUID `json:"job_id"`
}

type EmbeddingJobResponse struct {
	Id         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	NotebookId *uuid.UUID `json:"notebook_id,omitempty"`
	Status     string     `json:"status"`
	Processed  int        `json:"processed"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	LastError  string     `json:"last_error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
