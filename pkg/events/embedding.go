package events

import (
	"time"

	"github.com/google/uuid"
)

type SweepCounts struct {
	Processed int
	Succeeded int
	Failed    int
}

func NewEmbeddingSweepCompleted(jobID uuid.UUID, status string, counts SweepCounts, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeEmbeddingSweepCompleted,
		Data: map[string]interface{}{
			"job_id":    jobID.String(),
			"status":    status,
			"processed": counts.Processed,
			"succeeded": counts.Succeeded,
			"failed":    counts.Failed,
		},
		OccurredAt: at,
	}
}

func NewNotebookContentChanged(notebookID, userID uuid.UUID, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeNotebookContentChanged,
		Data: map[string]interface{}{
			"notebook_id": notebookID.String(),
			"user_id":     userID.String(),
		},
		OccurredAt: at,
	}
}
