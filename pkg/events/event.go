package events

import "time"

const SubjectPrefix = "events."

// Event types exchanged on the bus.
const (
	// Published here when a maintenance sweep finishes.
	TypeEmbeddingSweepCompleted = "EMBEDDING_SWEEP_COMPLETED"
	// Published by the notebook service whenever a notebook's content is saved.
	TypeNotebookContentChanged = "NOTEBOOK_CONTENT_CHANGED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "NOTEBOOK_CONTENT_CHANGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Subject is the NATS subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// StringField reads a string value from the payload.
func StringField(e Event, key string) (string, bool) {
	v, ok := e.Payload()[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
