package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-notebook-companion/pkg/events"
)

const StreamName = "EVENTS"

// envelope is the wire format of every event on the bus.
type envelope struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func encodeEvent(event events.Event) ([]byte, error) {
	return json.Marshal(envelope{
		Type:       event.EventType(),
		OccurredAt: event.Timestamp(),
		Data:       event.Payload(),
	})
}

// decodeEvent accepts the envelope and, for producers that publish a bare
// payload object, falls back to deriving the type from the subject.
func decodeEvent(subject string, raw []byte) (events.BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return events.BaseEvent{}, fmt.Errorf("decode event on %s: %w", subject, err)
	}
	if env.Type != "" && env.Data != nil {
		occurred := env.OccurredAt
		if occurred.IsZero() {
			occurred = time.Now()
		}
		return events.BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: occurred}, nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return events.BaseEvent{}, fmt.Errorf("decode event on %s: %w", subject, err)
	}
	return events.BaseEvent{
		Type:       strings.TrimPrefix(subject, events.SubjectPrefix),
		Data:       payload,
		OccurredAt: time.Now(),
	}, nil
}
