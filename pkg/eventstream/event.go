package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/flowstream/pkg/stream"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionEnded is emitted once a supervised stream session has
	// reached a terminal state.
	EventTypeSessionEnded = "flowstream.session.ended"

	// ServiceName identifies this process as the event source.
	ServiceName = "flowstream"
)

// SessionEndedEvent is a transport-neutral event payload for a finished session.
type SessionEndedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Session       SessionMeta `json:"session"`
}

// EventSource identifies where the session ran.
type EventSource struct {
	Service string `json:"service"`
	Engine  string `json:"engine,omitempty"`
}

// SessionMeta captures the session outcome.
type SessionMeta struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	State      string    `json:"state"`
	Events     int       `json:"events"`
	Error      string    `json:"error,omitempty"`
	TimeoutMs  int64     `json:"timeout_ms"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
	Delivered  bool      `json:"terminal_delivered"`
}

// NewSessionEndedEvent builds the event for a finished session.
func NewSessionEndedEvent(o *stream.Outcome, engine string) *SessionEndedEvent {
	meta := SessionMeta{
		ID:         o.SessionID,
		ThreadID:   o.ThreadID,
		State:      o.State.String(),
		Events:     o.Forwarded,
		TimeoutMs:  o.Timeout.Milliseconds(),
		StartedAt:  o.StartedAt.UTC(),
		EndedAt:    o.EndedAt.UTC(),
		DurationMs: o.Duration().Milliseconds(),
		Delivered:  o.TerminalDelivered,
	}
	if o.Err != nil {
		meta.Error = o.Err.Error()
	}

	return &SessionEndedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSessionEnded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        EventSource{Service: ServiceName, Engine: engine},
		Session:       meta,
	}
}

// Key is the partition key for the event. Events for one thread stay ordered.
func (e *SessionEndedEvent) Key() string {
	if e.Session.ThreadID != "" {
		return e.Session.ThreadID
	}
	return e.Session.ID
}
