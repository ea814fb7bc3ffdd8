// Package stream supervises the delivery of incrementally produced events to
// a remote caller. A Supervisor pulls from a Producer one event at a time,
// forwards each event to a Sink in production order, and ends every session
// in exactly one terminal State: completed, cancelled, timed out, or failed.
package stream

// Event types understood by the supervisor. Producers may emit any other type
// as a data event; error and done are terminal and reserved.
const (
	TypeMessageChunk   = "message_chunk"
	TypeToolCalls      = "tool_calls"
	TypeToolCallChunks = "tool_call_chunks"
	TypeToolCallResult = "tool_call_result"
	TypeInterrupt      = "interrupt"

	TypeError = "error"
	TypeDone  = "done"
)

// RoleAssistant is the role attached to supervisor-generated payloads.
const RoleAssistant = "assistant"

// Event is a discrete unit delivered to the caller. Data is opaque to the
// supervisor and is encoded by the Sink.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Terminal reports whether the event ends a session.
func (e Event) Terminal() bool {
	return e.Type == TypeError || e.Type == TypeDone
}

// ErrorPayload is the body of a terminal error event.
type ErrorPayload struct {
	ThreadID string `json:"thread_id"`
	Error    string `json:"error"`
	Role     string `json:"role"`
}

// DonePayload is the body of a terminal done event.
type DonePayload struct {
	ThreadID  string `json:"thread_id"`
	SessionID string `json:"session_id"`
}

// NewErrorEvent builds a terminal error event for a thread.
func NewErrorEvent(threadID, message string) Event {
	return Event{
		Type: TypeError,
		Data: ErrorPayload{
			ThreadID: threadID,
			Error:    message,
			Role:     RoleAssistant,
		},
	}
}

// NewDoneEvent builds a terminal done event for a session.
func NewDoneEvent(threadID, sessionID string) Event {
	return Event{
		Type: TypeDone,
		Data: DonePayload{
			ThreadID:  threadID,
			SessionID: sessionID,
		},
	}
}
