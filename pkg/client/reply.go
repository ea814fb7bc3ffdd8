package client

import (
	"encoding/json"
	"strings"

	"github.com/papercomputeco/flowstream/pkg/sse"
	"github.com/papercomputeco/flowstream/pkg/stream"
	"github.com/papercomputeco/flowstream/pkg/workflow"
)

// Reply accumulates a streamed chat response.
type Reply struct {
	ThreadID  string
	SessionID string

	// Error is the message of a terminal error event.
	Error string

	// Done is set when a terminal done event arrives.
	Done bool

	// Interrupt holds the options of a plan review interrupt, if any.
	Interrupt []workflow.InterruptOption

	// OnChunk is called with each content fragment as it arrives.
	OnChunk func(content string)

	content strings.Builder
	events  int
}

// Content is the concatenated message_chunk content.
func (r *Reply) Content() string {
	return r.content.String()
}

// Events counts the events handled, terminal events included.
func (r *Reply) Events() int {
	return r.events
}

// Handle is a StreamChat handler.
func (r *Reply) Handle(ev sse.Event) error {
	r.events++

	switch ev.Type {
	case stream.TypeError:
		var p stream.ErrorPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
			r.Error = ev.Data
			return nil
		}
		r.Error = p.Error
		r.setThread(p.ThreadID)
	case stream.TypeDone:
		var p stream.DonePayload
		_ = json.Unmarshal([]byte(ev.Data), &p)
		r.Done = true
		r.setThread(p.ThreadID)
		r.SessionID = p.SessionID
	default:
		var p workflow.MessagePayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
			return nil
		}
		r.setThread(p.ThreadID)
		if ev.Type == stream.TypeInterrupt {
			r.Interrupt = p.Options
		}
		if ev.Type == stream.TypeMessageChunk && p.Content != "" {
			r.content.WriteString(p.Content)
			if r.OnChunk != nil {
				r.OnChunk(p.Content)
			}
		}
	}
	return nil
}

func (r *Reply) setThread(id string) {
	if id != "" {
		r.ThreadID = id
	}
}
