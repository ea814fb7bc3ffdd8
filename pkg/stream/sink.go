package stream

import (
	"context"
	"encoding/json"
	"io"

	"github.com/papercomputeco/flowstream/pkg/sse"
)

// Sink delivers events to the caller. A Send error means the caller's
// connection is gone; the supervisor treats it as a caller disconnect.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// SSESink frames events as Server-Sent Events onto w.
type SSESink struct {
	w *sse.Writer
}

// NewSSESink returns a Sink writing SSE frames to w.
func NewSSESink(w io.Writer) *SSESink {
	return &SSESink{w: sse.NewWriter(w)}
}

// Send writes ev unless ctx is already done.
func (s *SSESink) Send(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.w.WriteEvent(ev.Type, ev.Data)
}

// TextSink writes only the text of message chunks, one unnamed data frame per
// chunk. An error event becomes a "Error: <message>" frame and every other
// event is dropped.
type TextSink struct {
	w *sse.Writer
}

// NewTextSink returns a TextSink writing to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: sse.NewWriter(w)}
}

// Send writes the text carried by ev, if any.
func (s *TextSink) Send(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch ev.Type {
	case TypeMessageChunk:
		text, ok := chunkText(ev.Data)
		if !ok || text == "" {
			return nil
		}
		return s.w.WriteEvent("", text)
	case TypeError:
		msg := errorMessage(ev.Data)
		if msg == "" {
			msg = ErrProducerEvent.Error()
		}
		return s.w.WriteEvent("", "Error: "+msg)
	default:
		return nil
	}
}

func chunkText(data any) (string, bool) {
	switch d := data.(type) {
	case string:
		return d, true
	case map[string]any:
		text, ok := d["content"].(string)
		return text, ok
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", false
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}
	return body.Content, true
}
