package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

type errFlusher interface {
	Flush() error
}

type flusher interface {
	Flush()
}

// Writer frames events onto an io.Writer as
//
//	event: <type>
//	data: <payload>
//
// followed by a blank line. Payloads are JSON encoded without HTML escaping,
// except strings and json.RawMessage which are written as-is. A map payload
// with an empty "content" key has that key removed before encoding.
//
// The destination is flushed after every event when it exposes Flush.
// Writer is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	dst io.Writer
	buf bytes.Buffer
}

// NewWriter returns a Writer framing events onto dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// WriteEvent encodes data and writes a single framed event.
func (w *Writer) WriteEvent(eventType string, data any) error {
	payload, err := encodeData(data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Reset()
	if eventType != "" {
		w.buf.WriteString("event: ")
		w.buf.WriteString(eventType)
		w.buf.WriteByte('\n')
	}
	for _, line := range strings.Split(payload, "\n") {
		w.buf.WriteString("data: ")
		w.buf.WriteString(line)
		w.buf.WriteByte('\n')
	}
	w.buf.WriteByte('\n')

	if _, err := w.dst.Write(w.buf.Bytes()); err != nil {
		return err
	}

	return w.flush()
}

func (w *Writer) flush() error {
	switch f := w.dst.(type) {
	case errFlusher:
		return f.Flush()
	case flusher:
		f.Flush()
	}
	return nil
}

func encodeData(data any) (string, error) {
	switch v := data.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	case map[string]any:
		data = withoutEmptyContent(v)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return "", err
	}

	// Encode appends a newline
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func withoutEmptyContent(m map[string]any) map[string]any {
	content, ok := m["content"]
	if !ok {
		return m
	}
	if s, isString := content.(string); !isString || s != "" {
		return m
	}

	out := make(map[string]any, len(m)-1)
	for k, v := range m {
		if k != "content" {
			out[k] = v
		}
	}
	return out
}
