package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineBuffer     = 1024 * 1024
)

// TeeReader parses SSE events from a source while writing every raw line,
// comments and blank separators included, to a destination writer. Next
// returns the parsed Event; the destination sees the stream byte for byte.
type TeeReader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	current *Event
	pending bool
}

// NewTeeReader returns a TeeReader reading from src and copying to dest.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initialLineBuffer), maxLineBuffer)

	return &TeeReader{
		scanner: scanner,
		dest:    dest,
		current: &Event{},
	}
}

// NewReader returns a TeeReader that discards the raw bytes.
func NewReader(src io.Reader) *TeeReader {
	return NewTeeReader(src, io.Discard)
}

// Next blocks until a complete event is available and returns it.
// It returns nil, nil once the source is exhausted. A trailing event that was
// not terminated by a blank line is still returned.
func (r *TeeReader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Scanner strips the newline, put it back for the copy.
		if _, err := io.WriteString(r.dest, line+"\n"); err != nil {
			return nil, err
		}

		if line == "" {
			if !r.pending {
				// keep-alive or leading blank line
				continue
			}
			return r.take(), nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		r.field(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if r.pending {
		return r.take(), nil
	}

	return nil, nil
}

// field accumulates one "name:value" line into the current event. A single
// space after the colon is stripped; a line without a colon is a field name
// with an empty value.
func (r *TeeReader) field(line string) {
	name, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch name {
	case "data":
		if r.pending && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.pending = true
	case "event":
		r.current.Type = value
		r.pending = true
	case "id":
		r.current.ID = value
		r.pending = true
	}
}

func (r *TeeReader) take() *Event {
	ev := r.current
	r.current = &Event{}
	r.pending = false
	return ev
}
