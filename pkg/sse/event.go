// Package sse implements the Server-Sent Events framing used between the
// flowstream server, its clients, and OpenAI-compatible upstreams.
//
// Writer frames outgoing events on the server side. TeeReader parses an
// incoming stream while copying the raw bytes to a second writer, which the
// CLI uses to echo the wire format and the upstream producer uses to discard it.
//
// Wire format reference:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is a single SSE event, delimited by a blank line on the wire.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is every "data:" line of the event joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}
