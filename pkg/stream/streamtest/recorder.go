// Package streamtest provides sinks, producers and timers for testing code
// built on the stream supervisor.
package streamtest

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/flowstream/pkg/stream"
)

// ErrDisconnected is returned by a Recorder once it has been disconnected.
var ErrDisconnected = errors.New("caller disconnected")

// Recorder is a stream.Sink that records every event it accepts.
//
// Recorder is safe under concurrent Send calls.
type Recorder struct {
	mu           sync.Mutex
	events       []stream.Event
	disconnected bool

	// FailAfter, when positive, makes the Recorder disconnect once it has
	// accepted that many events.
	FailAfter int

	// OnSend, when set, runs after an event has been accepted.
	OnSend func(stream.Event)
}

// NewRecorder constructs a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records ev unless the Recorder is disconnected or ctx is done.
func (r *Recorder) Send(ctx context.Context, ev stream.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.disconnected || (r.FailAfter > 0 && len(r.events) >= r.FailAfter) {
		r.disconnected = true
		r.mu.Unlock()
		return ErrDisconnected
	}
	r.events = append(r.events, ev)
	onSend := r.OnSend
	r.mu.Unlock()

	if onSend != nil {
		onSend(ev)
	}
	return nil
}

// Disconnect makes every later Send fail.
func (r *Recorder) Disconnect() {
	r.mu.Lock()
	r.disconnected = true
	r.mu.Unlock()
}

// Events returns a snapshot copy of recorded events.
func (r *Recorder) Events() []stream.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]stream.Event, len(r.events))
	copy(cp, r.events)
	return cp
}

// DataEvents returns the recorded events that are not terminal.
func (r *Recorder) DataEvents() []stream.Event {
	evs := r.Events()
	out := make([]stream.Event, 0, len(evs))
	for _, ev := range evs {
		if !ev.Terminal() {
			out = append(out, ev)
		}
	}
	return out
}

// Terminals returns the recorded error and done events.
func (r *Recorder) Terminals() []stream.Event {
	evs := r.Events()
	out := make([]stream.Event, 0, 1)
	for _, ev := range evs {
		if ev.Terminal() {
			out = append(out, ev)
		}
	}
	return out
}
