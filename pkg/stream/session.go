package stream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Session is one in-flight delivery of events to a caller. Its deadline and
// state belong to the supervisor goroutine running it; observers may read
// State and Forwarded concurrently.
type Session struct {
	ID        string
	ThreadID  string
	Timeout   time.Duration
	StartedAt time.Time
	Deadline  time.Time

	state     atomic.Int32
	forwarded atomic.Int64
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Forwarded returns how many data events have reached the caller.
func (s *Session) Forwarded() int {
	return int(s.forwarded.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Outcome is the result of a supervised session.
type Outcome struct {
	SessionID string
	ThreadID  string
	State     State

	// Forwarded counts data events delivered, excluding the terminal event.
	Forwarded int

	Timeout   time.Duration
	StartedAt time.Time
	EndedAt   time.Time

	// Err is nil for completed and cancelled sessions.
	Err error

	// Terminal is the error or done event that ended the session, nil when
	// the caller cancelled.
	Terminal *Event

	// TerminalDelivered is false when the caller was gone before Terminal
	// could be sent.
	TerminalDelivered bool
}

// Duration is the wall-clock length of the session.
func (o *Outcome) Duration() time.Duration {
	if o.EndedAt.IsZero() {
		return time.Since(o.StartedAt)
	}
	return o.EndedAt.Sub(o.StartedAt)
}

type pullResult struct {
	ev  Event
	err error
}

// puller owns the producer's goroutine. It pulls exactly one event per
// request so nothing is pulled ahead of delivery.
type puller struct {
	requests chan struct{}
	results  chan pullResult
	done     chan struct{}
}

func startPuller(ctx context.Context, producer Producer) *puller {
	p := &puller{
		requests: make(chan struct{}),
		results:  make(chan pullResult),
		done:     make(chan struct{}),
	}
	go p.run(ctx, producer)
	return p
}

func (p *puller) run(ctx context.Context, producer Producer) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.requests:
		}

		res := pull(ctx, producer)

		select {
		case p.results <- res:
		case <-ctx.Done():
			return
		}
	}
}

// pull calls Next once. A panic in the producer becomes a pull error so it
// fails only its own session.
func pull(ctx context.Context, producer Producer) (res pullResult) {
	defer func() {
		if r := recover(); r != nil {
			res = pullResult{err: panicError(r)}
		}
	}()

	ev, err := producer.Next(ctx)
	return pullResult{ev: ev, err: err}
}

func panicError(r any) error {
	return fmt.Errorf("%w: %v", ErrProducerPanic, r)
}
