package streamtest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/flowstream/pkg/stream"
)

// Chunks returns n message_chunk events numbered from zero.
func Chunks(n int) []stream.Event {
	evs := make([]stream.Event, n)
	for i := range evs {
		evs[i] = stream.Event{
			Type: stream.TypeMessageChunk,
			Data: map[string]any{"content": fmt.Sprintf("chunk-%d", i)},
		}
	}
	return evs
}

// Script is a Producer that yields a fixed list of events, then Err (or
// io.EOF when Err is nil). With Hang set it blocks after the list until its
// context is cancelled instead of ending.
type Script struct {
	Events []stream.Event
	Err    error
	Hang   bool

	// BeforePull, when set, runs at the start of each pull with the 1-based
	// pull number.
	BeforePull func(n int)

	// IgnoreCancel makes a hanging Script block until Release is called even
	// after its context is cancelled.
	IgnoreCancel bool

	mu       sync.Mutex
	pos      int
	pulls    atomic.Int32
	inFlight atomic.Int32
	maxPar   atomic.Int32
	closes   atomic.Int32
	unwound  atomic.Bool
	release  chan struct{}
	relOnce  sync.Once
}

// NewScript constructs a Script ending with io.EOF after evs.
func NewScript(evs ...stream.Event) *Script {
	return &Script{Events: evs}
}

// Next yields the next scripted event.
func (s *Script) Next(ctx context.Context) (stream.Event, error) {
	n := int(s.pulls.Add(1))
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxPar.Load()
		if cur <= prev || s.maxPar.CompareAndSwap(prev, cur) {
			break
		}
	}

	if s.BeforePull != nil {
		s.BeforePull(n)
	}

	s.mu.Lock()
	if s.pos < len(s.Events) {
		ev := s.Events[s.pos]
		s.pos++
		s.mu.Unlock()
		return ev, nil
	}
	s.mu.Unlock()

	if s.Hang {
		if s.IgnoreCancel {
			<-s.releaseCh()
		} else {
			<-ctx.Done()
		}
		s.unwound.Store(true)
		return stream.Event{}, ctx.Err()
	}

	if s.Err != nil {
		return stream.Event{}, s.Err
	}
	return stream.Event{}, io.EOF
}

// Close records the call.
func (s *Script) Close() error {
	s.closes.Add(1)
	return nil
}

// Release unblocks a Script with IgnoreCancel set.
func (s *Script) Release() {
	s.relOnce.Do(func() { close(s.releaseCh()) })
}

func (s *Script) releaseCh() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release == nil {
		s.release = make(chan struct{})
	}
	return s.release
}

// Pulls is the number of Next calls so far.
func (s *Script) Pulls() int {
	return int(s.pulls.Load())
}

// MaxInFlight is the highest number of concurrent Next calls observed.
func (s *Script) MaxInFlight() int {
	return int(s.maxPar.Load())
}

// Closes is the number of Close calls so far.
func (s *Script) Closes() int {
	return int(s.closes.Load())
}

// Unwound reports whether a hanging pull returned after being stopped.
func (s *Script) Unwound() bool {
	return s.unwound.Load()
}
