package stream

import (
	"context"
	"io"
	"sync"
)

// Producer is a lazy, pull-based sequence of events.
//
// Next blocks until the next event is ready and returns io.EOF once the
// sequence is exhausted. Next must observe ctx and return promptly after it is
// cancelled; that cancellation is the only stop signal a producer receives.
//
// Close releases the producer's resources. The supervisor calls it exactly
// once, after it has stopped pulling.
type Producer interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// ProducerFunc adapts a pull function with no resources to release.
type ProducerFunc func(ctx context.Context) (Event, error)

// Next calls f.
func (f ProducerFunc) Next(ctx context.Context) (Event, error) {
	return f(ctx)
}

// Close is a no-op.
func (f ProducerFunc) Close() error {
	return nil
}

// EmitFunc is push-style work. emit blocks until the consumer has pulled the
// event and returns an error once the work has been asked to stop.
type EmitFunc func(ctx context.Context, emit func(Event) error) error

// FromEmitter turns push-style work into a Producer. The work runs in its own
// goroutine, started on the first pull, and hands events over one at a time
// through an unbuffered channel. Close cancels the work and waits for it to
// return.
func FromEmitter(work EmitFunc) Producer {
	ctx, cancel := context.WithCancel(context.Background())
	return &emitter{
		work:   work,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event),
		done:   make(chan struct{}),
	}
}

type emitter struct {
	work   EmitFunc
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	started   bool
	events    chan Event
	done      chan struct{}
	err       error
}

func (e *emitter) start() {
	e.startOnce.Do(func() {
		e.started = true
		go func() {
			defer close(e.done)
			defer func() {
				if r := recover(); r != nil {
					e.err = panicError(r)
				}
			}()
			e.err = e.work(e.ctx, e.emit)
		}()
	})
}

func (e *emitter) emit(ev Event) error {
	select {
	case e.events <- ev:
		return nil
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

func (e *emitter) Next(ctx context.Context) (Event, error) {
	e.start()

	select {
	case ev := <-e.events:
		return ev, nil
	case <-e.done:
		if e.err != nil {
			return Event{}, e.err
		}
		return Event{}, io.EOF
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-e.ctx.Done():
		return Event{}, e.ctx.Err()
	}
}

func (e *emitter) Close() error {
	e.cancel()
	e.startOnce.Do(func() {})
	if e.started {
		<-e.done
	}
	return nil
}
