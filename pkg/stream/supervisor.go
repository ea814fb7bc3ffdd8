package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/flowstream/pkg/logger"
)

const (
	// DefaultTimeout bounds a session when no timeout is configured.
	DefaultTimeout = 1800 * time.Second

	// DefaultShutdownGrace is how long the supervisor waits for a producer to
	// unwind after the stop signal before closing it anyway.
	DefaultShutdownGrace = 5 * time.Second
)

// TimerFunc starts a one-shot timer. It returns the channel that fires when d
// has elapsed and a function that stops the timer.
type TimerFunc func(d time.Duration) (<-chan time.Time, func() bool)

func realTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// Config configures a Supervisor.
type Config struct {
	// Timeout is the maximum session duration. Zero or negative means
	// DefaultTimeout.
	Timeout time.Duration

	// ShutdownGrace bounds the wait for a producer to unwind after the stop
	// signal. Zero means DefaultShutdownGrace.
	ShutdownGrace time.Duration

	// Observer is notified of session lifecycle changes. Optional.
	Observer Observer

	// Timer overrides the deadline timer, mostly for tests. Optional.
	Timer TimerFunc

	// Logger is the provided slog logger. Optional.
	Logger *slog.Logger
}

// Supervisor runs stream sessions. It holds no per-session state, so a single
// Supervisor can run any number of sessions concurrently.
type Supervisor struct {
	timeout  atomic.Int64
	grace    time.Duration
	observer Observer
	timer    TimerFunc
	logger   *slog.Logger
}

// New creates a Supervisor from c, filling in defaults.
func New(c Config) *Supervisor {
	s := &Supervisor{
		grace:    c.ShutdownGrace,
		observer: c.Observer,
		timer:    c.Timer,
		logger:   c.Logger,
	}

	if s.grace <= 0 {
		s.grace = DefaultShutdownGrace
	}
	if s.observer == nil {
		s.observer = Observers{}
	}
	if s.timer == nil {
		s.timer = realTimer
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}

	s.SetTimeout(c.Timeout)
	return s
}

// SetTimeout changes the timeout applied to sessions started from now on.
// Running sessions keep the deadline they started with.
func (s *Supervisor) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	s.timeout.Store(int64(d))
}

// Timeout returns the timeout new sessions will get.
func (s *Supervisor) Timeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

// Run supervises one session: it pulls events from producer and forwards them
// to sink until the producer is exhausted, the caller disconnects, the
// deadline passes, or the producer fails. Caller disconnects are signalled by
// ctx being cancelled or by sink.Send returning an error.
//
// Run absorbs caller cancellation: a cancelled session is a normal outcome
// and its Outcome.Err is nil. Producer faults and timeouts are reported to
// the caller as a single terminal error event and recorded in Outcome.Err.
// A ctx cancelled with cause ErrShutdown is the server stopping, not the
// caller leaving: the session fails with ErrShutdown and the caller is told.
//
// In every terminal state the producer's context is cancelled, the in-flight
// pull is given ShutdownGrace to unwind, and producer.Close is called once.
func (s *Supervisor) Run(ctx context.Context, threadID string, producer Producer, sink Sink) *Outcome {
	sess := s.newSession(threadID)
	log := s.logger.With("session_id", sess.ID, "thread_id", threadID)

	log.Info("stream session started", "timeout", sess.Timeout)
	s.observer.SessionStarted(sess)

	pullCtx, stop := context.WithCancel(ctx)
	defer stop()

	p := startPuller(pullCtx, producer)

	deadline, stopTimer := s.timer(sess.Timeout)
	defer stopTimer()

	sess.setState(StateStreaming)
	state, cause := s.forward(ctx, sess, p, sink, deadline, log)

	// Stop signal goes out before the caller hears how the session ended.
	stop()
	outcome := s.finish(ctx, sess, state, cause, sink, log)

	select {
	case <-p.done:
	case <-time.After(s.grace):
		log.Warn("producer did not stop within grace period", "grace", s.grace)
	}
	if err := closeProducer(producer); err != nil {
		log.Warn("failed to close producer", "error", err)
	}

	outcome.EndedAt = time.Now()
	s.logOutcome(log, outcome)
	s.observer.SessionEnded(outcome)

	return outcome
}

func (s *Supervisor) newSession(threadID string) *Session {
	now := time.Now()
	timeout := s.Timeout()

	return &Session{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Timeout:   timeout,
		StartedAt: now,
		Deadline:  now.Add(timeout),
	}
}

// forward is the steady-state loop. Each iteration asks the puller for one
// event and races it against the deadline and the caller.
func (s *Supervisor) forward(ctx context.Context, sess *Session, p *puller, sink Sink, deadline <-chan time.Time, log *slog.Logger) (State, error) {
	for {
		// A fired deadline or a gone caller wins over a ready producer.
		select {
		case <-ctx.Done():
			return stopped(ctx)
		case <-deadline:
			return StateTimedOut, nil
		default:
		}

		select {
		case p.requests <- struct{}{}:
		case <-ctx.Done():
			return stopped(ctx)
		case <-deadline:
			return StateTimedOut, nil
		}

		select {
		case res := <-p.results:
			if errors.Is(res.err, io.EOF) {
				return StateCompleted, nil
			}
			if res.err != nil {
				if ctx.Err() != nil {
					// producer unwound because the caller left
					return stopped(ctx)
				}
				return StateFailed, res.err
			}

			switch res.ev.Type {
			case TypeDone:
				return StateCompleted, nil
			case TypeError:
				return StateFailed, &producerFault{ev: res.ev}
			}

			if err := sink.Send(ctx, res.ev); err != nil {
				log.Debug("sink rejected event, caller disconnected", "error", err)
				return StateCancelled, nil
			}
			sess.forwarded.Add(1)
			s.observer.EventForwarded(sess, res.ev)

		case <-ctx.Done():
			return stopped(ctx)
		case <-deadline:
			return StateTimedOut, nil
		}
	}
}

// finish records the terminal state and delivers the terminal event, if the
// state has one and the caller is still there.
func (s *Supervisor) finish(ctx context.Context, sess *Session, state State, cause error, sink Sink, log *slog.Logger) *Outcome {
	sess.setState(state)

	outcome := &Outcome{
		SessionID: sess.ID,
		ThreadID:  sess.ThreadID,
		State:     state,
		Forwarded: sess.Forwarded(),
		Timeout:   sess.Timeout,
		StartedAt: sess.StartedAt,
	}

	var terminal *Event
	switch state {
	case StateCompleted:
		ev := NewDoneEvent(sess.ThreadID, sess.ID)
		terminal = &ev

	case StateTimedOut:
		ev := NewErrorEvent(sess.ThreadID, TimeoutMessage(sess.Timeout))
		terminal = &ev
		outcome.Err = fmt.Errorf("%w after %s", ErrTimeout, sess.Timeout)

	case StateFailed:
		var fault *producerFault
		if errors.As(cause, &fault) {
			terminal = &fault.ev
		} else {
			ev := NewErrorEvent(sess.ThreadID, "Stream error: "+cause.Error())
			terminal = &ev
		}
		outcome.Err = cause
	}

	outcome.Terminal = terminal

	// The caller is still connected when the server is the one stopping.
	sendCtx := ctx
	if errors.Is(cause, ErrShutdown) {
		sendCtx = context.WithoutCancel(ctx)
	}
	if terminal == nil || sendCtx.Err() != nil {
		return outcome
	}

	if err := sink.Send(sendCtx, *terminal); err != nil {
		log.Debug("terminal event not delivered, caller disconnected",
			"event", terminal.Type,
			"error", err,
		)
		return outcome
	}
	outcome.TerminalDelivered = true

	return outcome
}

func (s *Supervisor) logOutcome(log *slog.Logger, o *Outcome) {
	attrs := []any{
		"state", o.State.String(),
		"events", o.Forwarded,
		"duration", o.Duration(),
	}

	switch o.State {
	case StateCompleted:
		log.Info("stream session completed", attrs...)
	case StateCancelled:
		log.Info("stream session cancelled by caller", attrs...)
	case StateTimedOut:
		log.Warn("stream session timed out", append(attrs, "timeout", o.Timeout)...)
	case StateFailed:
		if errors.Is(o.Err, ErrShutdown) {
			log.Warn("stream session stopped by server shutdown", attrs...)
			return
		}
		log.Error("stream session failed", append(attrs, "error", o.Err)...)
	}
}

// TimeoutMessage is the caller-facing text of a timeout error event.
func TimeoutMessage(timeout time.Duration) string {
	if timeout%time.Second == 0 {
		return fmt.Sprintf("Request timeout after %d seconds", int64(timeout/time.Second))
	}
	return fmt.Sprintf("Request timeout after %s", timeout)
}

// stopped classifies a done caller context.
func stopped(ctx context.Context) (State, error) {
	if errors.Is(context.Cause(ctx), ErrShutdown) {
		return StateFailed, ErrShutdown
	}
	return StateCancelled, nil
}

func closeProducer(producer Producer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return producer.Close()
}

// producerFault carries an error event emitted by the producer itself.
type producerFault struct {
	ev Event
}

func (f *producerFault) Error() string {
	if msg := errorMessage(f.ev.Data); msg != "" {
		return msg
	}
	return ErrProducerEvent.Error()
}

func errorMessage(data any) string {
	switch d := data.(type) {
	case ErrorPayload:
		return d.Error
	case map[string]any:
		if msg, ok := d["error"].(string); ok {
			return msg
		}
	case string:
		return d
	}
	return ""
}

func (f *producerFault) Unwrap() error {
	return ErrProducerEvent
}
