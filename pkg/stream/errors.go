package stream

import "errors"

var (
	// ErrTimeout is wrapped by the outcome error of a timed out session.
	ErrTimeout = errors.New("stream timeout")

	// ErrProducerEvent is the outcome error when a producer reports a fault
	// by emitting an error event instead of returning an error.
	ErrProducerEvent = errors.New("producer emitted an error event")

	// ErrShutdown is the cancel cause a server uses when it stops sessions
	// itself. Run reports such a session as FAILED and tells the caller why,
	// rather than treating it as a caller disconnect.
	ErrShutdown = errors.New("server shutting down")

	// ErrProducerPanic is wrapped by the outcome error when a producer
	// panics inside Next, Close or its emit work.
	ErrProducerPanic = errors.New("producer panicked")
)
