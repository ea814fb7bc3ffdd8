// Package worker provides an asynchronous worker pool that records finished
// stream sessions using the provided storage.Driver and announces them on the
// provided eventstream.Publisher.
//
// The pool keeps storage and publishing off the streaming hot path so a slow
// database or broker never delays the events a client is waiting for.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/flowstream/pkg/eventstream"
	"github.com/papercomputeco/flowstream/pkg/logger"
	"github.com/papercomputeco/flowstream/pkg/storage"
	"github.com/papercomputeco/flowstream/pkg/stream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 10 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Engine  string
	Outcome *stream.Outcome
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the optional storage backend for session records.
	Driver storage.Driver

	// Publisher is the optional event stream for session ended events.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the storage and publish calls of a single job.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes session jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Observer returns a stream.Observer that enqueues every finished session
// under the given engine name.
func (p *Pool) Observer(engine string) stream.Observer {
	return stream.OnEnded(func(o *stream.Outcome) {
		p.Enqueue(Job{Engine: engine, Outcome: o})
	})
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Outcome == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed",
			"session_id", job.Outcome.SessionID,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"session_id", job.Outcome.SessionID,
			"state", job.Outcome.State.String(),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"session_id", job.Outcome.SessionID,
			"thread_id", job.Outcome.ThreadID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob stores the session record and publishes its event. A storage
// failure does not stop the event from being published.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := p.storeSession(ctx, job); err != nil {
		p.logger.Error("session storage failed",
			"session_id", job.Outcome.SessionID,
			"error", err,
		)
	}

	if err := p.publishSession(ctx, job); err != nil {
		p.logger.Error("session event publish failed",
			"session_id", job.Outcome.SessionID,
			"error", err,
		)
	}
}

func (p *Pool) storeSession(ctx context.Context, job Job) error {
	if p.config.Driver == nil {
		return nil
	}

	rec := storage.RecordFromOutcome(job.Outcome, job.Engine)
	if err := p.config.Driver.Put(ctx, rec); err != nil {
		return fmt.Errorf("storing session record: %w", err)
	}

	p.logger.Debug("session stored",
		"session_id", rec.ID,
		"state", rec.State,
		"events", rec.Events,
	)
	return nil
}

func (p *Pool) publishSession(ctx context.Context, job Job) error {
	if p.config.Publisher == nil {
		return nil
	}

	event := eventstream.NewSessionEndedEvent(job.Outcome, job.Engine)
	if err := p.config.Publisher.PublishSessionEnded(ctx, event); err != nil {
		return fmt.Errorf("publishing %s: %w", event.EventType, err)
	}

	p.logger.Debug("session event published",
		"session_id", job.Outcome.SessionID,
		"event_id", event.EventID,
	)
	return nil
}
