// Package storage records the outcome of every supervised stream session.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/flowstream/pkg/stream"
)

// Driver defines the interface for persisting and retrieving session records.
type Driver interface {
	// Put stores a record, replacing any record with the same ID.
	Put(ctx context.Context, rec *SessionRecord) error

	// Get retrieves a record by session ID. Unknown IDs return NotFoundError.
	Get(ctx context.Context, id string) (*SessionRecord, error)

	// List returns records newest first.
	List(ctx context.Context, opts ListOptions) ([]*SessionRecord, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ListOptions filters and pages List results. Zero values mean no filter.
type ListOptions struct {
	ThreadID string
	State    string
	Limit    int
	Offset   int
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// EffectiveLimit is the limit List applies.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 || o.Limit > DefaultListLimit {
		return DefaultListLimit
	}
	return o.Limit
}

// SessionRecord is the persisted outcome of one stream session.
type SessionRecord struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	Engine     string    `json:"engine"`
	State      string    `json:"state"`
	Events     int       `json:"events"`
	Error      string    `json:"error,omitempty"`
	TimeoutMs  int64     `json:"timeout_ms"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
}

// RecordFromOutcome converts a supervisor outcome to a record.
func RecordFromOutcome(o *stream.Outcome, engine string) *SessionRecord {
	rec := &SessionRecord{
		ID:         o.SessionID,
		ThreadID:   o.ThreadID,
		Engine:     engine,
		State:      o.State.String(),
		Events:     o.Forwarded,
		TimeoutMs:  o.Timeout.Milliseconds(),
		StartedAt:  o.StartedAt.UTC(),
		EndedAt:    o.EndedAt.UTC(),
		DurationMs: o.Duration().Milliseconds(),
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}

// Matches reports whether rec passes the filters in opts.
func (o ListOptions) Matches(rec *SessionRecord) bool {
	if o.ThreadID != "" && rec.ThreadID != o.ThreadID {
		return false
	}
	if o.State != "" && rec.State != o.State {
		return false
	}
	return true
}
