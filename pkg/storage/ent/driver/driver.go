// Package entdriver
package entdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/flowstream/pkg/storage"
)

const (
	sessionsTable = "sessions"

	colID         = "id"
	colThreadID   = "thread_id"
	colEngine     = "engine"
	colState      = "state"
	colEvents     = "events"
	colError      = "error"
	colTimeoutMs  = "timeout_ms"
	colStartedAt  = "started_at"
	colEndedAt    = "ended_at"
	colDurationMs = "duration_ms"
)

// sessionColumns is the select and insert order of a session row.
var sessionColumns = []string{
	colID, colThreadID, colEngine, colState, colEvents,
	colError, colTimeoutMs, colStartedAt, colEndedAt, colDurationMs,
}

// EntDriver provides storage operations over an ent SQL driver.
// It is database-agnostic and can be embedded by specific drivers.
type EntDriver struct {
	SQL *entsql.Driver
}

// DB exposes the underlying connection pool.
func (ed *EntDriver) DB() *sql.DB {
	return ed.SQL.DB()
}

// Put stores rec, replacing any record with the same session ID.
func (ed *EntDriver) Put(ctx context.Context, rec *storage.SessionRecord) error {
	if rec == nil {
		return errors.New("cannot store nil session record")
	}

	query, args := entsql.Dialect(ed.SQL.Dialect()).
		Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(
			rec.ID, rec.ThreadID, rec.Engine, rec.State, rec.Events,
			rec.Error, rec.TimeoutMs, rec.StartedAt.UTC(), rec.EndedAt.UTC(), rec.DurationMs,
		).
		OnConflict(
			entsql.ConflictColumns(colID),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := ed.SQL.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("could not store session %s: %w", rec.ID, err)
	}

	return nil
}

// Get retrieves a record by session ID.
func (ed *EntDriver) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	b := entsql.Dialect(ed.SQL.Dialect())
	query, args := b.Select(sessionColumns...).
		From(b.Table(sessionsTable)).
		Where(entsql.EQ(colID, id)).
		Query()

	records, err := ed.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}

	return records[0], nil
}

// List returns matching records newest first.
func (ed *EntDriver) List(ctx context.Context, opts storage.ListOptions) ([]*storage.SessionRecord, error) {
	b := entsql.Dialect(ed.SQL.Dialect())
	selector := b.Select(sessionColumns...).
		From(b.Table(sessionsTable))

	if opts.ThreadID != "" {
		selector.Where(entsql.EQ(colThreadID, opts.ThreadID))
	}
	if opts.State != "" {
		selector.Where(entsql.EQ(colState, opts.State))
	}

	selector.
		OrderBy(entsql.Desc(colStartedAt), entsql.Asc(colID)).
		Limit(opts.EffectiveLimit())
	if opts.Offset > 0 {
		selector.Offset(opts.Offset)
	}

	query, args := selector.Query()
	records, err := ed.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return records, nil
}

// Close closes the database.
func (ed *EntDriver) Close() error {
	return ed.SQL.Close()
}

func (ed *EntDriver) query(ctx context.Context, query string, args []any) ([]*storage.SessionRecord, error) {
	rows := &entsql.Rows{}
	if err := ed.SQL.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*storage.SessionRecord{}
	for rows.Next() {
		rec := &storage.SessionRecord{}
		err := rows.Scan(
			&rec.ID, &rec.ThreadID, &rec.Engine, &rec.State, &rec.Events,
			&rec.Error, &rec.TimeoutMs, &rec.StartedAt, &rec.EndedAt, &rec.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		rec.StartedAt = rec.StartedAt.UTC()
		rec.EndedAt = rec.EndedAt.UTC()
		records = append(records, rec)
	}

	return records, rows.Err()
}
