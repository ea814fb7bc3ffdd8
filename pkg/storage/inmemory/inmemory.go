// Package inmemory provides a storage driver that keeps records in a map.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/flowstream/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	mu      sync.RWMutex
	records map[string]*storage.SessionRecord
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*storage.SessionRecord),
	}
}

// Put stores a copy of rec.
func (d *Driver) Put(_ context.Context, rec *storage.SessionRecord) error {
	if rec == nil {
		return errors.New("cannot store nil session record")
	}

	cp := *rec

	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[rec.ID] = &cp

	return nil
}

// Get retrieves a record by session ID.
func (d *Driver) Get(_ context.Context, id string) (*storage.SessionRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	cp := *rec
	return &cp, nil
}

// List returns matching records newest first.
func (d *Driver) List(_ context.Context, opts storage.ListOptions) ([]*storage.SessionRecord, error) {
	d.mu.RLock()
	matched := make([]*storage.SessionRecord, 0, len(d.records))
	for _, rec := range d.records {
		if opts.Matches(rec) {
			cp := *rec
			matched = append(matched, &cp)
		}
	}
	d.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartedAt.Equal(matched[j].StartedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	if opts.Offset >= len(matched) {
		return []*storage.SessionRecord{}, nil
	}
	matched = matched[max(opts.Offset, 0):]

	if limit := opts.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
