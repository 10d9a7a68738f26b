// Package inmemory provides a process-local vector.Driver using exact cosine
// similarity. It is meant for tests and small corpora.
package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/papercomputeco/ragline/pkg/vector"
)

// Driver implements vector.Driver over a slice kept in insertion order.
type Driver struct {
	mu      sync.RWMutex
	records []vector.Record
	byID    map[string]int
	dims    int
	logger  *slog.Logger
}

// NewDriver creates an empty in-memory index.
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{
		byID:   make(map[string]int),
		logger: logger,
	}
}

// Upsert stores records. A record whose ID is already present is replaced in
// place and keeps its original insertion position.
func (d *Driver) Upsert(_ context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dims := d.dims
	for _, r := range records {
		if dims == 0 {
			dims = len(r.Embedding)
		}
		if len(r.Embedding) != dims {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, r.ID, len(r.Embedding), dims)
		}
	}
	d.dims = dims

	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		if i, ok := d.byID[r.ID]; ok {
			d.records[i] = r
			continue
		}
		d.byID[r.ID] = len(d.records)
		d.records = append(d.records, r)
	}

	d.logger.Debug("upserted records", "count", len(records), "total", len(d.records))
	return nil
}

// Search scores every record against query.
func (d *Driver) Search(_ context.Context, query []float32, k int) ([]vector.QueryResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.dims != 0 && len(query) != d.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(query), d.dims)
	}

	results := make([]vector.QueryResult, 0, len(d.records))
	for _, r := range d.records {
		results = append(results, vector.QueryResult{
			Record: r,
			Score:  vector.Cosine(query, r.Embedding),
		})
	}

	return vector.Top(results, k), nil
}

// Delete removes every record of documentID.
func (d *Driver) Delete(_ context.Context, documentID string) error {
	removed := d.remove(func(r vector.Record) bool { return r.DocumentID == documentID })
	d.logger.Debug("deleted document records", "document_id", documentID, "count", removed)
	return nil
}

// DeleteChunks removes the records with the given IDs.
func (d *Driver) DeleteChunks(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	removed := d.remove(func(r vector.Record) bool {
		_, ok := drop[r.ID]
		return ok
	})
	d.logger.Debug("deleted chunk records", "count", removed)
	return nil
}

// remove drops every record matching fn, preserving the order of the rest.
func (d *Driver) remove(fn func(vector.Record) bool) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.records[:0]
	removed := 0
	for _, r := range d.records {
		if fn(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	d.records = kept

	d.byID = make(map[string]int, len(d.records))
	for i, r := range d.records {
		d.byID[r.ID] = i
	}
	if len(d.records) == 0 {
		d.dims = 0
	}
	return removed
}

// Len returns the number of stored records.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
