// Package inmemory provides a map-backed storage.Driver.
package inmemory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/ragline/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards docs
	mu sync.RWMutex

	// docs maps document ID to a private copy of its record
	docs map[string]*storage.Document
}

// NewDriver creates a new in-memory registry.
func NewDriver() *Driver {
	return &Driver{
		docs: make(map[string]*storage.Document),
	}
}

// Put stores a copy of doc, replacing any existing record with the same ID.
func (d *Driver) Put(_ context.Context, doc *storage.Document) error {
	if doc == nil {
		return errors.New("cannot store nil document")
	}
	if doc.ID == "" {
		return errors.New("document ID is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.docs[doc.ID] = clone(doc)
	return nil
}

// Get retrieves a document by ID.
func (d *Driver) Get(_ context.Context, id string) (*storage.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.docs[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	return clone(doc), nil
}

// List returns every document ordered by creation time, then ID.
func (d *Driver) List(_ context.Context) ([]*storage.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	docs := make([]*storage.Document, 0, len(d.docs))
	for _, doc := range d.docs {
		docs = append(docs, clone(doc))
	}

	slices.SortFunc(docs, func(a, b *storage.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	return docs, nil
}

// Delete removes a document by ID.
func (d *Driver) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.docs[id]; !ok {
		return storage.NotFoundError{ID: id}
	}
	delete(d.docs, id)
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

func clone(doc *storage.Document) *storage.Document {
	c := *doc
	if doc.Metadata != nil {
		c.Metadata = maps.Clone(doc.Metadata)
	}
	return &c
}

var _ storage.Driver = (*Driver)(nil)
