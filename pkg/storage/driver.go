// Package storage defines the document registry: the record of every ingested
// document, independent of the vector index holding its chunks.
package storage

import (
	"context"
	"time"
)

// Document is the registry record for an ingested document.
type Document struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Category   string            `json:"category"`
	Source     string            `json:"source,omitempty"`
	ChunkCount int               `json:"chunk_count"`
	Characters int               `json:"characters"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`

	// Version names the ingestion that wrote the document's current chunks.
	// Re-ingesting the same ID writes a new version before the old one is
	// removed. Empty for records written before versioning.
	Version string `json:"version,omitempty"`
}

// Driver persists document records.
type Driver interface {
	// Put inserts the document, replacing any record with the same ID.
	Put(ctx context.Context, doc *Document) error

	// Get retrieves a document by ID. Returns a NotFoundError if it does not exist.
	Get(ctx context.Context, id string) (*Document, error)

	// List returns all documents, oldest first.
	List(ctx context.Context) ([]*Document, error)

	// Delete removes a document by ID. Returns a NotFoundError if it does not exist.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases any resources.
	Close() error
}
