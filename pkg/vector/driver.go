// Package vector defines the vector index used to store and search chunk
// embeddings, plus helpers shared by its drivers.
package vector

import (
	"context"
	"time"
)

// Record is one indexed chunk.
type Record struct {
	// ID is the chunk identifier. See ChunkID.
	ID string `json:"id"`

	// DocumentID is the owning document. Deleting it removes the record.
	DocumentID string `json:"document_id"`

	// Index is the chunk's position within its document.
	Index int `json:"index"`

	// Text is the chunk content returned by searches.
	Text string `json:"text"`

	// Start and End are the chunk's code point offsets in the document.
	Start int `json:"start"`
	End   int `json:"end"`

	// Embedding is the chunk vector. Drivers may leave it empty in search
	// results.
	Embedding []float32 `json:"-"`

	// Metadata holds document attributes copied onto every chunk.
	Metadata map[string]string `json:"metadata,omitempty"`

	// IngestedAt orders records written by different upserts. Searches break
	// score ties by it, earliest first.
	IngestedAt time.Time `json:"ingested_at"`
}

// QueryResult is a record with its similarity to the query.
type QueryResult struct {
	Record

	// Score is the similarity to the query. Higher is more similar.
	Score float32 `json:"score"`
}

// Driver stores chunk embeddings and answers nearest-neighbour queries.
type Driver interface {
	// Upsert writes records in one batch, replacing records with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to k records ordered by descending score, ties
	// broken by insertion order. A k larger than the stored record count
	// returns every record.
	Search(ctx context.Context, query []float32, k int) ([]QueryResult, error)

	// Delete removes every record of the document. Deleting an unknown
	// document is not an error.
	Delete(ctx context.Context, documentID string) error

	// DeleteChunks removes the records with the given IDs. Unknown IDs are
	// ignored.
	DeleteChunks(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
