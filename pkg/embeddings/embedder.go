// Package embeddings defines the Embedder used to map chunks and questions
// into the same vector space.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding is returned by embedders when a provider call fails.
var ErrEmbedding = errors.New("embedding failed")

// Embedder provides text embedding capabilities. Ingestion and retrieval must
// share one Embedder configuration.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
