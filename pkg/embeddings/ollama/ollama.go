// Package ollama implements embeddings.Embedder on Ollama's /api/embed endpoint.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/ragline/pkg/embeddings"
	"github.com/papercomputeco/ragline/pkg/llm"
)

const (
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultBaseURL        = "http://localhost:11434"
)

// Embedder embeds one text per /api/embed call.
type Embedder struct {
	url        string
	model      string
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the Ollama embedder. Empty fields
// take the package defaults.
type EmbedderConfig struct {
	BaseURL string
	Model   string
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		url:        baseURL + "/api/embed",
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

// Embed converts text into a vector embedding. Every failure wraps
// embeddings.ErrEmbedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := llm.PostJSON(ctx, e.httpClient, "ollama", e.url, nil, embedRequest{Model: e.model, Input: text}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbedding, err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: ollama returned no embeddings for model %s", embeddings.ErrEmbedding, e.model)
	}
	return resp.Embeddings[0], nil
}

// Close releases idle connections.
func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
