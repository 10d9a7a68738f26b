// Package search provides shared search types and logic for semantic search
// over indexed chunks. It is used by both the REST API endpoint and the MCP
// server tool.
package search

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/ragline/pkg/rag"
	"github.com/papercomputeco/ragline/pkg/vector"
)

// Result represents a single search result.
type Result struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title,omitempty"`
	Category   string            `json:"category,omitempty"`
	Index      int               `json:"index"`
	Score      float32           `json:"score"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Output represents the output of a search operation.
type Output struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Search runs the retrieve stage for query. A topK of zero uses the
// orchestrator's default.
func Search(ctx context.Context, o *rag.Orchestrator, query string, topK int, logger *slog.Logger) (*Output, error) {
	var opts []rag.AskOption
	if topK > 0 {
		opts = append(opts, rag.WithTopK(topK))
	}

	logger.Debug("search request", "query", query, "top_k", topK)

	results, err := o.Retrieve(ctx, query, opts...)
	if err != nil {
		return nil, err
	}

	return NewOutput(query, results), nil
}

// NewOutput converts ranked query results into an Output.
func NewOutput(query string, results []vector.QueryResult) *Output {
	out := &Output{
		Query:   query,
		Results: make([]Result, 0, len(results)),
	}
	for _, r := range results {
		out.Results = append(out.Results, Result{
			ChunkID:    r.ID,
			DocumentID: r.DocumentID,
			Title:      r.Metadata["title"],
			Category:   r.Metadata["category"],
			Index:      r.Index,
			Score:      r.Score,
			Text:       r.Text,
			Metadata:   r.Metadata,
		})
	}
	out.Count = len(out.Results)
	return out
}
