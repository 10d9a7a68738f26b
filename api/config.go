// Package api provides the HTTP API for ingesting documents, searching the
// vector index and asking questions.
package api

import (
	"github.com/papercomputeco/ragline/pkg/ingest"
	"github.com/papercomputeco/ragline/pkg/rag"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Pipeline ingests and manages documents. Document routes answer 503
	// when nil.
	Pipeline *ingest.Pipeline

	// Orchestrator answers questions. Search, ask and the MCP tools answer
	// 503 when nil.
	Orchestrator *rag.Orchestrator
}
