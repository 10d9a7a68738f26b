package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/ragline/api/search"
	"github.com/papercomputeco/ragline/pkg/rag"
)

var (
	searchToolName    = "search"
	searchDescription = "Search the ingested documents using semantic search. Returns the most relevant chunks for the query text, highest score first."

	askToolName    = "ask"
	askDescription = "Answer a question from the ingested documents. Retrieves the most relevant chunks and has the language model answer from them."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant chunks"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: the configured top_k)"`
}

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve as context"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Question string             `json:"question"`
	Answer   string             `json:"answer"`
	Sources  []apisearch.Result `json:"sources"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, apisearch.Output, error) {
	output, err := apisearch.Search(ctx, s.config.Orchestrator, input.Query, input.TopK, s.config.Logger)
	if err != nil {
		s.config.Logger.Error("MCP search failed", "err", err)
		return toolError("Search failed: %v", err), apisearch.Output{}, nil
	}

	return jsonResult(s, output), *output, nil
}

// handleAsk processes an ask request.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	s.config.Logger.Debug("MCP ask request", "top_k", input.TopK)

	answer, err := s.config.Orchestrator.Ask(ctx, input.Question, rag.WithTopK(input.TopK))
	if err != nil {
		s.config.Logger.Error("MCP ask failed", "err", err)
		return toolError("Ask failed: %v", err), AskOutput{}, nil
	}

	output := AskOutput{
		Question: answer.Question,
		Answer:   answer.Text,
		Sources:  apisearch.NewOutput(answer.Question, answer.Retrieval).Results,
	}
	return jsonResult(s, output), output, nil
}

func toolError(format string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, err)},
		},
	}
}

// jsonResult serializes the structured output into a TextContent block for
// clients that do not read structured content.
func jsonResult(s *Server, output any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "err", err)
		return toolError("Failed to serialize results: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}
