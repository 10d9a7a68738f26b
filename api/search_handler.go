package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/ragline/api/search"
	"github.com/papercomputeco/ragline/pkg/rag"
)

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, defaults to the configured retrieval.top_k): number of results to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	if s.config.Orchestrator == nil {
		return unavailable(c, "search is not configured: embedder and vector store are required")
	}

	query := c.Query("query")
	if query == "" {
		return badRequest(c, "query parameter is required")
	}

	topK := 0
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "top_k must be a positive integer")
		}
		topK = parsed
	}

	output, err := apisearch.Search(c.Context(), s.config.Orchestrator, query, topK, s.logger)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(output)
}

// handleAsk handles POST /v1/ask.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	if s.config.Orchestrator == nil {
		return unavailable(c, "question answering is not configured")
	}

	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.TopK < 0 {
		return badRequest(c, "top_k must be a positive integer")
	}

	var opts []rag.AskOption
	if req.TopK > 0 {
		opts = append(opts, rag.WithTopK(req.TopK))
	}

	answer, err := s.config.Orchestrator.Ask(c.Context(), req.Question, opts...)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(answer)
}
