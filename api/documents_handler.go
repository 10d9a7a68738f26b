package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragline/pkg/ingest"
)

// CreateDocumentResponse is returned by POST /v1/documents.
type CreateDocumentResponse struct {
	ID     string `json:"id"`
	Chunks int    `json:"chunks"`
}

// handleCreateDocument handles POST /v1/documents.
func (s *Server) handleCreateDocument(c *fiber.Ctx) error {
	if s.config.Pipeline == nil {
		return unavailable(c, "ingestion is not configured")
	}

	var doc ingest.Document
	if err := c.BodyParser(&doc); err != nil {
		return badRequest(c, "invalid request body")
	}

	record, err := s.config.Pipeline.IngestRecord(c.Context(), doc)
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(CreateDocumentResponse{
		ID:     record.ID,
		Chunks: record.ChunkCount,
	})
}

// handleListDocuments handles GET /v1/documents.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	if s.config.Pipeline == nil {
		return unavailable(c, "ingestion is not configured")
	}

	docs, err := s.config.Pipeline.List(c.Context())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(docs)
}

// handleGetDocument handles GET /v1/documents/:id.
func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	if s.config.Pipeline == nil {
		return unavailable(c, "ingestion is not configured")
	}

	doc, err := s.config.Pipeline.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(doc)
}

// handleDeleteDocument handles DELETE /v1/documents/:id. The document's chunks
// are removed from the vector index along with its registry record.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	if s.config.Pipeline == nil {
		return unavailable(c, "ingestion is not configured")
	}

	if err := s.config.Pipeline.Delete(c.Context(), c.Params("id")); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
