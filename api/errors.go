package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragline/pkg/ragerr"
	"github.com/papercomputeco/ragline/pkg/storage"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return fiber.StatusNotFound
	}

	switch ragerr.KindOf(err) {
	case ragerr.ErrEmptyDocument, ragerr.ErrEmptyQuestion, ragerr.ErrInvalidConfiguration:
		return fiber.StatusBadRequest
	case ragerr.ErrIndexUnavailable:
		return fiber.StatusServiceUnavailable
	case ragerr.ErrEmbeddingFailure, ragerr.ErrGenerationFailure:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}

func unavailable(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: msg})
}
