package api

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragline/api/mcp"
)

// Server is the API server for the ragline pipeline.
type Server struct {
	config    Config
	logger    *slog.Logger
	app       *fiber.App
	mcpServer *mcp.Server
}

// NewServer creates a new API server.
// The pipeline and orchestrator are injected so a CLI process can share them
// with other components.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Orchestrator: config.Orchestrator,
		Noop:         config.Orchestrator == nil,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create MCP server: %w", err)
	}
	s.mcpServer = mcpServer

	app.Get("/ping", s.handlePing)

	app.Post("/v1/documents", s.handleCreateDocument)
	app.Get("/v1/documents", s.handleListDocuments)
	app.Get("/v1/documents/:id", s.handleGetDocument)
	app.Delete("/v1/documents/:id", s.handleDeleteDocument)

	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Post("/v1/ask", s.handleAsk)

	app.All("/mcp", adaptor.HTTPHandler(s.mcpServer.Handler()))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
