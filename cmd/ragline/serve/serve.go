// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/api"
	"github.com/papercomputeco/ragline/cmd/ragline/stack"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/ingest"
	"github.com/papercomputeco/ragline/pkg/logger"
)

type serveCommander struct {
	watch   []string
	logFile string
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagTopK,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagWorkers,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagStorageProv,
	config.FlagStorageTgt,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
}

const serveLongDesc string = `Run the ragline API server.

The server exposes document ingestion, search and question answering over
HTTP, and the same search and ask tools over MCP at /mcp.

Use --watch to keep directories synced into the index while serving, and
--log-file to also append JSON logs to a file.

Examples:
  ragline serve
  ragline serve --listen :9090
  ragline serve --watch ./handbook
  ragline serve --log-file ./ragline.log`

const serveShortDesc string = "Run the API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringSliceVar(&cmder.watch, "watch", nil, "Directories to keep synced into the index")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	config.AddFlags(cmd, config.Flags, serveFlags...)

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	cfg, configDir, err := stack.Load(cmd, serveFlags...)
	if err != nil {
		return err
	}

	log := stack.NewLogger(cmd)
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		debug, _ := cmd.Flags().GetBool("debug")
		log = logger.Multi(log, logger.New(
			logger.WithDebug(debug),
			logger.WithJSON(true),
			logger.WithWriter(f),
		))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := stack.Build(ctx, cfg, configDir, log, stack.Options{Ingest: true, Answer: true})
	if err != nil {
		return err
	}
	defer s.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr:   cfg.API.Listen,
		Pipeline:     s.Pipeline,
		Orchestrator: s.Orchestrator,
	}, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	log.Info("starting api server",
		"api_addr", cfg.API.Listen,
		"vector_store", cfg.VectorStore.Provider,
		"embedding_provider", cfg.Embedding.Provider,
		"llm_provider", cfg.LLM.Provider,
	)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if len(c.watch) > 0 {
		w, err := ingest.NewWatcher(s.Pipeline, c.watch, ingest.DefaultDebounce)
		if err != nil {
			return err
		}
		log.Info("watching directories", "paths", c.watch)
		go func() {
			syncDirs(ctx, s.Pipeline, c.watch, log)
			if err := w.Run(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		_ = server.Shutdown()
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		return server.Shutdown()
	}
}

// syncDirs ingests every supported file below dirs once, before the watcher
// takes over.
func syncDirs(ctx context.Context, p *ingest.Pipeline, dirs []string, log *slog.Logger) {
	docs, err := ingest.LoadPaths(dirs)
	if err != nil {
		log.Warn("initial sync failed", "err", err)
		return
	}

	failed := 0
	for i, r := range p.IngestAll(ctx, docs) {
		if r.Err != nil {
			failed++
			log.Warn("could not ingest file", "path", docs[i].Source, "err", r.Err)
		}
	}
	log.Info("initial sync done", "documents", len(docs), "failed", failed)
}
