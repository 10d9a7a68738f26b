// Package stack resolves ragline configuration and builds the embedder,
// vector store, registry, event publisher and language model every command
// runs on.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/credentials"
	"github.com/papercomputeco/ragline/pkg/dotdir"
	"github.com/papercomputeco/ragline/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/ragline/pkg/embeddings/utils"
	"github.com/papercomputeco/ragline/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/ragline/pkg/eventstream/utils"
	"github.com/papercomputeco/ragline/pkg/ingest"
	"github.com/papercomputeco/ragline/pkg/llm"
	llmutils "github.com/papercomputeco/ragline/pkg/llm/utils"
	"github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/rag"
	"github.com/papercomputeco/ragline/pkg/storage"
	storageutils "github.com/papercomputeco/ragline/pkg/storage/utils"
	"github.com/papercomputeco/ragline/pkg/vector"
	vectorutils "github.com/papercomputeco/ragline/pkg/vector/utils"
)

// Load resolves the configuration for cmd: defaults, then config.toml, then
// RAGLINE_* environment variables, then the given registered flags.
func Load(cmd *cobra.Command, flagKeys ...string) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, configDir, nil
}

// NewLogger builds the CLI logger from the persistent --debug flag. Logs go
// to stderr so command output stays pipeable.
func NewLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)
}

// Options selects which components Build creates.
type Options struct {
	// Ingest builds the registry, publisher and ingestion pipeline.
	Ingest bool

	// Answer builds the language model and orchestrator. Without it the
	// orchestrator can retrieve but not generate.
	Answer bool
}

// Stack is the set of components built from a Config.
type Stack struct {
	Config *config.Config
	Logger *slog.Logger

	Embedder  embeddings.Embedder
	Vectors   vector.Driver
	Registry  storage.Driver
	Publisher eventstream.Publisher
	Generator llm.Generator

	Pipeline     *ingest.Pipeline
	Orchestrator *rag.Orchestrator

	closers []func() error
}

// Build creates the components selected by opts. On error every component
// created so far is closed.
func Build(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger, opts Options) (*Stack, error) {
	s := &Stack{Config: cfg, Logger: log}
	if err := s.build(ctx, configDir, opts); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

func (s *Stack) build(ctx context.Context, configDir string, opts Options) error {
	cfg := s.Config
	ddm := dotdir.NewManager()

	creds, err := credentials.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("opening credentials: %w", err)
	}
	embeddingKey, err := creds.Resolve(cfg.Embedding.Provider, cfg.Embedding.APIKey)
	if err != nil {
		return err
	}

	embedder, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       embeddingKey,
		Region:       cfg.Embedding.Region,
		Dimensions:   cfg.Embedding.Dimensions,
		CacheAddr:    cfg.EmbeddingCache.Target,
		CacheTTL:     cfg.CacheTTL(),
		Logger:       s.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	s.Embedder = embedder
	s.closers = append(s.closers, embedder.Close)

	vectorTarget := cfg.VectorStore.Target
	if cfg.VectorStore.Provider == vectorutils.ProviderSQLiteVec && vectorTarget == "" {
		if vectorTarget, err = ddm.DataPath(configDir, dotdir.VectorFile); err != nil {
			return err
		}
	}
	vectors, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       vectorTarget,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       s.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	s.Vectors = vectors
	s.closers = append(s.closers, vectors.Close)

	if opts.Ingest {
		if err := s.buildPipeline(ctx, configDir, ddm); err != nil {
			return err
		}
	}

	var generator llm.Generator = unconfiguredGenerator{}
	if opts.Answer {
		llmKey, err := creds.Resolve(cfg.LLM.Provider, cfg.LLM.APIKey)
		if err != nil {
			return err
		}
		generator, err = llmutils.NewGenerator(ctx, &llmutils.NewGeneratorOpts{
			ProviderType: cfg.LLM.Provider,
			TargetURL:    cfg.LLM.Target,
			Model:        cfg.LLM.Model,
			APIKey:       llmKey,
			Region:       cfg.LLM.Region,
			MaxTokens:    cfg.LLM.MaxTokens,
		})
		if err != nil {
			return fmt.Errorf("creating language model: %w", err)
		}
		s.Generator = generator
	}

	s.Orchestrator, err = rag.New(rag.Config{
		Embedder:       s.Embedder,
		VectorDriver:   s.Vectors,
		Generator:      generator,
		TopK:           cfg.Retrieval.TopK,
		PromptTemplate: cfg.Retrieval.PromptTemplate,
		CallTimeout:    cfg.CallTimeout(),
		Retry:          cfg.RetryPolicy(),
		Logger:         s.Logger,
	})
	return err
}

func (s *Stack) buildPipeline(ctx context.Context, configDir string, ddm *dotdir.Manager) error {
	cfg := s.Config

	target := cfg.Storage.Target
	if cfg.Storage.Provider == "sqlite" && target == "" {
		var err error
		if target, err = ddm.DataPath(configDir, dotdir.DatabaseFile); err != nil {
			return err
		}
	}
	registry, err := storageutils.NewStorageDriver(ctx, cfg.Storage.Provider, target)
	if err != nil {
		return fmt.Errorf("creating document registry: %w", err)
	}
	s.Registry = registry
	s.closers = append(s.closers, registry.Close)

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.EventBrokers(),
		Topic:        cfg.Events.Topic,
		Logger:       s.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	s.Publisher = publisher
	s.closers = append(s.closers, publisher.Close)

	s.Pipeline, err = ingest.New(ingest.Config{
		Chunking:       cfg.ChunkPolicy(),
		Embedder:       s.Embedder,
		EmbeddingModel: cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
		VectorDriver:   s.Vectors,
		Registry:       s.Registry,
		Publisher:      s.Publisher,
		CallTimeout:    cfg.CallTimeout(),
		Retry:          cfg.RetryPolicy(),
		EmbedRateLimit: cfg.Calls.EmbedRateLimit,
		Workers:        cfg.Ingest.Workers,
		QueueSize:      cfg.Ingest.QueueSize,
		Logger:         s.Logger,
	})
	if err != nil {
		return err
	}
	s.closers = append(s.closers, func() error { s.Pipeline.Close(); return nil })
	return nil
}

// Close releases every component in reverse creation order.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// unconfiguredGenerator backs retrieval-only orchestrators.
type unconfiguredGenerator struct{}

func (unconfiguredGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("no language model configured")
}
