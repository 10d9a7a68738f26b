// Package ingest turns documents into indexed chunks: it validates, chunks,
// embeds and writes them, then registers the document and announces it.
//
// A document is ingested atomically. Either all of its chunks are searchable
// or none are: embedding happens before any write, and a failed write is
// rolled back by deleting the chunks it wrote. Re-ingesting a document ID
// writes a new version under fresh chunk IDs and removes the previous version
// only once the new one is registered.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/papercomputeco/ragline/pkg/chunker"
	"github.com/papercomputeco/ragline/pkg/embeddings"
	"github.com/papercomputeco/ragline/pkg/eventstream"
	"github.com/papercomputeco/ragline/pkg/eventstream/nop"
	"github.com/papercomputeco/ragline/pkg/ragerr"
	"github.com/papercomputeco/ragline/pkg/retry"
	"github.com/papercomputeco/ragline/pkg/storage"
	"github.com/papercomputeco/ragline/pkg/storage/inmemory"
	"github.com/papercomputeco/ragline/pkg/vector"
	"github.com/papercomputeco/ragline/pkg/worker"
)

// DefaultCallTimeout bounds each embedder and vector store call.
const DefaultCallTimeout = 30 * time.Second

// rollbackTimeout bounds the compensating delete, which runs even when the
// caller's context is already cancelled.
const rollbackTimeout = 30 * time.Second

// Document is a unit of ingestion.
type Document struct {
	// ID is optional; a random UUID is assigned when empty.
	ID       string            `json:"id,omitempty"`
	Title    string            `json:"title"`
	Category string            `json:"category"`
	Text     string            `json:"text"`
	Source   string            `json:"source,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Config configures a Pipeline.
type Config struct {
	// Chunking is the chunk size and overlap. Validated by New.
	Chunking chunker.Policy

	// Embedder must be the same embedder used to embed questions.
	Embedder embeddings.Embedder

	// EmbeddingModel is reported in document events.
	EmbeddingModel string

	VectorDriver vector.Driver

	// Registry records ingested documents. Defaults to an in-memory registry.
	Registry storage.Driver

	// Publisher announces ingested documents. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// CallTimeout bounds every embed and upsert attempt. Defaults to
	// DefaultCallTimeout.
	CallTimeout time.Duration

	// Retry applies to embed and upsert calls. The zero value makes one attempt.
	Retry retry.Policy

	// EmbedRateLimit caps embed calls per second. Zero disables the limit.
	EmbedRateLimit float64

	// Workers and QueueSize size the pool used by IngestAll and Enqueue.
	Workers   uint
	QueueSize uint

	Logger *slog.Logger

	// Now is the clock used for ingestion timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Pipeline ingests documents. It is safe for concurrent use.
type Pipeline struct {
	policy      chunker.Policy
	embedder    embeddings.Embedder
	model       string
	vectors     vector.Driver
	registry    storage.Driver
	publisher   eventstream.Publisher
	callTimeout time.Duration
	retry       retry.Policy
	limiter     *rate.Limiter
	pool        *worker.Pool
	logger      *slog.Logger
	now         func() time.Time

	// docs serializes writes to the same document ID.
	docs keyedMutex
}

// New validates c and starts the pipeline's worker pool.
func New(c Config) (*Pipeline, error) {
	if err := c.Chunking.Validate(); err != nil {
		return nil, err
	}
	if c.Embedder == nil {
		return nil, ragerr.Invalid("an embedder is required")
	}
	if c.VectorDriver == nil {
		return nil, ragerr.Invalid("a vector driver is required")
	}
	if c.EmbedRateLimit < 0 {
		return nil, ragerr.Invalid(fmt.Sprintf("embed rate limit must not be negative, got %v", c.EmbedRateLimit))
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		policy:      c.Chunking,
		embedder:    c.Embedder,
		model:       c.EmbeddingModel,
		vectors:     c.VectorDriver,
		registry:    c.Registry,
		publisher:   c.Publisher,
		callTimeout: c.CallTimeout,
		retry:       c.Retry,
		logger:      logger,
		now:         c.Now,
	}
	if p.registry == nil {
		p.registry = inmemory.NewDriver()
	}
	if p.publisher == nil {
		p.publisher = nop.NewPublisher()
	}
	if p.callTimeout == 0 {
		p.callTimeout = DefaultCallTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	if c.EmbedRateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(c.EmbedRateLimit), 1)
	}

	pool, err := worker.NewPool(&worker.Config{
		NumWorkers: c.Workers,
		QueueSize:  c.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, ragerr.Invalid(err.Error())
	}
	p.pool = pool

	return p, nil
}

// Ingest chunks, embeds and indexes doc and returns its ID. On any error
// nothing written for doc is left in the vector index, and a previously
// ingested version of the same ID stays searchable.
func (p *Pipeline) Ingest(ctx context.Context, doc Document) (string, error) {
	rec, err := p.ingest(ctx, doc)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// IngestRecord is Ingest returning the registry record.
func (p *Pipeline) IngestRecord(ctx context.Context, doc Document) (*storage.Document, error) {
	return p.ingest(ctx, doc)
}

func (p *Pipeline) ingest(ctx context.Context, doc Document) (*storage.Document, error) {
	started := time.Now()

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := p.logger.With("document_id", id)

	if strings.TrimSpace(doc.Text) == "" {
		return nil, ragerr.New(ragerr.ErrEmptyDocument, ragerr.StageValidate, id, nil)
	}

	chunks, err := p.policy.Split(doc.Text)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrInvalidConfiguration, ragerr.StageChunk, id, err)
	}
	logger.Debug("chunked document", "chunks", len(chunks))

	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrEmbeddingFailure, ragerr.StageEmbed, id, err)
	}

	unlock := p.docs.lock(id)
	defer unlock()

	previous, err := p.previousVersion(ctx, id)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrIndexWriteFailure, ragerr.StageIndex, id, err)
	}

	ingestedAt := p.now().UTC()
	version := uuid.NewString()
	ids := vector.VersionChunkIDs(id, version, len(chunks))
	records := make([]vector.Record, len(chunks))
	meta := chunkMetadata(doc)
	for i, c := range chunks {
		records[i] = vector.Record{
			ID:         ids[i],
			DocumentID: id,
			Index:      c.Index,
			Text:       c.Text,
			Start:      c.Start,
			End:        c.End,
			Embedding:  vectors[i],
			Metadata:   meta,
			IngestedAt: ingestedAt,
		}
	}

	err = retry.Do(ctx, p.retry, p.callTimeout, func(ctx context.Context) error {
		return p.vectors.Upsert(ctx, records)
	})
	if err != nil {
		logger.Error("index write failed, rolling back", "stage", ragerr.StageIndex, "err", err)
		return nil, ragerr.New(ragerr.ErrIndexWriteFailure, ragerr.StageIndex, id,
			errors.Join(err, p.rollback(ctx, ids, logger)))
	}

	rec := &storage.Document{
		ID:         id,
		Title:      doc.Title,
		Category:   doc.Category,
		Source:     doc.Source,
		ChunkCount: len(chunks),
		Characters: utf8.RuneCountInString(doc.Text),
		Metadata:   doc.Metadata,
		CreatedAt:  ingestedAt,
		Version:    version,
	}
	if err := p.registry.Put(ctx, rec); err != nil {
		logger.Error("registry write failed, rolling back", "stage", ragerr.StageRegister, "err", err)
		return nil, ragerr.New(ragerr.ErrIndexWriteFailure, ragerr.StageRegister, id,
			errors.Join(err, p.rollback(ctx, ids, logger)))
	}

	if previous != nil {
		p.retire(ctx, previous, logger)
	}

	event := eventstream.NewDocumentIndexedEvent(
		eventstream.DocumentMeta{ID: id, Title: doc.Title, Category: doc.Category, Source: doc.Source},
		eventstream.IndexMeta{
			ChunkCount:     len(chunks),
			Characters:     rec.Characters,
			EmbeddingModel: p.model,
			DurationMs:     time.Since(started).Milliseconds(),
		},
	)
	if err := p.publisher.PublishIndexed(ctx, event); err != nil {
		logger.Warn("failed to publish document event", "err", err)
	}

	logger.Info("ingested document",
		"title", doc.Title,
		"chunks", len(chunks),
		"duration", time.Since(started),
	)
	return rec, nil
}

// embedChunks embeds every chunk in index order, stopping at the first failure.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []chunker.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		v, err := retry.Value(ctx, p.retry, p.callTimeout, func(ctx context.Context) ([]float32, error) {
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return nil, err
				}
			}
			return p.embedder.Embed(ctx, c.Text)
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		if len(v) == 0 {
			return nil, fmt.Errorf("chunk %d: empty embedding", c.Index)
		}
		if i > 0 && len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("chunk %d: %w: got %d, want %d",
				c.Index, vector.ErrDimensionMismatch, len(v), len(vectors[0]))
		}
		vectors[i] = v
	}
	return vectors, nil
}

// previousVersion returns the registered record of id, or nil when id has
// not been ingested.
func (p *Pipeline) previousVersion(ctx context.Context, id string) (*storage.Document, error) {
	prev, err := p.registry.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up document: %w", err)
	}
	return prev, nil
}

// retire removes the chunks of a replaced version. The new version is already
// registered, so a failure only leaves stale chunks that deleting the
// document removes.
func (p *Pipeline) retire(ctx context.Context, prev *storage.Document, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	ids := vector.VersionChunkIDs(prev.ID, prev.Version, prev.ChunkCount)
	err := retry.Do(ctx, p.retry, p.callTimeout, func(ctx context.Context) error {
		return p.vectors.DeleteChunks(ctx, ids)
	})
	if err != nil {
		logger.Error("could not remove replaced version", "version", prev.Version, "chunks", len(ids), "err", err)
		return
	}
	logger.Info("replaced previous version", "version", prev.Version, "chunks", len(ids))
}

// rollback deletes the chunks written by a failed ingestion. It returns nil on
// success so the result can be joined into the reported error.
func (p *Pipeline) rollback(ctx context.Context, ids []string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	err := retry.Do(ctx, p.retry, p.callTimeout, func(ctx context.Context) error {
		return p.vectors.DeleteChunks(ctx, ids)
	})
	if err != nil {
		logger.Error("rollback failed, index may hold partial document", "err", err)
		return fmt.Errorf("rollback: %w", err)
	}
	logger.Debug("rolled back partial write", "chunks", len(ids))
	return nil
}

func chunkMetadata(doc Document) map[string]string {
	meta := make(map[string]string, len(doc.Metadata)+3)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	if doc.Title != "" {
		meta["title"] = doc.Title
	}
	if doc.Category != "" {
		meta["category"] = doc.Category
	}
	if doc.Source != "" {
		meta["source"] = doc.Source
	}
	return meta
}

// Result is the outcome of one document in a batch.
type Result struct {
	DocumentID string
	Err        error
}

// IngestAll ingests docs concurrently on the worker pool. Each document is
// independent and atomic; results are returned in input order.
func (p *Pipeline) IngestAll(ctx context.Context, docs []Document) []Result {
	results := make([]Result, len(docs))
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		err := p.pool.Submit(ctx, worker.Job{
			ID: doc.Title,
			Run: func() error {
				defer wg.Done()
				id, err := p.Ingest(ctx, doc)
				results[i] = Result{DocumentID: id, Err: err}
				return err
			},
		})
		if err != nil {
			wg.Done()
			results[i] = Result{Err: err}
		}
	}

	wg.Wait()
	return results
}

// Enqueue schedules doc for background ingestion without waiting. It returns
// false when the queue is full. done, when non-nil, receives the outcome.
func (p *Pipeline) Enqueue(doc Document, done func(Result)) bool {
	return p.pool.Enqueue(worker.Job{
		ID: doc.Source,
		Run: func() error {
			id, err := p.Ingest(context.Background(), doc)
			if done != nil {
				done(Result{DocumentID: id, Err: err})
			}
			return err
		},
	})
}

// Get returns the registry record for id.
func (p *Pipeline) Get(ctx context.Context, id string) (*storage.Document, error) {
	return p.registry.Get(ctx, id)
}

// List returns every registered document.
func (p *Pipeline) List(ctx context.Context) ([]*storage.Document, error) {
	return p.registry.List(ctx)
}

// Delete removes a document's chunks from the index and its registry record.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	unlock := p.docs.lock(id)
	defer unlock()

	if _, err := p.registry.Get(ctx, id); err != nil {
		return err
	}

	err := retry.Do(ctx, p.retry, p.callTimeout, func(ctx context.Context) error {
		return p.vectors.Delete(ctx, id)
	})
	if err != nil {
		return ragerr.New(ragerr.ErrIndexWriteFailure, ragerr.StageIndex, id, err)
	}

	if err := p.registry.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ragerr.New(ragerr.ErrIndexWriteFailure, ragerr.StageRegister, id, err)
	}

	p.logger.Info("deleted document", "document_id", id)
	return nil
}

// Close drains queued jobs. It does not close the collaborators.
func (p *Pipeline) Close() {
	p.pool.Close()
}
