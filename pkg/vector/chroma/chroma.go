// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/papercomputeco/ragline/pkg/retry"
	"github.com/papercomputeco/ragline/pkg/vector"
)

const (
	// DefaultCollectionName is the collection used when none is configured.
	DefaultCollectionName = "ragline"

	apiPrefix = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// reserved metadata keys; everything else round-trips into Record.Metadata.
const (
	keyDocumentID = "document_id"
	keySeq        = "seq"
	keyStart      = "start"
	keyEnd        = "end"
	keyIngestedAt = "ingested_at"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// MaxRetries bounds connection attempts at startup. Defaults to 5.
	MaxRetries int

	// RetryDelay is the first wait between startup attempts. Defaults to 1s.
	RetryDelay time.Duration

	// MaxRetryDelay caps the wait between startup attempts. Defaults to 10s.
	MaxRetryDelay time.Duration
}

// NewDriver connects to Chroma, creating the collection if needed. Chroma is
// often still starting when ragline starts, so connecting is retried.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	policy := retry.Policy{
		MaxAttempts:    c.MaxRetries,
		InitialBackoff: c.RetryDelay,
		MaxBackoff:     c.MaxRetryDelay,
	}
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 5
	}
	if policy.InitialBackoff == 0 {
		policy.InitialBackoff = time.Second
	}
	if policy.MaxBackoff == 0 {
		policy.MaxBackoff = 10 * time.Second
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		logger:         logger,
	}

	attempt := 0
	collectionID, err := retry.Value(context.Background(), policy, 0, func(ctx context.Context) (string, error) {
		attempt++
		id, err := d.getOrCreateCollection(ctx)
		if err != nil {
			logger.Warn("chroma not ready", "attempt", attempt, "err", err)
		}
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting or creating collection %q after %d attempts: %w", collectionName, attempt, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", collectionID,
	)

	return d, nil
}

func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	status, err := d.do(ctx, http.MethodGet, apiPrefix+"/"+d.collectionName, nil, &collection)
	if err == nil {
		return collection.ID, nil
	}
	if status != http.StatusNotFound && status != http.StatusBadRequest {
		return "", err
	}

	create := chromaCreateRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}
	if _, err := d.do(ctx, http.MethodPost, apiPrefix, create, &collection); err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}
	return collection.ID, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
// It returns the HTTP status, or 0 when no response was received.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))
		if resp.StatusCode >= http.StatusInternalServerError {
			err = fmt.Errorf("%w: %w", vector.ErrConnection, err)
		}
		return resp.StatusCode, err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Upsert adds or replaces records in one request.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Metadatas:  make([]map[string]any, len(records)),
		Documents:  make([]string, len(records)),
	}
	for i, r := range records {
		req.IDs[i] = r.ID
		req.Embeddings[i] = r.Embedding
		req.Documents[i] = r.Text
		req.Metadatas[i] = toMetadata(r)
	}

	if _, err := d.do(ctx, http.MethodPost, apiPrefix+"/"+d.collectionID+"/upsert", req, nil); err != nil {
		return fmt.Errorf("upserting records: %w", err)
	}

	d.logger.Debug("upserted records to chroma", "count", len(records))
	return nil
}

// Search queries the collection for the k nearest records.
func (d *Driver) Search(ctx context.Context, query []float32, k int) ([]vector.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}

	req := chromaQueryRequest{
		QueryEmbeddings: [][]float32{query},
		NResults:        k,
		Include:         []string{"metadatas", "documents", "distances"},
	}

	var resp chromaQueryResponse
	if _, err := d.do(ctx, http.MethodPost, apiPrefix+"/"+d.collectionID+"/query", req, &resp); err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	ids := resp.IDs[0]
	results := make([]vector.QueryResult, 0, len(ids))
	for i, id := range ids {
		r := vector.QueryResult{Record: vector.Record{ID: id}}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			fromMetadata(&r.Record, resp.Metadatas[0][i])
		}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) && resp.Documents[0][i] != nil {
			r.Text = *resp.Documents[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			r.Score = 1 - resp.Distances[0][i]
		}
		results = append(results, r)
	}

	d.logger.Debug("queried chroma", "results", len(results))
	return vector.Top(results, k), nil
}

// Delete removes every record whose document_id matches.
func (d *Driver) Delete(ctx context.Context, documentID string) error {
	req := chromaDeleteRequest{Where: map[string]any{keyDocumentID: documentID}}
	if _, err := d.do(ctx, http.MethodPost, apiPrefix+"/"+d.collectionID+"/delete", req, nil); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}

	d.logger.Debug("deleted document from chroma", "document_id", documentID)
	return nil
}

// DeleteChunks removes the records with the given IDs.
func (d *Driver) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	req := chromaDeleteRequest{IDs: ids}
	if _, err := d.do(ctx, http.MethodPost, apiPrefix+"/"+d.collectionID+"/delete", req, nil); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	d.logger.Debug("deleted chunks from chroma", "count", len(ids))
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

func toMetadata(r vector.Record) map[string]any {
	m := make(map[string]any, len(r.Metadata)+5)
	for k, v := range r.Metadata {
		m[k] = v
	}
	m[keyDocumentID] = r.DocumentID
	m[keySeq] = r.Index
	m[keyStart] = r.Start
	m[keyEnd] = r.End
	// nanosecond timestamps exceed float64 precision in JSON numbers
	m[keyIngestedAt] = strconv.FormatInt(r.IngestedAt.UnixNano(), 10)
	return m
}

func fromMetadata(r *vector.Record, m map[string]any) {
	for k, v := range m {
		switch k {
		case keyDocumentID:
			r.DocumentID, _ = v.(string)
		case keySeq:
			r.Index = asInt(v)
		case keyStart:
			r.Start = asInt(v)
		case keyEnd:
			r.End = asInt(v)
		case keyIngestedAt:
			if s, ok := v.(string); ok {
				if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
					r.IngestedAt = time.Unix(0, ns).UTC()
				}
			}
		default:
			if r.Metadata == nil {
				r.Metadata = make(map[string]string)
			}
			r.Metadata[k] = fmt.Sprint(v)
		}
	}
}

func asInt(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
