// Package qdrant provides a vector.Driver backed by a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/ragline/pkg/vector"
)

// DefaultCollectionName is the collection used when none is configured.
const DefaultCollectionName = "ragline"

const (
	payloadDocumentID = "document_id"
	payloadSeq        = "seq"
	payloadText       = "text"
	payloadStart      = "start"
	payloadEnd        = "end"
	payloadIngestedAt = "ingested_at"
	payloadMetadata   = "metadata"
)

// client is the subset of *qdrant.Client the driver uses.
type client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Close() error
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host and Port address Qdrant's gRPC endpoint. Port defaults to 6334.
	Host string
	Port int

	APIKey string
	UseTLS bool

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions sizes the collection when it has to be created.
	Dimensions uint
}

// Driver implements vector.Driver on a Qdrant collection using cosine distance.
type Driver struct {
	client     client
	collection string
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and ensures the collection exists.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, errors.New("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}
	port := c.Port
	if port == 0 {
		port = 6334
	}

	qc, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	d, err := newDriver(ctx, qc, c, logger)
	if err != nil {
		qc.Close()
		return nil, err
	}

	logger.Info("connected to Qdrant",
		"host", c.Host,
		"port", port,
		"collection", d.collection,
	)
	return d, nil
}

func newDriver(ctx context.Context, qc client, c Config, logger *slog.Logger) (*Driver, error) {
	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	exists, err := qc.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: checking collection %q: %w", vector.ErrConnection, collection, err)
	}
	if !exists {
		err := qc.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("creating collection %q: %w", collection, err)
		}
		logger.Info("created Qdrant collection", "collection", collection, "dimensions", c.Dimensions)
	}

	return &Driver{client: qc, collection: collection, logger: logger}, nil
}

// Upsert writes records as points and waits for the write to be applied.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		payload, err := qdrant.TryValueMap(map[string]any{
			payloadDocumentID: r.DocumentID,
			payloadSeq:        r.Index,
			payloadText:       r.Text,
			payloadStart:      r.Start,
			payloadEnd:        r.End,
			payloadIngestedAt: r.IngestedAt.UnixNano(),
			payloadMetadata:   meta,
		})
		if err != nil {
			return fmt.Errorf("building payload for chunk %s: %w", r.ID, err)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(r.ID),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: payload,
		}
	}

	if _, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted points to qdrant", "count", len(records))
	return nil
}

// Search runs a nearest-neighbour query with payloads.
func (d *Driver) Search(ctx context.Context, query []float32, k int) ([]vector.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %w", vector.ErrConnection, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		r := vector.QueryResult{
			Record: vector.Record{
				ID:         p.GetId().GetUuid(),
				DocumentID: payload[payloadDocumentID].GetStringValue(),
				Index:      int(payload[payloadSeq].GetIntegerValue()),
				Text:       payload[payloadText].GetStringValue(),
				Start:      int(payload[payloadStart].GetIntegerValue()),
				End:        int(payload[payloadEnd].GetIntegerValue()),
				IngestedAt: time.Unix(0, payload[payloadIngestedAt].GetIntegerValue()).UTC(),
			},
			Score: p.GetScore(),
		}
		if fields := payload[payloadMetadata].GetStructValue().GetFields(); len(fields) > 0 {
			r.Metadata = make(map[string]string, len(fields))
			for k, v := range fields {
				r.Metadata[k] = v.GetStringValue()
			}
		}
		results = append(results, r)
	}

	d.logger.Debug("queried qdrant", "results", len(results))
	return vector.Top(results, k), nil
}

// Delete removes every point whose document_id payload matches.
func (d *Driver) Delete(ctx context.Context, documentID string) error {
	if _, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadDocumentID, documentID)},
		}),
	}); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}

	d.logger.Debug("deleted document from qdrant", "document_id", documentID)
	return nil
}

// DeleteChunks removes the points with the given chunk IDs.
func (d *Driver) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	points := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		points[i] = qdrant.NewID(id)
	}
	if _, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(points...),
	}); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	d.logger.Debug("deleted chunks from qdrant", "count", len(ids))
	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}
