package qdrant

import (
	"context"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"
)

// Client mirrors the unexported client interface for tests.
type Client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Close() error
}

func NewDriverWithClient(ctx context.Context, c Client, cfg Config, logger *slog.Logger) (*Driver, error) {
	return newDriver(ctx, c, cfg, logger)
}
