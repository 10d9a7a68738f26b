// Package vectorutils builds a vector.Driver from provider configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/papercomputeco/ragline/pkg/ragerr"
	"github.com/papercomputeco/ragline/pkg/vector"
	"github.com/papercomputeco/ragline/pkg/vector/chroma"
	"github.com/papercomputeco/ragline/pkg/vector/inmemory"
	"github.com/papercomputeco/ragline/pkg/vector/pgvector"
	"github.com/papercomputeco/ragline/pkg/vector/qdrant"
	"github.com/papercomputeco/ragline/pkg/vector/sqlitevec"
)

// Supported provider names.
const (
	ProviderMemory    = "memory"
	ProviderSQLiteVec = "sqlite"
	ProviderChroma    = "chroma"
	ProviderQdrant    = "qdrant"
	ProviderPgvector  = "pgvector"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Target       string
	Collection   string
	APIKey       string
	Dimensions   uint
	Logger       *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	needsTarget := o.ProviderType != ProviderMemory
	if needsTarget && o.Target == "" {
		return nil, ragerr.Invalid(fmt.Sprintf("vector_store.target is required for provider %q", o.ProviderType))
	}

	switch o.ProviderType {
	case ProviderMemory:
		return inmemory.NewDriver(o.Logger), nil
	case ProviderSQLiteVec:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case ProviderQdrant:
		host, portStr, err := net.SplitHostPort(o.Target)
		if err != nil {
			return nil, ragerr.Invalid(fmt.Sprintf("qdrant target must be host:port: %v", err))
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, ragerr.Invalid(fmt.Sprintf("qdrant port %q is not a number", portStr))
		}
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:           host,
			Port:           port,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case ProviderPgvector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString: o.Target,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, ragerr.Invalid(fmt.Sprintf("unsupported vector store provider: %q", o.ProviderType))
	}
}
