// Package storageutils builds a storage.Driver from provider configuration.
package storageutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/ragline/pkg/ragerr"
	"github.com/papercomputeco/ragline/pkg/storage"
	"github.com/papercomputeco/ragline/pkg/storage/inmemory"
	"github.com/papercomputeco/ragline/pkg/storage/postgres"
	"github.com/papercomputeco/ragline/pkg/storage/sqlite"
)

// NewStorageDriver returns the registry for provider. target is a file path for
// sqlite and a connection string for postgres.
func NewStorageDriver(ctx context.Context, provider, target string) (storage.Driver, error) {
	switch provider {
	case "", "memory", "inmemory":
		return inmemory.NewDriver(), nil
	case "sqlite":
		if target == "" {
			return nil, ragerr.Invalid("storage.target is required for provider \"sqlite\"")
		}
		return sqlite.NewSQLiteDriver(ctx, target)
	case "postgres":
		if target == "" {
			return nil, ragerr.Invalid("storage.target is required for provider \"postgres\"")
		}
		return postgres.NewDriver(ctx, target)
	default:
		return nil, ragerr.Invalid(fmt.Sprintf("unsupported storage provider: %q", provider))
	}
}
