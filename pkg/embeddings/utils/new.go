// Package embeddingutils builds an embeddings.Embedder from provider configuration.
package embeddingutils

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/ragline/pkg/embeddings"
	"github.com/papercomputeco/ragline/pkg/embeddings/bedrock"
	"github.com/papercomputeco/ragline/pkg/embeddings/cache"
	"github.com/papercomputeco/ragline/pkg/embeddings/ollama"
	"github.com/papercomputeco/ragline/pkg/embeddings/openai"
	"github.com/papercomputeco/ragline/pkg/ragerr"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Region       string
	Dimensions   uint

	// CacheAddr enables the Redis embedding cache when set.
	CacheAddr     string
	CachePassword string
	CacheTTL      time.Duration

	Logger *slog.Logger
}

func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	if o.Model == "" {
		return nil, ragerr.Invalid("embedding.model is required")
	}

	var (
		e   embeddings.Embedder
		err error
	)
	switch o.ProviderType {
	case "ollama":
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		if o.APIKey == "" {
			return nil, ragerr.Invalid("embedding.api_key is required for provider \"openai\"")
		}
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:    o.TargetURL,
			APIKey:     o.APIKey,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "bedrock":
		if o.Region == "" {
			return nil, ragerr.Invalid("embedding.region is required for provider \"bedrock\"")
		}
		e, err = bedrock.NewEmbedder(ctx, bedrock.EmbedderConfig{
			Region:     o.Region,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, ragerr.Invalid(fmt.Sprintf("unsupported embedding provider: %q", o.ProviderType))
	}
	if err != nil {
		return nil, err
	}

	if o.CacheAddr == "" {
		return e, nil
	}

	client, err := cache.Connect(ctx, o.CacheAddr, o.CachePassword, 0)
	if err != nil {
		e.Close()
		return nil, err
	}
	return cache.New(e, client, cache.Config{
		Model: o.ProviderType + "/" + o.Model,
		TTL:   o.CacheTTL,
	}, o.Logger), nil
}
