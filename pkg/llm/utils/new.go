// Package llmutils builds an llm.Generator from provider configuration.
package llmutils

import (
	"context"
	"fmt"
	"os"

	"github.com/papercomputeco/ragline/pkg/llm"
	"github.com/papercomputeco/ragline/pkg/llm/anthropic"
	"github.com/papercomputeco/ragline/pkg/llm/bedrock"
	"github.com/papercomputeco/ragline/pkg/llm/ollama"
	"github.com/papercomputeco/ragline/pkg/llm/openai"
	"github.com/papercomputeco/ragline/pkg/ragerr"
)

// Default models per provider, used when NewGeneratorOpts.Model is empty.
var DefaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-haiku-4-5-20251001",
	"ollama":    "llama3.2",
	"bedrock":   "anthropic.claude-3-haiku-20240307-v1:0",
}

// apiKeyEnv maps hosted providers to the environment variable holding their key.
var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Region       string
	MaxTokens    int
	Temperature  *float64

	// Invoker replaces the Bedrock runtime client; used in tests.
	Invoker bedrock.Invoker
}

// NewGenerator resolves model and API key defaults and returns the provider's
// generator. Missing required settings yield ragerr.ErrInvalidConfiguration.
func NewGenerator(ctx context.Context, o *NewGeneratorOpts) (llm.Generator, error) {
	model := o.Model
	if model == "" {
		model = DefaultModels[o.ProviderType]
	}

	apiKey := o.APIKey
	if env, ok := apiKeyEnv[o.ProviderType]; ok && apiKey == "" {
		apiKey = os.Getenv(env)
		if apiKey == "" {
			return nil, ragerr.Invalid(fmt.Sprintf("llm.api_key or %s is required for provider %q", env, o.ProviderType))
		}
	}

	opts := llm.Options{
		Model:       model,
		BaseURL:     o.TargetURL,
		APIKey:      apiKey,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}

	switch o.ProviderType {
	case "openai":
		return openai.New(opts)
	case "anthropic":
		return anthropic.New(opts)
	case "ollama":
		return ollama.New(opts)
	case "bedrock":
		if o.Region == "" {
			return nil, ragerr.Invalid("llm.region is required for provider \"bedrock\"")
		}
		return bedrock.New(ctx, o.Region, o.Invoker, opts)
	default:
		return nil, ragerr.Invalid(fmt.Sprintf("unsupported llm provider: %q", o.ProviderType))
	}
}
