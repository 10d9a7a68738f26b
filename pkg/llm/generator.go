// Package llm defines the language model used to generate answers, with
// HTTP and Bedrock implementations in its subpackages.
package llm

import (
	"context"
	"errors"
)

// ErrNoContent is returned when a provider responds without any text.
var ErrNoContent = errors.New("model returned no content")

// Generator produces a completion for a single-turn prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options are shared by every provider.
type Options struct {
	// Model is the provider model identifier. Required.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey authenticates hosted providers.
	APIKey string

	// MaxTokens bounds the completion length. Defaults to 1024.
	MaxTokens int

	// Temperature is passed through when non-nil.
	Temperature *float64
}

// DefaultMaxTokens is used when Options.MaxTokens is zero.
const DefaultMaxTokens = 1024

// Tokens returns MaxTokens or DefaultMaxTokens.
func (o Options) Tokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}
