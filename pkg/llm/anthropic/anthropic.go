// Package anthropic implements llm.Generator on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/ragline/pkg/llm"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	APIVersion     = "2023-06-01"
)

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the Messages API response body. The Bedrock generator decodes
// Claude responses with it too.
type Response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Text concatenates the text blocks of the response.
func (r Response) Text() (string, error) {
	if r.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", r.Error.Message)
	}
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text: %w", llm.ErrNoContent)
	}
	return b.String(), nil
}

// Generator calls the Anthropic Messages API.
type Generator struct {
	opts       llm.Options
	baseURL    string
	httpClient *http.Client
}

// New creates a Generator. Model and APIKey are required.
func New(opts llm.Options) (*Generator, error) {
	if opts.Model == "" {
		return nil, errors.New("anthropic model is required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Generator{
		opts:       opts,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Generate sends prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	body := request{
		Model:       g.opts.Model,
		MaxTokens:   g.opts.Tokens(),
		Temperature: g.opts.Temperature,
		Messages:    []message{{Role: "user", Content: prompt}},
	}

	var result Response
	if err := llm.PostJSON(ctx, g.httpClient, "anthropic", g.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         g.opts.APIKey,
		"anthropic-version": APIVersion,
	}, body, &result); err != nil {
		return "", err
	}
	return result.Text()
}

var _ llm.Generator = (*Generator)(nil)
