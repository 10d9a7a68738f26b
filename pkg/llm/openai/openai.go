// Package openai implements llm.Generator on the Chat Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/papercomputeco/ragline/pkg/llm"
)

const DefaultBaseURL = "https://api.openai.com"

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generator calls an OpenAI-compatible chat endpoint.
type Generator struct {
	opts       llm.Options
	baseURL    string
	httpClient *http.Client
}

// New creates a Generator. Model and APIKey are required.
func New(opts llm.Options) (*Generator, error) {
	if opts.Model == "" {
		return nil, errors.New("openai model is required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("openai API key is required")
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
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   g.opts.Tokens(),
		Temperature: g.opts.Temperature,
	}

	var result response
	if err := llm.PostJSON(ctx, g.httpClient, "openai", g.baseURL+"/v1/chat/completions",
		map[string]string{"Authorization": "Bearer " + g.opts.APIKey}, body, &result); err != nil {
		return "", err
	}

	if result.Error != nil {
		return "", fmt.Errorf("openai error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices: %w", llm.ErrNoContent)
	}
	return result.Choices[0].Message.Content, nil
}

var _ llm.Generator = (*Generator)(nil)
