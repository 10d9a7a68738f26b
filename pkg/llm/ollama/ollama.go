// Package ollama implements llm.Generator on Ollama's /api/chat endpoint.
package ollama

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/papercomputeco/ragline/pkg/llm"
)

const DefaultBaseURL = "http://localhost:11434"

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Generator calls a local or remote Ollama server.
type Generator struct {
	opts       llm.Options
	baseURL    string
	httpClient *http.Client
}

// New creates a Generator. Model is required.
func New(opts llm.Options) (*Generator, error) {
	if opts.Model == "" {
		return nil, errors.New("ollama model is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Generator{
		opts:       opts,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}, nil
}

// Generate runs a non-streaming chat completion.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	body := chatRequest{
		Model:    g.opts.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options: &chatOptions{
			NumPredict:  g.opts.Tokens(),
			Temperature: g.opts.Temperature,
		},
	}

	var result chatResponse
	if err := llm.PostJSON(ctx, g.httpClient, "ollama", g.baseURL+"/api/chat", nil, body, &result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

var _ llm.Generator = (*Generator)(nil)
