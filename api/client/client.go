// Package client calls a running ragline API server. It backs the --remote
// mode of the CLI's search and ask commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apisearch "github.com/papercomputeco/ragline/api/search"
	"github.com/papercomputeco/ragline/pkg/rag"
)

// Client talks to one API server.
type Client struct {
	target     *url.URL
	httpClient *http.Client
}

// New parses target, the server's base URL.
func New(target string) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", target)
	}
	return &Client{
		target:     u,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Search calls GET /v1/search. A topK of zero uses the server's default.
func (c *Client) Search(ctx context.Context, query string, topK int) (*apisearch.Output, error) {
	q := url.Values{}
	q.Set("query", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}

	var output apisearch.Output
	if err := c.do(ctx, http.MethodGet, "/v1/search", q, nil, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// Ask calls POST /v1/ask. A topK of zero uses the server's default.
func (c *Client) Ask(ctx context.Context, question string, topK int) (*rag.Answer, error) {
	body := map[string]any{"question": question}
	if topK > 0 {
		body["top_k"] = topK
	}

	var answer rag.Answer
	if err := c.do(ctx, http.MethodPost, "/v1/ask", nil, body, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.target
	u.Path = path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to ragline API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
		}
		return &StatusError{Code: resp.StatusCode, Message: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// StatusError is a non-200 response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed (HTTP %d): %s", e.Code, e.Message)
}
