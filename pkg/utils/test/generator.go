package testutils

import (
	"context"
	"sync"
)

// MockGenerator is a test language model that records prompts.
type MockGenerator struct {
	// Response is returned for every prompt unless Func is set.
	Response string

	// Func computes the response from the prompt.
	Func func(prompt string) (string, error)

	// Err is returned when set.
	Err error

	mu      sync.Mutex
	prompts []string
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Func != nil {
		return m.Func(prompt)
	}
	return m.Response, nil
}

// Prompts returns every prompt received so far.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
