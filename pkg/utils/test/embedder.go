package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	// Embeddings maps exact input texts to vectors.
	Embeddings map[string][]float32

	// Func computes vectors for texts missing from Embeddings. When nil, a
	// constant vector is returned.
	Func func(text string) []float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Delay blocks each call, honouring ctx cancellation.
	Delay time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		calls:      make(map[string]int),
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[text]++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}
	if m.Func != nil {
		return m.Func(text), nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

// Calls returns how often text was embedded.
func (m *MockEmbedder) Calls(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

// TotalCalls returns the number of Embed calls.
func (m *MockEmbedder) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockEmbedder) Close() error {
	return nil
}

// LetterEmbedding maps text to its 26-dimensional letter frequency vector.
// Texts sharing words end up close under cosine similarity.
func LetterEmbedding(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}
