package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// FakeOllama serves Ollama's /api/embed and /api/chat endpoints. Embeddings
// are LetterEmbedding vectors and every chat returns Answer.
type FakeOllama struct {
	*httptest.Server

	Answer string

	mu      sync.Mutex
	prompts []string
}

// NewFakeOllama starts a FakeOllama. Close it when done.
func NewFakeOllama(answer string) *FakeOllama {
	f := &FakeOllama{Answer: answer}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"embeddings": [][]float32{LetterEmbedding(req.Input)}})
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		for _, m := range req.Messages {
			f.prompts = append(f.prompts, m.Content)
		}
		answer := f.Answer
		f.mu.Unlock()

		writeJSON(w, map[string]any{
			"message": map[string]string{"role": "assistant", "content": answer},
			"done":    true,
		})
	})

	f.Server = httptest.NewServer(mux)
	return f
}

// Prompts returns every chat message content received so far.
func (f *FakeOllama) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
