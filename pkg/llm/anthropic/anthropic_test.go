package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/llm"
	"github.com/papercomputeco/ragline/pkg/llm/anthropic"
)

var _ = Describe("Generator", func() {
	It("requires an API key", func() {
		_, err := anthropic.New(llm.Options{Model: "claude"})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	It("sends version headers and joins text blocks", func() {
		var (
			key     string
			version string
			body    map[string]any
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key = r.Header.Get("x-api-key")
			version = r.Header.Get("anthropic-version")
			json.NewDecoder(r.Body).Decode(&body)
			w.Write([]byte(`{"content":[{"type":"text","text":"The cat "},{"type":"text","text":"sat."}],"stop_reason":"end_turn"}`))
		}))
		defer server.Close()

		g, err := anthropic.New(llm.Options{Model: "claude-haiku", APIKey: "ak", BaseURL: server.URL, MaxTokens: 256})
		Expect(err).NotTo(HaveOccurred())

		answer, err := g.Generate(context.Background(), "q")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("The cat sat."))
		Expect(key).To(Equal("ak"))
		Expect(version).To(Equal(anthropic.APIVersion))
		Expect(body).To(HaveKeyWithValue("max_tokens", BeNumerically("==", 256)))
	})

	It("surfaces API error bodies", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
		}))
		defer server.Close()

		g, err := anthropic.New(llm.Options{Model: "m", APIKey: "k", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = g.Generate(context.Background(), "q")
		Expect(err).To(MatchError(ContainSubstring("overloaded")))
	})

	It("returns ErrNoContent for an empty content list", func() {
		_, err := anthropic.Response{}.Text()
		Expect(errors.Is(err, llm.ErrNoContent)).To(BeTrue())
	})
})
