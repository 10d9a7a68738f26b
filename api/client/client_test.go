package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/api/client"
)

var _ = Describe("Client", func() {
	var (
		ctx     context.Context
		server  *httptest.Server
		lastReq *http.Request
		body    map[string]any
	)

	BeforeEach(func() {
		ctx = context.Background()
		body = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastReq = r
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/v1/search":
				json.NewEncoder(w).Encode(map[string]any{
					"query":   r.URL.Query().Get("query"),
					"count":   1,
					"results": []map[string]any{{"chunk_id": "d#0", "document_id": "d", "score": 0.5, "text": "The cat sat."}},
				})
			case "/v1/ask":
				json.NewDecoder(r.Body).Decode(&body)
				if body["question"] == "" {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte(`{"error":"generate: empty question"}`))
					return
				}
				json.NewEncoder(w).Encode(map[string]any{
					"question":  body["question"],
					"answer":    "It sat.",
					"retrieval": []map[string]any{{"id": "d#0", "document_id": "d", "text": "The cat sat.", "score": 0.9}},
				})
			default:
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("nope"))
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("rejects targets that are not URLs", func() {
		_, err := client.New("localhost")
		Expect(err).To(MatchError(ContainSubstring("invalid API target URL")))
	})

	It("searches with query and top_k", func() {
		c, err := client.New(server.URL)
		Expect(err).NotTo(HaveOccurred())

		out, err := c.Search(ctx, "cats", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(lastReq.URL.Query().Get("top_k")).To(Equal("3"))
		Expect(out.Query).To(Equal("cats"))
		Expect(out.Results).To(HaveLen(1))
		Expect(out.Results[0].Text).To(Equal("The cat sat."))
	})

	It("omits top_k when zero", func() {
		c, _ := client.New(server.URL)
		_, err := c.Search(ctx, "cats", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(lastReq.URL.Query().Has("top_k")).To(BeFalse())
	})

	It("asks and decodes the answer with its retrieval", func() {
		c, _ := client.New(server.URL)

		answer, err := c.Ask(ctx, "Where did the cat sit?", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(HaveKeyWithValue("top_k", BeNumerically("==", 2)))
		Expect(answer.Text).To(Equal("It sat."))
		Expect(answer.Retrieval).To(HaveLen(1))
		Expect(answer.Retrieval[0].DocumentID).To(Equal("d"))
	})

	It("surfaces the server's error message", func() {
		c, _ := client.New(server.URL)

		_, err := c.Ask(ctx, "", 0)
		var statusErr *client.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.Code).To(Equal(http.StatusBadRequest))
		Expect(statusErr.Message).To(Equal("generate: empty question"))
	})

	It("reports connection failures", func() {
		c, _ := client.New("http://127.0.0.1:1")
		_, err := c.Search(ctx, "cats", 1)
		Expect(err).To(MatchError(ContainSubstring("failed to connect")))
	})
})
