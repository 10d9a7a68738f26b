package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/chunker"
	"github.com/papercomputeco/ragline/pkg/ingest"
	raglogger "github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/rag"
	"github.com/papercomputeco/ragline/pkg/ragerr"
	"github.com/papercomputeco/ragline/pkg/storage"
	testutils "github.com/papercomputeco/ragline/pkg/utils/test"
)

// testServer wires a pipeline and orchestrator over shared mocks.
type testServer struct {
	server    *Server
	embedder  *testutils.MockEmbedder
	vectors   *testutils.MockVectorDriver
	generator *testutils.MockGenerator
}

func newTestServer() *testServer {
	ts := &testServer{
		embedder:  testutils.NewMockEmbedder(),
		vectors:   testutils.NewMockVectorDriver(),
		generator: &testutils.MockGenerator{Response: "It sat."},
	}
	ts.embedder.Func = testutils.LetterEmbedding
	logger := raglogger.Nop()

	pipeline, err := ingest.New(ingest.Config{
		Chunking:     chunker.Policy{Size: 12, Overlap: 4},
		Embedder:     ts.embedder,
		VectorDriver: ts.vectors,
		Logger:       logger,
	})
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(pipeline.Close)

	orchestrator, err := rag.New(rag.Config{
		Embedder:     ts.embedder,
		VectorDriver: ts.vectors,
		Generator:    ts.generator,
		Logger:       logger,
	})
	Expect(err).NotTo(HaveOccurred())

	ts.server, err = NewServer(Config{
		ListenAddr:   ":0",
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
	}, logger)
	Expect(err).NotTo(HaveOccurred())
	return ts
}

func doRequest(s *Server, method, target, body string) (*http.Response, []byte) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())

	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, data
}

var _ = Describe("Server", func() {
	var ts *testServer

	BeforeEach(func() {
		ts = newTestServer()
	})

	ingestCats := func() string {
		resp, body := doRequest(ts.server, http.MethodPost, "/v1/documents",
			`{"id":"cats","title":"Pets","category":"animals","text":"The cat sat. The dog ran. The fish swam."}`)
		Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

		var created CreateDocumentResponse
		Expect(json.Unmarshal(body, &created)).To(Succeed())
		return created.ID
	}

	It("answers ping", func() {
		resp, body := doRequest(ts.server, http.MethodGet, "/ping", "")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("POST /v1/documents", func() {
		It("ingests the document and reports the chunk count", func() {
			resp, body := doRequest(ts.server, http.MethodPost, "/v1/documents",
				`{"id":"cats","title":"Pets","category":"animals","text":"The cat sat. The dog ran. The fish swam."}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var created CreateDocumentResponse
			Expect(json.Unmarshal(body, &created)).To(Succeed())
			Expect(created.ID).To(Equal("cats"))
			Expect(created.Chunks).To(Equal(5))
			Expect(ts.vectors.Len()).To(Equal(5))
		})

		It("assigns an ID when none is given", func() {
			resp, body := doRequest(ts.server, http.MethodPost, "/v1/documents", `{"title":"t","text":"some text"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var created CreateDocumentResponse
			Expect(json.Unmarshal(body, &created)).To(Succeed())
			Expect(created.ID).NotTo(BeEmpty())
		})

		It("returns 400 for an empty document", func() {
			resp, body := doRequest(ts.server, http.MethodPost, "/v1/documents", `{"title":"t","text":"   "}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("empty document"))
		})

		It("returns 400 for a malformed body", func() {
			resp, body := doRequest(ts.server, http.MethodPost, "/v1/documents", `{"title":`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("invalid request body"))
		})

		It("returns 502 when the embedder fails", func() {
			ts.embedder.FailOn = "only chunk"
			resp, _ := doRequest(ts.server, http.MethodPost, "/v1/documents", `{"text":"only chunk"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))
		})

		It("returns 500 when the index write fails", func() {
			ts.vectors.FailUpserts = 1
			resp, body := doRequest(ts.server, http.MethodPost, "/v1/documents", `{"text":"doomed"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
			Expect(string(body)).To(ContainSubstring("index write failure"))
		})
	})

	Describe("document registry routes", func() {
		It("lists and gets registered documents", func() {
			ingestCats()

			resp, body := doRequest(ts.server, http.MethodGet, "/v1/documents", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			var docs []storage.Document
			Expect(json.Unmarshal(body, &docs)).To(Succeed())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Title).To(Equal("Pets"))

			resp, body = doRequest(ts.server, http.MethodGet, "/v1/documents/cats", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			var doc storage.Document
			Expect(json.Unmarshal(body, &doc)).To(Succeed())
			Expect(doc.ChunkCount).To(Equal(5))
			Expect(doc.Category).To(Equal("animals"))
		})

		It("returns 404 for unknown documents", func() {
			resp, _ := doRequest(ts.server, http.MethodGet, "/v1/documents/missing", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))

			resp, _ = doRequest(ts.server, http.MethodDelete, "/v1/documents/missing", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		It("deletes the document and its chunks", func() {
			ingestCats()

			resp, _ := doRequest(ts.server, http.MethodDelete, "/v1/documents/cats", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))
			Expect(ts.vectors.Len()).To(BeZero())
			Expect(ts.vectors.Deleted).To(ContainElement("cats"))

			resp, _ = doRequest(ts.server, http.MethodGet, "/v1/documents/cats", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("GET /v1/search", func() {
		It("returns ranked chunks", func() {
			ingestCats()

			resp, body := doRequest(ts.server, http.MethodGet, "/v1/search?query=cat&top_k=2", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out struct {
				Query   string `json:"query"`
				Count   int    `json:"count"`
				Results []struct {
					DocumentID string  `json:"document_id"`
					Title      string  `json:"title"`
					Score      float32 `json:"score"`
				} `json:"results"`
			}
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Query).To(Equal("cat"))
			Expect(out.Count).To(Equal(2))
			Expect(out.Results[0].DocumentID).To(Equal("cats"))
			Expect(out.Results[0].Title).To(Equal("Pets"))
			Expect(out.Results[0].Score).To(BeNumerically(">=", out.Results[1].Score))
		})

		It("returns 400 when query is missing", func() {
			resp, body := doRequest(ts.server, http.MethodGet, "/v1/search", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("query parameter is required"))
		})

		It("returns 400 for a non-positive top_k", func() {
			resp, _ := doRequest(ts.server, http.MethodGet, "/v1/search?query=cat&top_k=0", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			resp, _ = doRequest(ts.server, http.MethodGet, "/v1/search?query=cat&top_k=abc", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 503 when the index is unavailable", func() {
			ts.vectors.SearchErr = errors.New("connection refused")
			resp, body := doRequest(ts.server, http.MethodGet, "/v1/search?query=cat", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
			Expect(string(body)).To(ContainSubstring("index unavailable"))
		})
	})

	Describe("POST /v1/ask", func() {
		It("returns the answer with its retrieval", func() {
			ingestCats()

			resp, body := doRequest(ts.server, http.MethodPost, "/v1/ask", `{"question":"What did the cat do?","top_k":2}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var answer rag.Answer
			Expect(json.Unmarshal(body, &answer)).To(Succeed())
			Expect(answer.Question).To(Equal("What did the cat do?"))
			Expect(answer.Text).To(Equal("It sat."))
			Expect(answer.Retrieval).To(HaveLen(2))
		})

		It("returns 400 for an empty question", func() {
			resp, body := doRequest(ts.server, http.MethodPost, "/v1/ask", `{"question":"  "}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("empty question"))
		})

		It("returns 502 when generation fails", func() {
			ts.generator.Err = errors.New("model overloaded")
			resp, _ := doRequest(ts.server, http.MethodPost, "/v1/ask", `{"question":"cat?"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))
		})
	})

	Context("when nothing is configured", func() {
		It("returns 503 on every pipeline route", func() {
			s, err := NewServer(Config{ListenAddr: ":0"}, raglogger.Nop())
			Expect(err).NotTo(HaveOccurred())

			for _, route := range [][2]string{
				{http.MethodGet, "/v1/documents"},
				{http.MethodGet, "/v1/documents/x"},
				{http.MethodDelete, "/v1/documents/x"},
				{http.MethodGet, "/v1/search?query=x"},
			} {
				resp, _ := doRequest(s, route[0], route[1], "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable), route[1])
			}

			resp, _ := doRequest(s, http.MethodPost, "/v1/ask", `{"question":"x"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})
})

var _ = Describe("statusFor", func() {
	DescribeTable("maps error kinds to status codes",
		func(err error, status int) {
			Expect(statusFor(err)).To(Equal(status))
		},
		Entry("empty document", ragerr.New(ragerr.ErrEmptyDocument, ragerr.StageValidate, "d", nil), fiber.StatusBadRequest),
		Entry("empty question", ragerr.New(ragerr.ErrEmptyQuestion, ragerr.StageRetrieve, "", nil), fiber.StatusBadRequest),
		Entry("invalid configuration", ragerr.Invalid("bad"), fiber.StatusBadRequest),
		Entry("index unavailable", ragerr.New(ragerr.ErrIndexUnavailable, ragerr.StageRetrieve, "", nil), fiber.StatusServiceUnavailable),
		Entry("embedding failure", ragerr.New(ragerr.ErrEmbeddingFailure, ragerr.StageEmbed, "d", nil), fiber.StatusBadGateway),
		Entry("generation failure", ragerr.New(ragerr.ErrGenerationFailure, ragerr.StageGenerate, "", nil), fiber.StatusBadGateway),
		Entry("index write failure", ragerr.New(ragerr.ErrIndexWriteFailure, ragerr.StageIndex, "d", nil), fiber.StatusInternalServerError),
		Entry("not found", &storage.NotFoundError{ID: "d"}, fiber.StatusNotFound),
		Entry("anything else", errors.New("boom"), fiber.StatusInternalServerError),
	)
})
