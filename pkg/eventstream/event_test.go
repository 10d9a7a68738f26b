package eventstream_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals DocumentIndexedEvent with expected top-level keys", func() {
		event := eventstream.NewDocumentIndexedEvent(
			eventstream.DocumentMeta{ID: "doc-1", Title: "Cats", Category: "animals"},
			eventstream.IndexMeta{ChunkCount: 5, Characters: 41, EmbeddingModel: "ollama/nomic-embed-text", DurationMs: 12},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("document"))
		Expect(got).To(HaveKey("index"))
		Expect(got["document"]).To(HaveKeyWithValue("id", "doc-1"))
		Expect(got["index"]).To(HaveKeyWithValue("chunk_count", BeNumerically("==", 5)))
	})

	It("fills the envelope", func() {
		event := eventstream.NewDocumentIndexedEvent(eventstream.DocumentMeta{ID: "doc-1"}, eventstream.IndexMeta{})
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal("ragline.document.indexed"))
		Expect(strings.HasPrefix(event.EventID, "evt_")).To(BeTrue())
		Expect(event.EmittedAt).NotTo(BeZero())
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil document event"))
	})
})
