package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIndexed is emitted after a document's chunks are indexed
	// and the document is registered.
	EventTypeDocumentIndexed = "ragline.document.indexed"
)

// DocumentIndexedEvent is a transport-neutral event payload for an ingested
// document.
type DocumentIndexedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Document      DocumentMeta `json:"document"`
	Index         IndexMeta    `json:"index"`
}

// DocumentMeta identifies the ingested document.
type DocumentMeta struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
}

// IndexMeta describes what was written to the vector index.
type IndexMeta struct {
	ChunkCount     int    `json:"chunk_count"`
	Characters     int    `json:"characters"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// NewDocumentIndexedEvent fills the envelope fields for doc and index.
func NewDocumentIndexedEvent(doc DocumentMeta, index IndexMeta) *DocumentIndexedEvent {
	return &DocumentIndexedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDocumentIndexed,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Document:      doc,
		Index:         index,
	}
}
