package sqlitevec_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	raglogger "github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/vector"
	"github.com/papercomputeco/ragline/pkg/vector/sqlitevec"
)

func chunk(docID string, index int, text string, emb []float32, at time.Time) vector.Record {
	return vector.Record{
		ID:         vector.ChunkID(docID, index),
		DocumentID: docID,
		Index:      index,
		Text:       text,
		Start:      index * 10,
		End:        index*10 + len(text),
		Embedding:  emb,
		Metadata:   map[string]string{"title": docID},
		IngestedAt: at,
	}
}

var _ = Describe("Driver", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = raglogger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{Dimensions: 4}, logger)
			Expect(err).To(MatchError(ContainSubstring("database path is required")))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("should implement vector.Driver", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Context("with an in-memory database", func() {
		var (
			ctx    context.Context
			driver *sqlitevec.Driver
			t0     time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			t0 = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:", Dimensions: 4}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing for an empty batch", func() {
			Expect(driver.Upsert(ctx, nil)).To(Succeed())
		})

		It("should return the closest chunks with their text and metadata", func() {
			Expect(driver.Upsert(ctx, []vector.Record{
				chunk("doc-1", 0, "cats", []float32{1, 0, 0, 0}, t0),
				chunk("doc-1", 1, "dogs", []float32{0, 1, 0, 0}, t0),
				chunk("doc-1", 2, "fish", []float32{0, 0, 1, 0}, t0),
			})).To(Succeed())

			results, err := driver.Search(ctx, []float32{0.9, 0.1, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Text).To(Equal("cats"))
			Expect(results[0].DocumentID).To(Equal("doc-1"))
			Expect(results[0].Metadata).To(HaveKeyWithValue("title", "doc-1"))
			Expect(results[0].IngestedAt).To(BeTemporally("==", t0))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		})

		It("should return every chunk when k exceeds the count", func() {
			Expect(driver.Upsert(ctx, []vector.Record{
				chunk("doc-1", 0, "a", []float32{1, 0, 0, 0}, t0),
				chunk("doc-1", 1, "b", []float32{0, 1, 0, 0}, t0),
			})).To(Succeed())

			results, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
		})

		It("should break score ties by insertion order", func() {
			same := []float32{0, 0, 0, 1}
			Expect(driver.Upsert(ctx, []vector.Record{chunk("doc-old", 0, "old", same, t0)})).To(Succeed())
			Expect(driver.Upsert(ctx, []vector.Record{chunk("doc-new", 0, "new", same, t0.Add(time.Hour))})).To(Succeed())

			results, err := driver.Search(ctx, same, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Text).To(Equal("old"))
			Expect(results[1].Text).To(Equal("new"))
		})

		It("should replace a chunk with the same ID", func() {
			Expect(driver.Upsert(ctx, []vector.Record{chunk("doc-1", 0, "before", []float32{1, 0, 0, 0}, t0)})).To(Succeed())
			Expect(driver.Upsert(ctx, []vector.Record{chunk("doc-1", 0, "after", []float32{1, 0, 0, 0}, t0)})).To(Succeed())

			results, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("after"))
		})

		It("should delete all chunks of a document", func() {
			Expect(driver.Upsert(ctx, []vector.Record{
				chunk("doc-1", 0, "a", []float32{1, 0, 0, 0}, t0),
				chunk("doc-1", 1, "b", []float32{1, 0, 0, 0}, t0),
				chunk("doc-2", 0, "c", []float32{1, 0, 0, 0}, t0),
			})).To(Succeed())

			Expect(driver.Delete(ctx, "doc-1")).To(Succeed())

			results, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].DocumentID).To(Equal("doc-2"))
		})

		It("should delete chunks by ID", func() {
			Expect(driver.Upsert(ctx, []vector.Record{
				chunk("doc-1", 0, "a", []float32{1, 0, 0, 0}, t0),
				chunk("doc-1", 1, "b", []float32{1, 0, 0, 0}, t0),
				chunk("doc-2", 0, "c", []float32{1, 0, 0, 0}, t0),
			})).To(Succeed())

			Expect(driver.DeleteChunks(ctx, []string{vector.ChunkID("doc-1", 1), vector.ChunkID("doc-2", 0)})).To(Succeed())

			results, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("a"))
		})

		It("should reject embeddings of the wrong size", func() {
			err := driver.Upsert(ctx, []vector.Record{chunk("doc-1", 0, "a", []float32{1, 0}, t0)})
			Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())
		})
	})
})
