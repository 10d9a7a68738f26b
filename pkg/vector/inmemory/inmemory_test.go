package inmemory_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/vector"
	"github.com/papercomputeco/ragline/pkg/vector/inmemory"
)

func record(docID string, index int, text string, emb []float32, at time.Time) vector.Record {
	return vector.Record{
		ID:         vector.ChunkID(docID, index),
		DocumentID: docID,
		Index:      index,
		Text:       text,
		Embedding:  emb,
		IngestedAt: at,
	}
}

func ids(results []vector.QueryResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		t0     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver(logger.Nop())
		t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	It("returns records by descending cosine similarity", func() {
		Expect(driver.Upsert(ctx, []vector.Record{
			record("a", 0, "east", []float32{1, 0}, t0),
			record("a", 1, "north", []float32{0, 1}, t0),
			record("a", 2, "north-east", []float32{1, 1}, t0),
		})).To(Succeed())

		results, err := driver.Search(ctx, []float32{1, 0.1}, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"east", "north-east", "north"}))
		Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
	})

	It("breaks ties by insertion order", func() {
		Expect(driver.Upsert(ctx, []vector.Record{record("b", 0, "later doc", []float32{1, 0}, t0.Add(time.Second))})).To(Succeed())
		Expect(driver.Upsert(ctx, []vector.Record{
			record("a", 0, "first", []float32{1, 0}, t0),
			record("a", 1, "second", []float32{1, 0}, t0),
		})).To(Succeed())

		results, err := driver.Search(ctx, []float32{1, 0}, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"first", "second", "later doc"}))
	})

	It("returns everything when k exceeds the record count", func() {
		Expect(driver.Upsert(ctx, []vector.Record{
			record("a", 0, "one", []float32{1, 0}, t0),
			record("a", 1, "two", []float32{0, 1}, t0),
		})).To(Succeed())

		results, err := driver.Search(ctx, []float32{1, 0}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
	})

	It("returns nothing from an empty index", func() {
		results, err := driver.Search(ctx, []float32{1, 0}, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("replaces records with the same ID", func() {
		Expect(driver.Upsert(ctx, []vector.Record{record("a", 0, "old", []float32{1, 0}, t0)})).To(Succeed())
		Expect(driver.Upsert(ctx, []vector.Record{record("a", 0, "new", []float32{1, 0}, t0)})).To(Succeed())

		Expect(driver.Len()).To(Equal(1))
		results, err := driver.Search(ctx, []float32{1, 0}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Text).To(Equal("new"))
	})

	It("deletes every chunk of a document", func() {
		Expect(driver.Upsert(ctx, []vector.Record{
			record("a", 0, "a0", []float32{1, 0}, t0),
			record("b", 0, "b0", []float32{1, 0}, t0),
			record("a", 1, "a1", []float32{1, 0}, t0),
		})).To(Succeed())

		Expect(driver.Delete(ctx, "a")).To(Succeed())
		Expect(driver.Delete(ctx, "missing")).To(Succeed())

		results, err := driver.Search(ctx, []float32{1, 0}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"b0"}))
	})

	It("deletes chunks by ID and keeps the rest in order", func() {
		Expect(driver.Upsert(ctx, []vector.Record{
			record("a", 0, "a0", []float32{1, 0}, t0),
			record("a", 1, "a1", []float32{1, 0}, t0),
			record("b", 0, "b0", []float32{1, 0}, t0),
		})).To(Succeed())

		Expect(driver.DeleteChunks(ctx, []string{vector.ChunkID("a", 0), "unknown"})).To(Succeed())
		Expect(driver.DeleteChunks(ctx, nil)).To(Succeed())

		results, err := driver.Search(ctx, []float32{1, 0}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"a1", "b0"}))
	})

	It("rejects mismatched dimensions", func() {
		Expect(driver.Upsert(ctx, []vector.Record{record("a", 0, "x", []float32{1, 0}, t0)})).To(Succeed())

		err := driver.Upsert(ctx, []vector.Record{record("a", 1, "y", []float32{1, 0, 0}, t0)})
		Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())

		_, err = driver.Search(ctx, []float32{1}, 1)
		Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())
	})
})
