package testutils

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/storage"
)

// DescribeRegistry registers the behaviour every storage.Driver must share.
// newDriver is called before each test; the driver is closed after it.
func DescribeRegistry(newDriver func() storage.Driver) {
	Describe("registry behaviour", func() {
		var (
			ctx    context.Context
			driver storage.Driver
			t0     time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
			t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("round-trips a document", func() {
			doc := &storage.Document{
				ID:         "doc-1",
				Title:      "Cats",
				Category:   "animals",
				Source:     "docs/animals/cats.md",
				ChunkCount: 5,
				Characters: 41,
				Metadata:   map[string]string{"lang": "en"},
				CreatedAt:  t0,
				Version:    "v-1",
			}
			Expect(driver.Put(ctx, doc)).To(Succeed())

			got, err := driver.Get(ctx, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Cats"))
			Expect(got.Category).To(Equal("animals"))
			Expect(got.Source).To(Equal("docs/animals/cats.md"))
			Expect(got.ChunkCount).To(Equal(5))
			Expect(got.Characters).To(Equal(41))
			Expect(got.Metadata).To(Equal(map[string]string{"lang": "en"}))
			Expect(got.CreatedAt.Equal(t0)).To(BeTrue())
			Expect(got.Version).To(Equal("v-1"))
		})

		It("replaces a document with the same ID", func() {
			Expect(driver.Put(ctx, &storage.Document{ID: "doc-1", Title: "old", CreatedAt: t0, Version: "v-1"})).To(Succeed())
			Expect(driver.Put(ctx, &storage.Document{ID: "doc-1", Title: "new", CreatedAt: t0, Version: "v-2"})).To(Succeed())

			docs, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Title).To(Equal("new"))
			Expect(docs[0].Version).To(Equal("v-2"))
		})

		It("lists documents oldest first", func() {
			Expect(driver.Put(ctx, &storage.Document{ID: "b", CreatedAt: t0.Add(time.Minute)})).To(Succeed())
			Expect(driver.Put(ctx, &storage.Document{ID: "a", CreatedAt: t0.Add(2 * time.Minute)})).To(Succeed())
			Expect(driver.Put(ctx, &storage.Document{ID: "c", CreatedAt: t0})).To(Succeed())

			docs, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.ID
			}
			Expect(ids).To(Equal([]string{"c", "b", "a"}))
		})

		It("returns NotFoundError for unknown IDs", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.ErrNotFound))
			Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))

			Expect(driver.Delete(ctx, "missing")).To(MatchError(storage.ErrNotFound))
		})

		It("deletes documents", func() {
			Expect(driver.Put(ctx, &storage.Document{ID: "doc-1", CreatedAt: t0})).To(Succeed())
			Expect(driver.Delete(ctx, "doc-1")).To(Succeed())

			_, err := driver.Get(ctx, "doc-1")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("rejects documents without an ID", func() {
			Expect(driver.Put(ctx, &storage.Document{Title: "anonymous"})).To(MatchError(ContainSubstring("ID is required")))
		})
	})
}
