package pgvector_test

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	raglogger "github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/vector"
	"github.com/papercomputeco/ragline/pkg/vector/pgvector"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("RAGLINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("RAGLINE_TEST_POSTGRES_DSN not set, skipping pgvector tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	It("validates its configuration", func() {
		ctx := context.Background()
		_, err := pgvector.NewDriver(ctx, pgvector.Config{Dimensions: 3}, raglogger.Nop())
		Expect(err).To(MatchError(ContainSubstring("connection string is required")))

		_, err = pgvector.NewDriver(ctx, pgvector.Config{ConnString: "postgres://x", Dimensions: 3, Table: "bad;name"}, raglogger.Nop())
		Expect(err).To(MatchError(ContainSubstring("invalid table name")))
	})

	Context("against a live database", func() {
		var (
			ctx    context.Context
			driver *pgvector.Driver
			t0     time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			t0 = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
			table := "test_chunks_" + uuid.NewString()[:8]

			var err error
			driver, err = pgvector.NewDriver(ctx, pgvector.Config{
				ConnString: connStr(),
				Table:      table,
				Dimensions: 2,
			}, raglogger.Nop())
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("upserts, searches and deletes chunks", func() {
			Expect(driver.Upsert(ctx, []vector.Record{
				{ID: vector.ChunkID("d1", 0), DocumentID: "d1", Index: 0, Text: "east", Embedding: []float32{1, 0}, IngestedAt: t0},
				{ID: vector.ChunkID("d1", 1), DocumentID: "d1", Index: 1, Text: "north", Embedding: []float32{0, 1}, IngestedAt: t0},
				{ID: vector.ChunkID("d2", 0), DocumentID: "d2", Index: 0, Text: "also east", Embedding: []float32{1, 0}, IngestedAt: t0.Add(time.Second)},
			})).To(Succeed())

			results, err := driver.Search(ctx, []float32{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].Text).To(Equal("east"))
			Expect(results[1].Text).To(Equal("also east"))

			Expect(driver.DeleteChunks(ctx, []string{vector.ChunkID("d1", 1)})).To(Succeed())
			results, err = driver.Search(ctx, []float32{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))

			Expect(driver.Delete(ctx, "d1")).To(Succeed())
			results, err = driver.Search(ctx, []float32{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})
	})
})
