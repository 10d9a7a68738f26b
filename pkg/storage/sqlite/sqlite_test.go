package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/storage"
	"github.com/papercomputeco/ragline/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/ragline/pkg/utils/test"
)

var _ = Describe("SQLiteDriver", func() {
	testutils.DescribeRegistry(func() storage.Driver {
		driver, err := sqlite.NewSQLiteDriver(context.Background(), ":memory:")
		Expect(err).NotTo(HaveOccurred())
		return driver
	})

	Describe("NewSQLiteDriver", func() {
		It("creates a driver with file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "test.db")

			s, err := sqlite.NewSQLiteDriver(context.Background(), dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			// Verify file was created
			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists documents across reopen", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "registry.db")

			s, err := sqlite.NewSQLiteDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Put(ctx, &storage.Document{ID: "doc-1", Title: "Cats", CreatedAt: time.Now()})).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewSQLiteDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			doc, err := s.Get(ctx, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Title).To(Equal("Cats"))
		})
	})
})
