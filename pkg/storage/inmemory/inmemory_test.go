package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/storage"
	"github.com/papercomputeco/ragline/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/ragline/pkg/utils/test"
)

var _ = Describe("Driver", func() {
	testutils.DescribeRegistry(func() storage.Driver {
		return inmemory.NewDriver()
	})

	It("does not share metadata maps with callers", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		meta := map[string]string{"k": "v"}
		Expect(d.Put(ctx, &storage.Document{ID: "doc", Metadata: meta})).To(Succeed())

		meta["k"] = "changed"
		got, err := d.Get(ctx, "doc")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Metadata).To(HaveKeyWithValue("k", "v"))
	})

	It("rejects nil documents", func() {
		Expect(inmemory.NewDriver().Put(context.Background(), nil)).To(HaveOccurred())
	})
})
