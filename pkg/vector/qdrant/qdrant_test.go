package qdrant_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/qdrant/go-client/qdrant"

	raglogger "github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/vector"
	ragqdrant "github.com/papercomputeco/ragline/pkg/vector/qdrant"
)

type fakeClient struct {
	exists   bool
	created  *qdrant.CreateCollection
	upserted *qdrant.UpsertPoints
	deleted  *qdrant.DeletePoints
	query    *qdrant.QueryPoints
	points   []*qdrant.ScoredPoint
	queryErr error
	closed   bool
}

func (f *fakeClient) CollectionExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeClient) CreateCollection(_ context.Context, r *qdrant.CreateCollection) error {
	f.created = r
	return nil
}

func (f *fakeClient) Upsert(_ context.Context, r *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserted = r
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) Query(_ context.Context, r *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.query = r
	return f.points, f.queryErr
}

func (f *fakeClient) Delete(_ context.Context, r *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	f.deleted = r
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func point(id, docID, text string, seq int, score float32) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Id: qdrant.NewID(id),
		Payload: qdrant.NewValueMap(map[string]any{
			"document_id": docID,
			"seq":         seq,
			"text":        text,
			"ingested_at": int64(0),
			"metadata":    map[string]any{"title": "Animals"},
		}),
		Score: score,
	}
}

var _ = Describe("Driver", func() {
	var (
		ctx  context.Context
		fake *fakeClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeClient{}
	})

	It("requires a host and dimensions", func() {
		_, err := ragqdrant.NewDriver(ctx, ragqdrant.Config{Dimensions: 3}, raglogger.Nop())
		Expect(err).To(MatchError(ContainSubstring("host is required")))

		_, err = ragqdrant.NewDriver(ctx, ragqdrant.Config{Host: "localhost"}, raglogger.Nop())
		Expect(err).To(MatchError(ContainSubstring("dimensions")))
	})

	It("creates a cosine collection when missing", func() {
		_, err := ragqdrant.NewDriverWithClient(ctx, fake, ragqdrant.Config{Dimensions: 3}, raglogger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.created).NotTo(BeNil())
		Expect(fake.created.CollectionName).To(Equal(ragqdrant.DefaultCollectionName))
		Expect(fake.created.GetVectorsConfig().GetParams().GetDistance()).To(Equal(qdrant.Distance_Cosine))
		Expect(fake.created.GetVectorsConfig().GetParams().GetSize()).To(BeNumerically("==", 3))
	})

	It("reuses an existing collection", func() {
		fake.exists = true
		_, err := ragqdrant.NewDriverWithClient(ctx, fake, ragqdrant.Config{CollectionName: "docs", Dimensions: 3}, raglogger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.created).To(BeNil())
	})

	Context("with a driver", func() {
		var driver *ragqdrant.Driver

		BeforeEach(func() {
			fake.exists = true
			var err error
			driver, err = ragqdrant.NewDriverWithClient(ctx, fake, ragqdrant.Config{Dimensions: 2}, raglogger.Nop())
			Expect(err).NotTo(HaveOccurred())
		})

		It("upserts points with chunk payloads and waits", func() {
			id := vector.ChunkID("doc-1", 0)
			Expect(driver.Upsert(ctx, []vector.Record{{
				ID: id, DocumentID: "doc-1", Text: "hello", Embedding: []float32{1, 0},
				IngestedAt: time.Unix(0, 42), Metadata: map[string]string{"title": "Greeting"},
			}})).To(Succeed())

			Expect(fake.upserted.GetWait()).To(BeTrue())
			Expect(fake.upserted.Points).To(HaveLen(1))
			p := fake.upserted.Points[0]
			Expect(p.GetId().GetUuid()).To(Equal(id))
			Expect(p.Payload["document_id"].GetStringValue()).To(Equal("doc-1"))
			Expect(p.Payload["ingested_at"].GetIntegerValue()).To(BeNumerically("==", 42))
		})

		It("converts scored points to ranked results", func() {
			fake.points = []*qdrant.ScoredPoint{
				point(vector.ChunkID("doc-1", 1), "doc-1", "second", 1, 0.5),
				point(vector.ChunkID("doc-1", 0), "doc-1", "first", 0, 0.5),
			}

			results, err := driver.Search(ctx, []float32{1, 0}, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.query.GetLimit()).To(BeNumerically("==", 4))
			Expect(results).To(HaveLen(2))
			Expect(results[0].Text).To(Equal("first"))
			Expect(results[0].Metadata).To(HaveKeyWithValue("title", "Animals"))
		})

		It("reports query failures as connection errors", func() {
			fake.queryErr = errors.New("unavailable")
			_, err := driver.Search(ctx, []float32{1, 0}, 4)
			Expect(errors.Is(err, vector.ErrConnection)).To(BeTrue())
		})

		It("deletes by document filter", func() {
			Expect(driver.Delete(ctx, "doc-1")).To(Succeed())
			must := fake.deleted.GetPoints().GetFilter().GetMust()
			Expect(must).To(HaveLen(1))
			Expect(must[0].GetField().GetKey()).To(Equal("document_id"))
			Expect(must[0].GetField().GetMatch().GetKeyword()).To(Equal("doc-1"))
		})

		It("deletes chunks by point ID", func() {
			id := vector.ChunkID("doc-1", 3)
			Expect(driver.DeleteChunks(ctx, []string{id})).To(Succeed())
			points := fake.deleted.GetPoints().GetPoints().GetIds()
			Expect(points).To(HaveLen(1))
			Expect(points[0].GetUuid()).To(Equal(id))
		})

		It("closes the client", func() {
			Expect(driver.Close()).To(Succeed())
			Expect(fake.closed).To(BeTrue())
		})
	})
})
