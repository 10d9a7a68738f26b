package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	raglogger "github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/worker"
)

var _ = Describe("Worker Pool", func() {
	newPool := func(workers, queue uint) *worker.Pool {
		wp, err := worker.NewPool(&worker.Config{
			NumWorkers: workers,
			QueueSize:  queue,
			Logger:     raglogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return wp
	}

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			wp := newPool(1, 4)
			var ran atomic.Bool
			Expect(wp.Enqueue(worker.Job{ID: "a", Run: func() error { ran.Store(true); return nil }})).To(BeTrue())
			wp.Close()
			Expect(ran.Load()).To(BeTrue())
		})

		It("drops jobs when the queue is full", func() {
			wp := newPool(1, 1)
			release := make(chan struct{})
			started := make(chan struct{})

			Expect(wp.Enqueue(worker.Job{ID: "blocker", Run: func() error {
				close(started)
				<-release
				return nil
			}})).To(BeTrue())
			Eventually(started).Should(BeClosed())

			Expect(wp.Enqueue(worker.Job{ID: "queued", Run: func() error { return nil }})).To(BeTrue())
			Expect(wp.Enqueue(worker.Job{ID: "dropped", Run: func() error { return nil }})).To(BeFalse())

			close(release)
			wp.Close()
		})

		It("refuses jobs after Close", func() {
			wp := newPool(1, 1)
			wp.Close()
			Expect(wp.Enqueue(worker.Job{ID: "late", Run: func() error { return nil }})).To(BeFalse())
		})
	})

	Describe("Submit", func() {
		It("runs every job across workers and drains on Close", func() {
			wp := newPool(4, 2)
			var (
				mu   sync.Mutex
				seen []int
			)
			for i := range 20 {
				Expect(wp.Submit(context.Background(), worker.Job{Run: func() error {
					mu.Lock()
					seen = append(seen, i)
					mu.Unlock()
					return nil
				}})).To(Succeed())
			}
			wp.Close()
			Expect(seen).To(HaveLen(20))
		})

		It("keeps running after a job fails", func() {
			wp := newPool(1, 2)
			var ran atomic.Int32
			Expect(wp.Submit(context.Background(), worker.Job{Run: func() error { return errors.New("boom") }})).To(Succeed())
			Expect(wp.Submit(context.Background(), worker.Job{Run: func() error { ran.Add(1); return nil }})).To(Succeed())
			wp.Close()
			Expect(ran.Load()).To(Equal(int32(1)))
		})

		It("gives up when the context is done while the queue is full", func() {
			wp := newPool(1, 1)
			release := make(chan struct{})
			started := make(chan struct{})
			Expect(wp.Submit(context.Background(), worker.Job{Run: func() error {
				close(started)
				<-release
				return nil
			}})).To(Succeed())
			Eventually(started).Should(BeClosed())
			Expect(wp.Submit(context.Background(), worker.Job{Run: func() error { return nil }})).To(Succeed())

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			Expect(wp.Submit(ctx, worker.Job{Run: func() error { return nil }})).To(MatchError(context.DeadlineExceeded))

			close(release)
			wp.Close()
		})

		It("returns ErrClosed after Close", func() {
			wp := newPool(1, 1)
			wp.Close()
			Expect(wp.Submit(context.Background(), worker.Job{})).To(MatchError(worker.ErrClosed))
		})
	})
})
