package retry_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/retry"
)

var errFlaky = errors.New("flaky")

var _ = Describe("Do", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("makes a single attempt with the zero policy", func() {
		calls := 0
		err := retry.Do(ctx, retry.Policy{}, 0, func(context.Context) error {
			calls++
			return errFlaky
		})
		Expect(err).To(MatchError(errFlaky))
		Expect(calls).To(Equal(1))
	})

	It("retries until the call succeeds", func() {
		calls := 0
		err := retry.Do(ctx, retry.Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond}, 0, func(context.Context) error {
			calls++
			if calls < 3 {
				return errFlaky
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(3))
	})

	It("returns the last error once attempts are exhausted", func() {
		calls := 0
		err := retry.Do(ctx, retry.Policy{MaxAttempts: 2}, 0, func(context.Context) error {
			calls++
			return errFlaky
		})
		Expect(err).To(MatchError(errFlaky))
		Expect(calls).To(Equal(2))
	})

	It("bounds every attempt by the timeout", func() {
		calls := 0
		err := retry.Do(ctx, retry.Policy{MaxAttempts: 2}, 10*time.Millisecond, func(ctx context.Context) error {
			calls++
			<-ctx.Done()
			return ctx.Err()
		})
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(calls).To(Equal(2))
	})

	It("stops waiting when the parent context is cancelled", func() {
		ctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := retry.Do(ctx, retry.Policy{MaxAttempts: 10, InitialBackoff: time.Hour}, 0, func(context.Context) error {
			calls++
			cancel()
			return errFlaky
		})
		Expect(err).To(MatchError(errFlaky))
		Expect(calls).To(Equal(1))
	})
})

var _ = Describe("Value", func() {
	It("returns the successful result", func() {
		calls := 0
		v, err := retry.Value(context.Background(), retry.Policy{MaxAttempts: 3}, time.Second, func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, errFlaky
			}
			return 42, nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(42))
	})
})

var _ = Describe("Policy", func() {
	It("doubles the backoff up to the cap", func() {
		p := retry.Policy{MaxAttempts: 6, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 350 * time.Millisecond}
		Expect(p.Backoff(1)).To(Equal(100 * time.Millisecond))
		Expect(p.Backoff(2)).To(Equal(200 * time.Millisecond))
		Expect(p.Backoff(3)).To(Equal(350 * time.Millisecond))
		Expect(p.Backoff(5)).To(Equal(350 * time.Millisecond))
	})

	It("treats non-positive attempts as one", func() {
		Expect(retry.Policy{MaxAttempts: -1}.Attempts()).To(Equal(1))
	})
})
