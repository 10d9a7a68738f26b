package eventstreamutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/eventstream/kafka"
	"github.com/papercomputeco/ragline/pkg/eventstream/nop"
	eventstreamutils "github.com/papercomputeco/ragline/pkg/eventstream/utils"
	"github.com/papercomputeco/ragline/pkg/ragerr"
)

var _ = Describe("NewPublisher", func() {
	It("disables publishing when no provider is set", func() {
		p, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a kafka publisher without dialing", func() {
		p, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: "kafka",
			Brokers:      []string{"localhost:9092"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(p.Close()).To(Succeed())
	})

	It("requires brokers", func() {
		_, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{ProviderType: "nats"})
		Expect(err).To(MatchError(ragerr.ErrInvalidConfiguration))
	})

	It("rejects unknown providers", func() {
		_, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{ProviderType: "sqs"})
		Expect(err).To(MatchError(ContainSubstring("unsupported events provider")))
	})
})
