// Package eventstreamutils builds an eventstream.Publisher from configuration.
package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/ragline/pkg/eventstream"
	"github.com/papercomputeco/ragline/pkg/eventstream/kafka"
	"github.com/papercomputeco/ragline/pkg/eventstream/nats"
	"github.com/papercomputeco/ragline/pkg/eventstream/nop"
	"github.com/papercomputeco/ragline/pkg/ragerr"
)

type NewPublisherOpts struct {
	ProviderType string

	// Brokers are Kafka broker addresses, or a single NATS URL.
	Brokers []string
	Topic   string
	Logger  *slog.Logger
}

// NewPublisher returns the nop publisher when no provider is configured.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "none", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		if len(o.Brokers) == 0 {
			return nil, ragerr.Invalid("events.brokers is required for provider \"kafka\"")
		}
		return kafka.NewPublisher(kafka.Config{Brokers: o.Brokers, Topic: o.Topic, Logger: o.Logger})
	case "nats":
		if len(o.Brokers) == 0 {
			return nil, ragerr.Invalid("events.brokers is required for provider \"nats\"")
		}
		return nats.NewPublisher(nats.Config{URL: o.Brokers[0], Subject: o.Topic, Logger: o.Logger})
	default:
		return nil, ragerr.Invalid(fmt.Sprintf("unsupported events provider: %q", o.ProviderType))
	}
}
