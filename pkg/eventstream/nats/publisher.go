// Package nats publishes document events to a NATS subject with OpenTelemetry
// trace context in the message headers.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	natsgo "github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/papercomputeco/ragline/pkg/eventstream"
)

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "ragline.documents.indexed"

// Conn is the subset of *natsgo.Conn the publisher uses.
type Conn interface {
	PublishMsg(m *natsgo.Msg) error
	Drain() error
}

// Config configures the NATS publisher.
type Config struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL     string
	Subject string

	// Conn replaces the dialed connection; used in tests.
	Conn Conn

	Logger *slog.Logger
}

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier natsgo.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(natsgo.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher publishes JSON-encoded events to one subject.
type Publisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher connects to NATS unless a Conn is supplied.
func NewPublisher(c Config) (*Publisher, error) {
	subject := c.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn := c.Conn
	if conn == nil {
		if c.URL == "" {
			return nil, errors.New("nats URL is required")
		}
		nc, err := natsgo.Connect(c.URL,
			natsgo.Name("ragline"),
			natsgo.MaxReconnects(-1),
			natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
				if err != nil {
					logger.Warn("nats disconnected", "err", err)
				}
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		conn = nc
	}

	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// PublishIndexed serializes event as JSON and publishes it. Trace context from
// ctx is injected into the message headers.
func (p *Publisher) PublishIndexed(ctx context.Context, event *eventstream.DocumentIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &natsgo.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  natsgo.Header{},
	}
	msg.Header.Set("Nats-Msg-Id", event.EventID)
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish to %s: %w", p.subject, err)
	}

	p.logger.Debug("published document event",
		"subject", p.subject,
		"event_id", event.EventID,
		"document_id", event.Document.ID,
	)
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

var _ eventstream.Publisher = (*Publisher)(nil)
