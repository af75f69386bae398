// Package pubsub exports documents to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.opentelemetry.io/otel"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/publisher"
)

// Topic is the subset of *pubsub.Publisher the exporter needs.
type Topic interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
	Stop()
}

// Exporter publishes one message per document and waits for the server
// acknowledgement before returning.
type Exporter struct {
	topic  Topic
	client *pubsub.Client
	clock  ingest.Clock
}

// New creates an Exporter for the provided topic publisher. client may be nil
// when the caller owns its lifecycle.
func New(topic Topic, client *pubsub.Client, clock ingest.Clock) *Exporter {
	return &Exporter{topic: topic, client: client, clock: clock}
}

// Dial connects to projectID and returns an exporter for topicID.
func Dial(ctx context.Context, projectID, topicID string, clock ingest.Clock) (*Exporter, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return New(client.Publisher(topicID), client, clock), nil
}

// Export implements ingest.Exporter.
func (e *Exporter) Export(ctx context.Context, rec ingest.ScoredRecord) error {
	if e.topic == nil {
		return fmt.Errorf("pubsub publisher is not configured")
	}
	doc := publisher.NewDocument(rec, e.clock.Now())
	data, err := publisher.Marshal(doc)
	if err != nil {
		return err
	}

	msg := &pubsub.Message{Data: data}
	msg.Attributes = map[string]string{
		"domain": doc.Domain,
		"run_id": doc.RunID,
	}
	otel.GetTextMapPropagator().Inject(ctx, &pubsubCarrier{attrs: msg.Attributes})

	result := e.topic.Publish(ctx, msg)
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close flushes pending publishes and closes the client if owned.
func (e *Exporter) Close(_ context.Context) error {
	if e.topic != nil {
		e.topic.Stop()
	}
	if e.client != nil {
		if err := e.client.Close(); err != nil {
			return fmt.Errorf("failed to close pubsub client: %w", err)
		}
	}
	return nil
}

// pubsubCarrier implements propagation.TextMapCarrier for Pub/Sub attributes.
type pubsubCarrier struct {
	attrs map[string]string
}

func (c *pubsubCarrier) Get(key string) string {
	return c.attrs[key]
}

func (c *pubsubCarrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *pubsubCarrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}

var _ ingest.Exporter = (*Exporter)(nil)
