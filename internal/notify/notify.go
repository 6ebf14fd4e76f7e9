// Package notify publishes run results to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// AdmittedBatch is the message published after a run stages new
// listings.
type AdmittedBatch struct {
	RunID    string   `json:"run_id"`
	Admitted int      `json:"admitted"`
	IDs      []string `json:"job_ids"`
}

// Publisher sends one payload and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
	Close() error
}

// PubSubPublisher publishes JSON-encoded payloads to a Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubPublisher dials Pub/Sub and verifies the topic exists.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("notify.project_id and notify.topic_id are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check topic %s: %w", topicID, err)
	}
	if !ok {
		_ = client.Close()
		return nil, fmt.Errorf("topic %s does not exist", topicID)
	}
	return &PubSubPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish encodes the payload as JSON and blocks until the broker
// acknowledges it.
func (p *PubSubPublisher) Publish(ctx context.Context, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode notification: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish notification: %w", err)
	}
	p.logger.Debug("notification published",
		zap.String("message_id", id),
		zap.String("topic", p.topic.ID()),
	)
	return id, nil
}

// Close flushes the topic and releases the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// MemoryPublisher records payloads in process memory. Test double.
type MemoryPublisher struct {
	mu       sync.Mutex
	payloads []any
}

// NewMemoryPublisher creates an empty recorder.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the payload and returns a sequential id.
func (m *MemoryPublisher) Publish(_ context.Context, payload any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return fmt.Sprintf("mem-%d", len(m.payloads)), nil
}

// Payloads returns everything published so far.
func (m *MemoryPublisher) Payloads() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.payloads))
	copy(out, m.payloads)
	return out
}

// Close is a no-op.
func (m *MemoryPublisher) Close() error { return nil }

// DiscardPublisher drops payloads. Used when notification is disabled.
type DiscardPublisher struct{}

func (DiscardPublisher) Publish(context.Context, any) (string, error) { return "", nil }

func (DiscardPublisher) Close() error { return nil }
