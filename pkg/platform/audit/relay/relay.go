// Package relay drains the audit outbox into Kafka. The outbox pattern keeps
// audit appends transactional with verification state while Kafka delivery
// happens asynchronously and at-least-once.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"

	"verity/internal/platform/kafka/producer"
	audit "verity/pkg/platform/audit"
)

// Outbox is the slice of the postgres audit store the relay needs.
type Outbox interface {
	PendingBatch(ctx context.Context, limit int) ([]audit.Entry, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
}

// Relay polls the outbox and publishes pending entries to the audit topic.
type Relay struct {
	outbox    Outbox
	producer  *producer.Producer
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// New creates a relay polling at the given interval.
func New(outbox Outbox, prod *producer.Producer, topic string, interval time.Duration, logger *slog.Logger) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		outbox:    outbox,
		producer:  prod,
		topic:     topic,
		interval:  interval,
		batchSize: 100,
		logger:    logger,
	}
}

// EnsureTopic creates the audit topic if the broker does not have it yet.
func (r *Relay) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(r.producer.Client())
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, r.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic: %w", resp.Err)
	}
	return nil
}

// Run polls until ctx is canceled. Publish failures leave rows pending; they
// are retried on the next tick, which is where at-least-once comes from.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil && r.logger != nil {
				r.logger.WarnContext(ctx, "audit relay pass failed", "error", err)
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	batch, err := r.outbox.PendingBatch(ctx, r.batchSize)
	if err != nil {
		return err
	}
	for _, entry := range batch {
		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal audit entry %s: %w", entry.ID, err)
		}
		msg := &producer.Message{
			Topic: r.topic,
			Key:   []byte(entry.ReferenceID),
			Value: value,
			Headers: map[string]string{
				"operation": string(entry.Operation),
			},
		}
		if err := r.producer.Produce(ctx, msg); err != nil {
			return fmt.Errorf("publish audit entry %s: %w", entry.ID, err)
		}
		if err := r.outbox.MarkPublished(ctx, entry.ID); err != nil {
			return err
		}
	}
	return nil
}
