package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/logistics-locator/internal/config"
	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/observability"
)

// EventSubmissionCreated is the event_type of a new directory submission.
const EventSubmissionCreated = "submission.created"

// SubmissionEvent is the JSON payload consumed by the admin mailer.
type SubmissionEvent struct {
	EventType   string                `json:"event_type"`
	SubmittedAt time.Time             `json:"submitted_at"`
	Entry       domain.DirectoryEntry `json:"entry"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher announces new submissions on a Kafka topic.
// It implements domain.SubmissionNotifier.
type Publisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured submission topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSubmissionTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		// Submissions arrive one at a time; don't hold them for a batch.
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: w, metrics: metrics, logger: logger}
}

// NotifySubmission publishes a submission.created event keyed by entry ID.
func (p *Publisher) NotifySubmission(ctx context.Context, e domain.DirectoryEntry) error {
	msg, err := serializeToMessage(e)
	if err != nil {
		p.metrics.SubmissionsPublished.WithLabelValues("error").Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.SubmissionsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("publish submission %s: %w", e.ID, err)
	}
	p.metrics.SubmissionsPublished.WithLabelValues("success").Inc()
	p.logger.Debug("submission published", "entry_id", e.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a new entry into a submission event message.
func serializeToMessage(e domain.DirectoryEntry) (kafkago.Message, error) {
	submitted := e.CreatedAt.UTC()
	data, err := json.Marshal(SubmissionEvent{
		EventType:   EventSubmissionCreated,
		SubmittedAt: submitted,
		Entry:       e,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize submission event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(e.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventSubmissionCreated)},
			{Key: "submitted_at", Value: []byte(submitted.Format(time.RFC3339))},
		},
	}, nil
}
