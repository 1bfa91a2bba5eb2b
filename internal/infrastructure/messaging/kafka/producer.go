package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
)

// eventSource identifies this service in envelopes.
const eventSource = "ultrathink-engine"

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes.  Safe for concurrent use.
type Producer struct {
	writer WriterInterface
	prefix string
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer builds a Producer against the configured brokers.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  cfg.ProducerRetries,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: time.Second,
		Async:        cfg.Async,
	}
	return &Producer{
		writer: w,
		prefix: cfg.TopicPrefix,
		logger: log.Named("kafka"),
	}
}

// NewProducerWithWriter injects a custom writer.  Intended for tests.
func NewProducerWithWriter(w WriterInterface, prefix string, log logging.Logger) *Producer {
	return &Producer{writer: w, prefix: prefix, logger: log.Named("kafka")}
}

// Publish wraps payload in an EventEnvelope and writes it to the prefixed
// topic, keyed for partition affinity.
func (p *Producer) Publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	if p.closed.Load() {
		return errors.New(errors.CodePublishError, "producer is closed")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "marshal event payload")
	}
	envelope := EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        eventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       raw,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "marshal event envelope")
	}

	fullTopic := topic
	if p.prefix != "" {
		fullTopic = p.prefix + "." + topic
	}
	msg := kafka.Message{
		Topic: fullTopic,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish failed",
			logging.String("topic", fullTopic), logging.Err(err))
		return errors.Wrap(err, errors.CodePublishError, "failed to publish event")
	}
	p.logger.Debug("event published",
		logging.String("topic", fullTopic),
		logging.String("event_type", eventType))
	return nil
}

// Close flushes and shuts the writer down.  Publish calls after Close fail.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
