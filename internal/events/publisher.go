// Package events publishes search lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/literature-search-service/internal/domain"
)

// Publisher defaults.
const (
	DefaultTopic        = "events.literature_search"
	DefaultServiceName  = "literature-search-service"
	DefaultWriteTimeout = 5 * time.Second
)

// Message header keys.
const (
	HeaderEventType = "event_type"
	HeaderSource    = "source"
	HeaderVersion   = "event_version"
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for search events.
	Topic string
	// ServiceName is written to the source header of every message.
	ServiceName string
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes search events to a Kafka topic, keyed by search ID so
// that all events of one search land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	config Config
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger) (*KafkaPublisher, error) {
	cfg.applyDefaults()
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: at least one broker is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}

	return newKafkaPublisher(writer, cfg, logger), nil
}

func newKafkaPublisher(writer messageWriter, cfg Config, logger zerolog.Logger) *KafkaPublisher {
	cfg.applyDefaults()
	return &KafkaPublisher{
		writer: writer,
		config: cfg,
		logger: logger.With().Str("component", "event_publisher").Str("topic", cfg.Topic).Logger(),
	}
}

// Publish writes one event. The write is bounded by the configured timeout.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.SearchEvent) error {
	if event == nil {
		return fmt.Errorf("publish: nil event")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.WriteTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.SearchID),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderSource, Value: []byte(p.config.ServiceName)},
			{Key: HeaderVersion, Value: []byte(fmt.Sprint(event.EventVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.EventType, err)
	}

	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("search_id", event.SearchID).
		Msg("published search event")
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish implements the publisher contract and does nothing.
func (NoopPublisher) Publish(context.Context, *domain.SearchEvent) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }
