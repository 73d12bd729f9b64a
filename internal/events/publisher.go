// Package events publishes coordinator events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
)

// Publisher writes transcript, session and retrieval events, one topic
// per event type. When Kafka is disabled events are only logged.
type Publisher struct {
	writer    *kafka.Writer
	principal string
	topics    map[string]string // event type -> topic
	enabled   bool
	metrics   *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers             []string
	TopicTranscript     string
	TopicSessionState   string
	TopicRetrievalState string
	Principal           string
	Enabled             bool
}

// DefaultConfig returns the default topic layout with Kafka disabled.
func DefaultConfig() Config {
	return Config{
		TopicTranscript:     models.EventTranscriptFinal,
		TopicSessionState:   models.EventSessionState,
		TopicRetrievalState: models.EventRetrievalResult,
	}
}

// New creates a publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		d := DefaultConfig()
		return &Publisher{topics: topicsOf(&d), metrics: m}
	}

	p := &Publisher{
		principal: cfg.Principal,
		topics:    topicsOf(cfg),
		metrics:   m,
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	// Topic is set per message.
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", p.topics[models.EventTranscriptFinal]).
		Str("topicSession", p.topics[models.EventSessionState]).
		Str("topicRetrieval", p.topics[models.EventRetrievalResult]).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

func topicsOf(cfg *Config) map[string]string {
	d := DefaultConfig()
	or := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return map[string]string{
		models.EventTranscriptFinal: or(cfg.TopicTranscript, d.TopicTranscript),
		models.EventSessionState:    or(cfg.TopicSessionState, d.TopicSessionState),
		models.EventRetrievalResult: or(cfg.TopicRetrievalState, d.TopicRetrievalState),
	}
}

// Enabled reports whether events reach Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishTranscriptFinal publishes a finalized transcript entry.
func (p *Publisher) PublishTranscriptFinal(ctx context.Context, key string, event models.TranscriptFinalEvent) error {
	return p.publish(ctx, models.EventTranscriptFinal, key, event)
}

// PublishSessionState publishes a session transition.
func (p *Publisher) PublishSessionState(ctx context.Context, key string, event models.SessionStateEvent) error {
	return p.publish(ctx, models.EventSessionState, key, event)
}

// PublishRetrievalResult publishes a settled retrieval query.
func (p *Publisher) PublishRetrievalResult(ctx context.Context, key string, event models.RetrievalResultEvent) error {
	return p.publish(ctx, models.EventRetrievalResult, key, event)
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, event any) error {
	start := time.Now()
	topic := p.topics[eventType]

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || p.writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close flushes and closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Kafka writer")
		return err
	}
	return nil
}
