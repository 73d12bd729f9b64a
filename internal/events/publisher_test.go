package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.Enabled() {
				t.Error("expected publisher to be disabled")
			}
			if p.writer != nil {
				t.Error("expected nil writer when disabled")
			}
		})
	}
}

func TestNew_Enabled(t *testing.T) {
	p := New(&Config{Enabled: true, Brokers: []string{"localhost:9092"}, Principal: "svc"})

	if !p.Enabled() {
		t.Error("expected publisher to be enabled")
	}
	if p.writer == nil {
		t.Fatal("expected writer when enabled")
	}
	if p.writer.Topic != "" {
		t.Errorf("expected per-message topics, writer has %q", p.writer.Topic)
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestNew_TopicDefaults(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected map[string]string
	}{
		{
			name: "defaults",
			cfg:  &Config{},
			expected: map[string]string{
				models.EventTranscriptFinal: "voice.transcript.final",
				models.EventSessionState:    "voice.session.state",
				models.EventRetrievalResult: "voice.retrieval.result",
			},
		},
		{
			name: "overrides",
			cfg:  &Config{TopicTranscript: "t", TopicSessionState: "s", TopicRetrievalState: "r"},
			expected: map[string]string{
				models.EventTranscriptFinal: "t",
				models.EventSessionState:    "s",
				models.EventRetrievalResult: "r",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			for eventType, topic := range tt.expected {
				if p.topics[eventType] != topic {
					t.Errorf("%s: expected topic %q, got %q", eventType, topic, p.topics[eventType])
				}
			}
		})
	}
}

func TestPublisher_Disabled_PublishesAreLogged(t *testing.T) {
	p := New(&Config{Enabled: false, Principal: "test-svc"})
	ctx := context.Background()
	m := metrics.DefaultMetrics

	before := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("voice.session.state", models.EventSessionState))

	if err := p.PublishTranscriptFinal(ctx, "sess-1", models.TranscriptFinalEvent{
		EventType: models.EventTranscriptFinal,
		SessionID: "sess-1",
		EntryID:   "user:A",
		Speaker:   models.SpeakerUser,
		Text:      "hello world",
	}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.PublishSessionState(ctx, "sess-1", models.SessionStateEvent{
		EventType: models.EventSessionState,
		From:      "idle",
		To:        "checking_permission",
	}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.PublishRetrievalResult(ctx, "sess-1", models.RetrievalResultEvent{
		EventType: models.EventRetrievalResult,
		Status:    models.QuerySucceeded,
	}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}

	after := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("voice.session.state", models.EventSessionState))
	if after-before != 1 {
		t.Errorf("expected session publish to be counted once, got %v", after-before)
	}
}

func TestPublisher_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.publish(context.Background(), models.EventSessionState, "k", make(chan int)); err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_Close_NoWriter(t *testing.T) {
	p := &Publisher{}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher without writer, got %v", err)
	}
}
