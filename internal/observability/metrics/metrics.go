// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_coordinator"

// Metrics holds all Prometheus metrics for the coordinator.
type Metrics struct {
	// Session metrics
	SessionsActive     prometheus.Gauge
	ConnectAttempts    prometheus.Counter
	ConnectOutcomes    *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	TokenLatency       prometheus.Histogram

	// Segment metrics
	SegmentsIngested *prometheus.CounterVec
	SegmentsDropped  *prometheus.CounterVec
	LateRevisions    *prometheus.CounterVec

	// Transcript metrics
	TranscriptEntries *prometheus.CounterVec

	// Retrieval metrics
	RetrievalDispatched prometheus.Counter
	RetrievalOutcomes   *prometheus.CounterVec
	RetrievalStale      prometheus.Counter
	RetrievalLatency    prometheus.Histogram
	RetrievalResults    prometheus.Histogram
	RetrievalCache      *prometheus.CounterVec

	// Event bus metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Transport metrics
	TransportEvents *prometheus.CounterVec

	// gRPC metrics
	GRPCCalls *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently connected voice sessions",
		}),
		ConnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Total number of connect requests accepted",
		}),
		ConnectOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_outcomes_total",
			Help:      "Connect attempts by resulting state and reason",
		}, []string{"state", "reason"}),
		SessionTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state machine transitions",
		}, []string{"from", "to"}),
		TokenLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_request_latency_seconds",
			Help:      "Session credential request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		SegmentsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_ingested_total",
			Help:      "Segments merged into the transcript",
		}, []string{"speaker", "kind"}),
		SegmentsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_dropped_total",
			Help:      "Segments dropped before reaching the transcript",
		}, []string{"speaker", "reason"}),
		LateRevisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_late_revision_total",
			Help:      "Segments received for an utterance after its final revision",
		}, []string{"speaker"}),

		TranscriptEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_entries_total",
			Help:      "Transcript entries created",
		}, []string{"speaker"}),

		RetrievalDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_dispatched_total",
			Help:      "Retrieval queries dispatched",
		}),
		RetrievalOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_outcomes_total",
			Help:      "Retrieval queries by outcome",
		}, []string{"status"}),
		RetrievalStale: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_stale_total",
			Help:      "Retrieval completions discarded because a newer query superseded them",
		}),
		RetrievalLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_latency_seconds",
			Help:      "Retrieval query latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		RetrievalResults: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results_count",
			Help:      "Number of source hits per successful query",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
		RetrievalCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_cache_total",
			Help:      "Retrieval cache lookups by result",
		}, []string{"result"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		TransportEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_events_total",
			Help:      "Frames received from the real-time transport bridge",
		}, []string{"type"}),

		GRPCCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "gRPC calls by method and code",
		}, []string{"method", "code"}),
	}
}

// RecordConnectAttempt records an accepted connect request.
func (m *Metrics) RecordConnectAttempt() {
	m.ConnectAttempts.Inc()
}

// RecordConnectOutcome records how a connect attempt settled.
func (m *Metrics) RecordConnectOutcome(state, reason string) {
	m.ConnectOutcomes.WithLabelValues(state, reason).Inc()
}

// RecordTransition records a session transition and maintains the active gauge.
func (m *Metrics) RecordTransition(from, to string) {
	m.SessionTransitions.WithLabelValues(from, to).Inc()
	if to == "connected" {
		m.SessionsActive.Inc()
	}
	if from == "connected" {
		m.SessionsActive.Dec()
	}
}

// RecordTokenLatency records how long the credential request took.
func (m *Metrics) RecordTokenLatency(seconds float64) {
	m.TokenLatency.Observe(seconds)
}

// RecordSegment records a segment merged into the transcript.
func (m *Metrics) RecordSegment(speaker string, final bool) {
	kind := "partial"
	if final {
		kind = "final"
	}
	m.SegmentsIngested.WithLabelValues(speaker, kind).Inc()
}

// RecordSegmentDropped records a segment rejected by the stream adapter.
func (m *Metrics) RecordSegmentDropped(speaker, reason string) {
	m.SegmentsDropped.WithLabelValues(speaker, reason).Inc()
}

// RecordLateRevision records a revision received after finalization.
func (m *Metrics) RecordLateRevision(speaker string) {
	m.LateRevisions.WithLabelValues(speaker).Inc()
}

// RecordEntryCreated records a new transcript entry.
func (m *Metrics) RecordEntryCreated(speaker string) {
	m.TranscriptEntries.WithLabelValues(speaker).Inc()
}

// RecordRetrievalDispatched records a dispatched query.
func (m *Metrics) RecordRetrievalDispatched() {
	m.RetrievalDispatched.Inc()
}

// RecordRetrievalOutcome records a settled, non-stale query.
func (m *Metrics) RecordRetrievalOutcome(status string, results int, latencySeconds float64) {
	m.RetrievalOutcomes.WithLabelValues(status).Inc()
	m.RetrievalLatency.Observe(latencySeconds)
	if status == "succeeded" {
		m.RetrievalResults.Observe(float64(results))
	}
}

// RecordRetrievalStale records a discarded completion.
func (m *Metrics) RecordRetrievalStale() {
	m.RetrievalStale.Inc()
}

// RecordCacheLookup records a retrieval cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RetrievalCache.WithLabelValues(result).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordTransportEvent records a frame received from the transport.
func (m *Metrics) RecordTransportEvent(frameType string) {
	m.TransportEvents.WithLabelValues(frameType).Inc()
}

// RecordGRPCCall records a completed gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
