// Package config loads coordinator settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	Service       ServiceConfig
	Backend       BackendConfig
	Session       SessionConfig
	Retrieval     RetrievalConfig
	Transport     TransportConfig
	STT           STTConfig
	Kafka         KafkaConfig
	Redis         RedisConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listeners.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
	GRPCPort  string
}

// BackendConfig holds the voice agent backend location.
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	TokenTimeout  time.Duration
	MicCheck      string // ffmpeg, none
	FFmpegCommand string
	InputFormat   string
	InputDevice   string
}

// RetrievalConfig holds retrieval dispatch settings.
type RetrievalConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// TransportConfig holds the real-time transport bridge location.
type TransportConfig struct {
	BridgeURL string
}

// STTConfig selects where the user stream comes from.
type STTConfig struct {
	Provider       string // bridge, mock, google
	LanguageCode   string
	SampleRateHz   int32
	InterimResults bool
	AudioEncoding  string
}

// KafkaConfig holds event bus settings.
type KafkaConfig struct {
	Enabled             bool
	Brokers             []string
	TopicTranscript     string
	TopicSessionState   string
	TopicRetrievalState string
	Principal           string
}

// RedisConfig holds retrieval cache settings.
type RedisConfig struct {
	Enabled bool
	Addr    string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voice-coordinator")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
		},
		Backend: BackendConfig{
			BaseURL:        envOrDefault("BACKEND_URL", "http://localhost:8000"),
			RequestTimeout: envOrDefaultDuration("BACKEND_REQUEST_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			TokenTimeout:  envOrDefaultDuration("SESSION_TOKEN_TIMEOUT", 10*time.Second),
			MicCheck:      envOrDefault("MIC_CHECK", "ffmpeg"),
			FFmpegCommand: envOrDefault("FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:   envOrDefault("MIC_INPUT_FORMAT", "pulse"),
			InputDevice:   envOrDefault("MIC_INPUT_DEVICE", "default"),
		},
		Retrieval: RetrievalConfig{
			Timeout:  envOrDefaultDuration("RETRIEVAL_TIMEOUT", 10*time.Second),
			CacheTTL: envOrDefaultDuration("RETRIEVAL_CACHE_TTL", 10*time.Minute),
		},
		Transport: TransportConfig{
			BridgeURL: envOrDefault("TRANSPORT_BRIDGE_URL", "ws://localhost:7880/bridge"),
		},
		STT: STTConfig{
			Provider:       envOrDefault("STT_PROVIDER", "bridge"),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   int32(envOrDefaultInt("STT_SAMPLE_RATE_HZ", 8000)),
			InterimResults: envOrDefaultBool("STT_INTERIM_RESULTS", true),
			AudioEncoding:  envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
		},
		Kafka: KafkaConfig{
			Enabled:             envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:             envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicTranscript:     envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "voice.transcript.final"),
			TopicSessionState:   envOrDefault("KAFKA_TOPIC_SESSION", "voice.session.state"),
			TopicRetrievalState: envOrDefault("KAFKA_TOPIC_RETRIEVAL", "voice.retrieval.result"),
			Principal:           envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Redis: RedisConfig{
			Enabled: envOrDefaultBool("REDIS_ENABLED", false),
			Addr:    envOrDefault("REDIS_ADDR", "localhost:6379"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// envOrDefaultList parses a comma-separated list, dropping empty items.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
