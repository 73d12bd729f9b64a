// Package app builds the coordinator's object graph from configuration and
// owns its listeners.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	grpcapi "github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/api/grpc"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/backend"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/cache"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/config"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/events"
	httpapi "github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/http"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/coordinator"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/retrieval"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/session"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/stt"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/stt/google"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/stt/mock"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/transcript"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/transport"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Coordinator *coordinator.Coordinator
	Publisher   *events.Publisher

	redis   *cache.RedisCache
	grpc    *grpcapi.Server
	obs     *observability.Server
	httpSrv *http.Server
}

// New constructs the application from the provided configuration. Nothing
// listens until Start.
func New(cfg *config.Config) (*Application, error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Observability.LogLevel
	logCfg.Format = cfg.Observability.LogFormat
	logging.Init(logCfg)

	a := &Application{
		Cfg: cfg,
		Logger: logging.WithComponent("application").With().
			Str("principal", cfg.Service.Principal).
			Logger(),
	}

	client := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.Backend.RequestTimeout}))

	var retriever retrieval.Retriever = client
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(cfg.Redis.Addr)
		if err != nil {
			return nil, fmt.Errorf("redis client: %w", err)
		}
		a.redis = cache.NewRedisCache(rdb)
		retriever = retrieval.NewCachedRetriever(client, a.redis, cfg.Retrieval.CacheTTL)
	}

	mic, err := microphoneFor(cfg.Session)
	if err != nil {
		return nil, err
	}
	recognizer, err := recognizerFor(cfg.STT)
	if err != nil {
		return nil, err
	}

	sessionCfg := session.DefaultConfig()
	sessionCfg.TokenTimeout = cfg.Session.TokenTimeout
	machine := session.NewMachine(mic, client, sessionCfg)

	a.Publisher = events.New(&events.Config{
		Enabled:             cfg.Kafka.Enabled,
		Brokers:             cfg.Kafka.Brokers,
		TopicTranscript:     cfg.Kafka.TopicTranscript,
		TopicSessionState:   cfg.Kafka.TopicSessionState,
		TopicRetrievalState: cfg.Kafka.TopicRetrievalState,
		Principal:           cfg.Kafka.Principal,
	})

	a.Coordinator = coordinator.New(coordinator.Deps{
		Machine:    machine,
		Engine:     transcript.NewEngine(),
		Retrieval:  retrieval.NewController(retriever, cfg.Retrieval.Timeout),
		Transport:  transport.NewBridge(cfg.Transport.BridgeURL),
		Events:     a.Publisher,
		Recognizer: recognizer,
	})

	a.grpc = grpcapi.NewServer(metrics.DefaultMetrics)
	machine.Subscribe(a.grpc.OnSessionTransition)

	a.obs = observability.NewServer(cfg.Observability.MetricsAddr, a.Ready)
	a.httpSrv = &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(a.Coordinator, a.Ready),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.Logger.Info().
		Str("backend", cfg.Backend.BaseURL).
		Str("bridge", cfg.Transport.BridgeURL).
		Str("sttProvider", cfg.STT.Provider).
		Str("micCheck", cfg.Session.MicCheck).
		Bool("kafka", a.Publisher.Enabled()).
		Bool("redis", a.redis != nil).
		Msg("Voice coordinator application created")
	return a, nil
}

// microphoneFor selects the permission check.
func microphoneFor(cfg config.SessionConfig) (session.Microphone, error) {
	switch strings.ToLower(cfg.MicCheck) {
	case "", "ffmpeg":
		return session.NewFFmpegCapture(cfg.FFmpegCommand, cfg.InputFormat, cfg.InputDevice), nil
	case "none":
		return session.OpenMicrophone{}, nil
	default:
		return nil, fmt.Errorf("unknown MIC_CHECK %q (want ffmpeg or none)", cfg.MicCheck)
	}
}

// recognizerFor selects where the user stream comes from. The bridge
// provider returns nil: user segments arrive over the transport.
func recognizerFor(cfg config.STTConfig) (coordinator.RecognizerFactory, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "bridge":
		return nil, nil
	case "mock":
		return func(context.Context) (stt.Adapter, error) {
			return mock.New(), nil
		}, nil
	case "google":
		gcfg := google.Config{
			LanguageCode:   cfg.LanguageCode,
			SampleRateHz:   cfg.SampleRateHz,
			InterimResults: cfg.InterimResults,
			AudioEncoding:  cfg.AudioEncoding,
		}
		return func(ctx context.Context) (stt.Adapter, error) {
			return google.New(ctx, gcfg)
		}, nil
	default:
		return nil, fmt.Errorf("unknown STT_PROVIDER %q (want bridge, mock or google)", cfg.Provider)
	}
}

// Ready reports whether the service can accept traffic.
func (a *Application) Ready(ctx context.Context) error {
	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Start opens the listeners and begins serving.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	grpcLis, err := net.Listen("tcp", ":"+a.Cfg.Service.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	httpLis, err := net.Listen("tcp", a.httpSrv.Addr)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("http listen: %w", err)
	}

	go func() {
		if err := a.grpc.Serve(grpcLis); err != nil {
			startLogger.Error().Err(err).Msg("gRPC server stopped")
		}
	}()
	go func() {
		startLogger.Info().Str("addr", a.httpSrv.Addr).Msg("Starting control HTTP server")
		if err := a.httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startLogger.Error().Err(err).Msg("Control HTTP server stopped")
		}
	}()
	a.obs.Start()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Voice coordinator started")
	return nil
}

// Shutdown disconnects the session, flushes pending events and stops every
// listener.
func (a *Application) Shutdown(ctx context.Context) {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("Voice coordinator shutting down")

	if err := a.httpSrv.Shutdown(ctx); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Control HTTP server shutdown")
	}
	a.Coordinator.Close()
	a.grpc.Stop()
	if err := a.obs.Shutdown(ctx); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Observability server shutdown")
	}
	if err := a.Publisher.Close(); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Kafka publisher close")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Redis close")
		}
	}
}
