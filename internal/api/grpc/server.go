// Package grpcapi serves the coordinator's gRPC surface: the standard
// health service and reflection.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/service/session"
)

// SessionService is the health service name that tracks whether a voice
// session is connected.
const SessionService = "voice.coordinator.Session"

// Server wraps a grpc.Server with its health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates the gRPC server. The process reports SERVING from the
// start; SessionService reports SERVING only while a session is connected.
func NewServer(m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(SessionService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	return &Server{grpc: g, health: hs}
}

// OnSessionTransition keeps SessionService in step with the session
// machine. Register it with session.Machine.Subscribe.
func (s *Server) OnSessionTransition(_, to session.State) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if _, ok := to.(session.Connected); ok {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(SessionService, st)
}

// Serve blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("Starting gRPC server")
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
