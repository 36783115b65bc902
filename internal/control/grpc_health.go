package control

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/lexiqai/voice-typer/internal/observability"
	"github.com/lexiqai/voice-typer/internal/recognition"
)

// RecognizerService is the service name reported by the gRPC health server.
const RecognizerService = "voicetyper.Recognizer"

// GRPCHealth serves the standard gRPC health protocol for supervisors that
// probe over gRPC. The recognizer service is NOT_SERVING while the
// recognizer is in the error state.
type GRPCHealth struct {
	server *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

// NewGRPCHealth creates the health server. It implements
// recognition.Observer so that state changes update the serving status.
func NewGRPCHealth() *GRPCHealth {
	server := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		Time:    30 * time.Second,
		Timeout: 5 * time.Second,
	}))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(RecognizerService, healthpb.HealthCheckResponse_SERVING)

	return &GRPCHealth{
		server: server,
		health: hs,
		logger: observability.Component("grpc_health"),
	}
}

// Notify implements recognition.Observer.
func (g *GRPCHealth) Notify(n recognition.Notification) {
	if n.Kind != recognition.NotifyStateChange {
		return
	}
	g.SetState(n.New)
}

// SetState maps a recognizer state to a serving status.
func (g *GRPCHealth) SetState(state recognition.State) {
	status := healthpb.HealthCheckResponse_SERVING
	if state == recognition.StateError {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus(RecognizerService, status)
}

// Serve accepts connections on addr until Stop.
func (g *GRPCHealth) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return g.ServeListener(lis)
}

// ServeListener accepts connections on lis until Stop.
func (g *GRPCHealth) ServeListener(lis net.Listener) error {
	g.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	return g.server.Serve(lis)
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
