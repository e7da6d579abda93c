package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	grpcserver "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "live.Coordinator"

// HealthServer exposes grpc.health.v1.Health for the coordinator. The
// status follows the event loop: serving while it runs, not serving once
// shutdown has begun.
type HealthServer struct {
	srv    *grpcserver.Server
	health *health.Server
}

func NewHealthServer() *HealthServer {
	srv := grpcserver.NewServer()
	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, h)
	h.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{srv: srv, health: h}
}

func (s *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Serve listens on addr until ctx is done, then stops gracefully.
func (s *HealthServer) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}

	return s.ServeListener(ctx, lis)
}

func (s *HealthServer) ServeListener(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.DebugContext(ctx, "starting grpc health server", "address", lis.Addr().String())
		errCh <- s.srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.srv.GracefulStop()
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("srv.Serve: %w", err)
		}
		return nil
	}
}
