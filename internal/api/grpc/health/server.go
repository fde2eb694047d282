package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/dronpoint-adapter/internal/logger"
)

// ServiceName is the health service name of the events subscriber.
const ServiceName = "dronpoint.adapter.Subscriber"

// Server serves grpc.health.v1.Health for the subscriber.
type Server struct {
	// grpc is the underlying server.
	grpc *grpc.Server
	// health tracks serving statuses.
	health *grpchealth.Server
}

// New creates a server reporting NOT_SERVING until SetServing(true).
func New() *Server {
	h := grpchealth.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	g := grpc.NewServer()
	healthpb.RegisterHealthServer(g, h)

	return &Server{
		grpc:   g,
		health: h,
	}
}

// SetServing updates the subscriber status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(ServiceName, status)
}

// ListenAndServe listens on address and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return s.Serve(ctx, lis)
}

// Serve serves on lis and blocks until ctx is canceled and the server has stopped.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	ctx = logger.WithName(ctx, "health")

	logger.InfoKV(ctx, "Health server listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop returns.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down health server")
		s.health.Shutdown()
		s.grpc.GracefulStop()
		close(done)
	}()

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Health server stopped")

	return nil
}
