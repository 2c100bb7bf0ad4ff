// Package grpc serves the standard grpc.health.v1 service so orchestrators
// can probe whether the storm-drain snapshot is being kept fresh.
package grpc

import (
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-check service name reported alongside the overall ("") status.
const ServiceName = "stormdrain"

type Server struct {
	health     *health.Server
	grpcServer *grpc.Server
	mu         sync.Mutex
}

func NewServer() *Server {
	s := &Server{
		health:     health.NewServer(),
		grpcServer: grpc.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.SetServing(true)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve blocks until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// SetServing flips both the overall and the named service status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// SyncObserver adapts SetServing to the ingestion manager's sync callback.
func (s *Server) SyncObserver(err error) {
	s.SetServing(err == nil)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
