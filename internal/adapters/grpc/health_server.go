package grpc

import (
	"fmt"
	"net"
	"os"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Component names reported through grpc.health.v1. The empty name is the
// daemon as a whole.
const (
	TickerService = "coreloop.ticker"
	WorkerService = "coreloop.worker"
)

// Components lists every named service the daemon reports on
var Components = []string{TickerService, WorkerService}

// DaemonServer serves the standard gRPC health service on a unix socket.
// Components start NOT_SERVING and are flipped by the daemon as its
// background loops come up and go down.
type DaemonServer struct {
	socketPath string
	listener   net.Listener
	server     *grpc.Server
	health     *health.Server
	logger     *zap.Logger
}

// NewDaemonServer binds socketPath, replacing any stale socket file
func NewDaemonServer(socketPath string, logger *zap.Logger) (*DaemonServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket listener: %w", err)
	}

	// Owner only
	if err := os.Chmod(socketPath, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	healthServer := health.NewServer()
	for _, name := range Components {
		healthServer.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &DaemonServer{
		socketPath: socketPath,
		listener:   listener,
		server:     grpcServer,
		health:     healthServer,
		logger:     logger.Named("grpc"),
	}, nil
}

// SetServing reports a component as up or down
func (s *DaemonServer) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
	s.logger.Debug("health status changed",
		zap.String("service", service),
		zap.String("status", status.String()))
}

// Start serves in the background
func (s *DaemonServer) Start() {
	s.logger.Info("health service listening", zap.String("socket", s.socketPath))
	go func() {
		if err := s.server.Serve(s.listener); err != nil {
			s.logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()
}

// Stop marks every service NOT_SERVING, drains open calls and removes the socket
func (s *DaemonServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove socket", zap.String("socket", s.socketPath), zap.Error(err))
	}
}
