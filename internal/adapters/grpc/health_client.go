package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceStatus is the health of one named service
type ServiceStatus struct {
	Service string
	Status  string
}

// Serving reports whether the status is SERVING
func (s ServiceStatus) Serving() bool {
	return s.Status == healthpb.HealthCheckResponse_SERVING.String()
}

// HealthClient queries the daemon's health service over its unix socket
type HealthClient struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

// NewHealthClient creates a client for the daemon listening on socketPath
func NewHealthClient(socketPath string) (*HealthClient, error) {
	conn, err := grpc.NewClient(
		"unix:"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon socket: %w", err)
	}

	return &HealthClient{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the gRPC connection
func (c *HealthClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Check returns the status of one service; "" is the daemon itself.
// A service the daemon does not know reports SERVICE_UNKNOWN.
func (c *HealthClient) Check(ctx context.Context, service string) (ServiceStatus, error) {
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ServiceStatus{Service: service, Status: healthpb.HealthCheckResponse_SERVICE_UNKNOWN.String()}, nil
		}
		return ServiceStatus{}, fmt.Errorf("failed to check %q: %w", service, err)
	}
	return ServiceStatus{Service: service, Status: resp.GetStatus().String()}, nil
}

// CheckAll returns the daemon status followed by every component
func (c *HealthClient) CheckAll(ctx context.Context) ([]ServiceStatus, error) {
	services := append([]string{""}, Components...)
	statuses := make([]ServiceStatus, 0, len(services))
	for _, service := range services {
		st, err := c.Check(ctx, service)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}
