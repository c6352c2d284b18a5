package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

// CoordinatorService is the gRPC health service name of the coordinator.
const CoordinatorService = "geotify.v1.Coordinator"

// HealthProbe checks a coordinator's gRPC health service.
type HealthProbe struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
	token  string
}

// NewHealthProbe connects to the given gRPC address. The connection is
// established lazily on the first Check.
func NewHealthProbe(addr, token string) (*HealthProbe, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return newHealthProbe(conn, token), nil
}

func newHealthProbe(conn *grpc.ClientConn, token string) *HealthProbe {
	return &HealthProbe{conn: conn, client: healthpb.NewHealthClient(conn), token: token}
}

// Check returns the serving status of the coordinator service, e.g. "SERVING".
func (p *HealthProbe) Check(ctx context.Context) (string, error) {
	if p.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+p.token)
	}
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: CoordinatorService})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}

func (p *HealthProbe) Close() error {
	return p.conn.Close()
}
