package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the service name whose health tracks the coordinator.
const HealthService = "geotify.v1.Coordinator"

// NewHealthServer returns a health server reporting HealthService as not
// serving until SetServing is called.
func NewHealthServer() *health.Server {
	h := health.NewServer()
	h.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// SetServing updates the overall and HealthService status.
func SetServing(h *health.Server, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.SetServingStatus("", status)
	h.SetServingStatus(HealthService, status)
}

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the health service and reflection, and returns the server ready to serve.
func NewGRPCServer(healthSrv *health.Server, authToken string, logger *slog.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor(logger),
			AuthInterceptor(authToken),
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor,
			StreamAuthInterceptor(authToken),
		),
	)

	healthpb.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)

	return srv
}
