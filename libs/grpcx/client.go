package grpcx

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultCallTimeout = 3 * time.Second

type DialOptions struct {
	// Nil means plaintext, which is what the services use inside the cluster.
	TransportCredentials grpc.DialOption
}

// NewClient builds a lazily connecting client with tracing and request id
// propagation.
func NewClient(addr string, opts DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	if addr == "" {
		return nil, errors.New("grpc address not configured")
	}
	creds := opts.TransportCredentials
	if creds == nil {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	dialOpts := []grpc.DialOption{
		creds,
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(UnaryClientRequestIDInterceptor()),
	}
	return grpc.NewClient(addr, append(dialOpts, extra...)...)
}

// HealthReadyCheck asks the health service at addr about service ("" means
// the whole server). Calls without a deadline get defaultCallTimeout.
func HealthReadyCheck(addr, service string) func(context.Context) error {
	return func(ctx context.Context) error {
		conn, err := NewClient(addr, DialOptions{})
		if err != nil {
			return err
		}
		defer conn.Close()

		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
			defer cancel()
		}
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return err
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return errors.New("grpc health: " + resp.GetStatus().String())
		}
		return nil
	}
}
