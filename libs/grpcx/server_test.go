package grpcx

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthReadyCheck(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer()
	hs := RegisterHealth(srv, "barberq.booking")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Serve(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), srv, lis)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer checkCancel()

	if err := HealthReadyCheck(lis.Addr().String(), "barberq.booking")(checkCtx); err != nil {
		t.Fatalf("expected serving, got %v", err)
	}

	hs.SetServingStatus("barberq.booking", healthpb.HealthCheckResponse_NOT_SERVING)
	if err := HealthReadyCheck(lis.Addr().String(), "barberq.booking")(checkCtx); err == nil {
		t.Fatal("expected not serving error")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if RequestIDFromContext(ctx) != "" {
		t.Fatal("empty id should not be stored")
	}
	ctx = WithRequestID(ctx, "abc")
	if RequestIDFromContext(ctx) != "abc" {
		t.Fatal("id not stored")
	}
	if requestID(WithRequestID(context.Background(), "grpc-1")) != "grpc-1" {
		t.Fatal("grpc request id should be used when no http id is present")
	}
}
