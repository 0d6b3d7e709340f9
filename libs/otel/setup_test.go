package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{
		"OTEL_ENABLED":                "false",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
		"OTEL_SAMPLING_RATIO":         "0.25",
	}
	orig := lookupEnv
	lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })

	cfg := ConfigFromEnv("booking-service")
	if cfg.Enabled {
		t.Fatal("expected tracing disabled")
	}
	if cfg.OTLPEndpoint != "collector:4317" || cfg.SampleRatio != 0.25 || cfg.ServiceName != "booking-service" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	env["OTEL_ENABLED"] = "true"
	env["OTEL_EXPORTER_OTLP_ENDPOINT"] = " "
	if ConfigFromEnv("x").Enabled {
		t.Fatal("an empty endpoint should disable tracing")
	}
	if cfg.ServiceVersion != "dev" || cfg.Environment != "local" || !cfg.Insecure {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	env["OTEL_SAMPLING_RATIO"] = "7"
	if got := ConfigFromEnv("x").SampleRatio; got != 1 {
		t.Fatalf("out of range ratio should fall back to 1, got %v", got)
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := TraceContext{Parent: traceparent}.Attach(context.Background())
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace context not extracted: %+v", sc)
	}

	if got := CurrentTraceContext(ctx); got.Parent != traceparent {
		t.Fatalf("expected %q, got %q", traceparent, got.Parent)
	}

	if (TraceContext{}).Attach(context.Background()) != context.Background() {
		t.Fatal("empty trace context should return the input context")
	}
}
