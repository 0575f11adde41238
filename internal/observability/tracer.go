// Package observability wires OpenTelemetry tracing and metrics into the
// board runner at the process's two decorator seams (provider calls and
// tool-host execution) without internal/board itself depending on OTel.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerConfig controls whether and how spans are exported.
type TracerConfig struct {
	Enabled      bool
	ExporterType string // "otlp" or "stdout"
	EndpointURL  string
	SamplingRate float64
	ServiceName  string
}

// InitGlobalTracer installs a TracerProvider as the global OTel tracer
// provider and returns it so the caller can Shutdown it on exit. When
// cfg.Enabled is false it installs a no-op provider, so callers never
// need to branch on whether tracing is on before calling GetTracer.
func InitGlobalTracer(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.ExporterType {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(cfg.EndpointURL))
	}
	if err != nil {
		return nil, fmt.Errorf("observability: build exporter %q: %w", cfg.ExporterType, err)
	}

	ratio := cfg.SamplingRate
	if ratio <= 0 {
		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(ratio)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// GetTracer returns a named tracer from the current global provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
