// Package telemetry wraps the OpenTelemetry SDK with the narrow surface
// the engine needs: a tracer provider configured once at process start,
// plus HTTP middleware and client wrapping. The job and workflow packages
// open their own spans through otel.Tracer.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds telemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	Enabled        bool
}

// Provider wraps the OpenTelemetry tracer provider. A disabled Provider
// (Config.Enabled == false) returns a no-op tracer so instrumented code
// never needs to branch on whether telemetry is on.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	enabled        bool
}

// NewProvider builds a Provider from cfg. When disabled, it returns
// immediately with a no-op tracer and does not dial the OTLP endpoint.
func NewProvider(ctx context.Context, cfg *Config) (*Provider, error) {
	if !cfg.Enabled {
		slog.Info("telemetry disabled")
		return &Provider{enabled: false}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("telemetry initialized", "service", cfg.ServiceName, "endpoint", cfg.OTLPEndpoint)

	return &Provider{
		tracerProvider: tp,
		tracer:         tp.Tracer(cfg.ServiceName),
		enabled:        true,
	}, nil
}

// Shutdown flushes and stops the tracer provider. A no-op on a disabled
// Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || !p.enabled || p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// Tracer returns the Provider's tracer, or a no-op tracer if disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || !p.enabled {
		return otel.Tracer("noop")
	}
	return p.tracer
}

// IsEnabled reports whether the Provider is exporting spans.
func (p *Provider) IsEnabled() bool { return p != nil && p.enabled }
