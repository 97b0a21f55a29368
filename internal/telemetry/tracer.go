// Package telemetry wires the OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
)

type CleanupFunc func(ctx context.Context) error

// InitTracer installs the global propagator and, when a collector is
// configured, a tracer provider exporting spans over OTLP gRPC. Without a
// collector the global no-op provider stays in place.
func InitTracer(ctx context.Context, cfg config.Otel) (CleanupFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.CollectorURL == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.CollectorURL),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if cfg.CollectorAuth != "" {
		opts = append(opts, otlptracegrpc.WithHeaders(map[string]string{
			"Authorization": cfg.CollectorAuth,
		}))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TraceIDRatio))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func resourceAttributes(cfg config.Otel) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
	}
	if cfg.K8sPodName != "" {
		attrs = append(attrs, attribute.String("k8s.pod.name", cfg.K8sPodName))
	}
	if cfg.K8sNamespace != "" {
		attrs = append(attrs, attribute.String("k8s.namespace.name", cfg.K8sNamespace))
	}
	return attrs
}
