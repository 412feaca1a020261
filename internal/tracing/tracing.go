// Package tracing wires OpenTelemetry: one process-wide TracerProvider
// plus a thin Start/End helper pair, scaled down to this repo's span-only
// needs. No OTLP exporter is part of this module's dependency set, so
// spans are sampled and held in-process rather than shipped to a
// collector; a production deployment swaps in
// sdktrace.WithBatcher(exporter) once an endpoint is configured.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "kgraph-core"

// Init installs a process-wide TracerProvider sampling every span. Callers
// run the returned shutdown func during graceful shutdown.
func Init(serviceName string) (func(context.Context) error, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build tracing resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Start begins a span named name under this process's tracer, carrying attrs
// as span attributes from the start (query text, provider name, and the
// like) rather than attached after the fact.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// End records err on span, if non-nil, then closes it. Every instrumented
// call site in this repo ends its span this way instead of a bare
// span.End(), so a failed graph query or provider call is visible in the
// trace without the caller having to remember RecordError separately.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
