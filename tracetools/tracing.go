// Package tracetools sets up OpenTelemetry tracing for a run and provides
// helpers for the spans around Bitwarden calls.
package tracetools

import (
	"context"
	"fmt"
	"slices"

	"github.com/bitwarden/sm-action/env"
	"github.com/bitwarden/sm-action/logger"
	"github.com/bitwarden/sm-action/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	BackendNone          = ""
	BackendOpenTelemetry = "opentelemetry"

	// ServiceName is reported as the service.name resource attribute.
	ServiceName = "sm-action"

	instrumentationName = "github.com/bitwarden/sm-action"
)

// ValidTracingBackends contains the names of the supported backends.
var ValidTracingBackends = []string{BackendNone, BackendOpenTelemetry}

// Stopper flushes and shuts down the tracer provider.
type Stopper func()

func noopStopper() {}

// Start configures the global tracer provider for backend. Without a backend
// the global no-op provider stays in place. The returned context carries the
// parent span from TRACEPARENT in environ, if there is one.
func Start(ctx context.Context, l logger.Logger, backend string, environ *env.Environment) (context.Context, Stopper, error) {
	if !slices.Contains(ValidTracingBackends, backend) {
		return ctx, noopStopper, fmt.Errorf("invalid tracing backend %q, must be one of %q", backend, ValidTracingBackends)
	}
	if backend == BackendNone {
		return ctx, noopStopper, nil
	}

	protocol, _ := environ.GetNonEmpty("OTEL_EXPORTER_OTLP_PROTOCOL")
	exporter, err := newExporter(ctx, protocol)
	if err != nil {
		return ctx, noopStopper, err
	}

	attributes := []attribute.KeyValue{
		semconv.ServiceNameKey.String(ServiceName),
		semconv.ServiceVersionKey.String(version.Version()),
		semconv.DeploymentEnvironmentKey.String("ci"),
	}
	for _, kv := range []struct{ env, attr string }{
		{"GITHUB_REPOSITORY", "github.repository"},
		{"GITHUB_WORKFLOW", "github.workflow"},
		{"GITHUB_RUN_ID", "github.run_id"},
		{"GITHUB_JOB", "github.job"},
	} {
		if v, ok := environ.GetNonEmpty(kv.env); ok {
			attributes = append(attributes, attribute.String(kv.attr, v))
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attributes...)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	l.Debug("Tracing enabled with the %s backend", backend)

	stop := func() {
		ctx := context.Background()
		if err := tp.ForceFlush(ctx); err != nil {
			l.Warn("Flushing traces: %v", err)
		}
		_ = tp.Shutdown(ctx)
	}
	return ContextFromEnvironment(ctx, environ), stop, nil
}

func newExporter(ctx context.Context, protocol string) (sdktrace.SpanExporter, error) {
	switch protocol {
	case "", "grpc":
		return otlptracegrpc.New(ctx)
	case "http/protobuf", "http":
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// ContextFromEnvironment extracts a W3C trace context from the TRACEPARENT
// and TRACESTATE variables in environ.
func ContextFromEnvironment(ctx context.Context, environ *env.Environment) context.Context {
	carrier := propagation.MapCarrier{}
	if v, ok := environ.GetNonEmpty("TRACEPARENT"); ok {
		carrier.Set("traceparent", v)
	}
	if v, ok := environ.GetNonEmpty("TRACESTATE"); ok {
		carrier.Set("tracestate", v)
	}
	return propagation.TraceContext{}.Extract(ctx, carrier)
}

// StartSpan starts a span from the global tracer provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(version.Version())).
		Start(ctx, name, trace.WithAttributes(attrs...))
}

// FinishWithError records err on span, if there is one, and ends the span.
func FinishWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
