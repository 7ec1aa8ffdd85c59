// Package telemetry sets up an OpenTelemetry tracer provider and a
// StartSpan helper, plus a Prometheus registry for the core's ambient
// metrics. No launcher package calls StartSpan, so manifest resolution,
// download execution, and the auth pipeline emit no spans. None of this is part of the launch
// path's correctness — every call degrades to a noop when no collector
// is configured (spec's Non-goals exclude an observability UI, but the
// ambient instrumentation itself is still carried, per the teacher's
// convention of shipping it unconditionally).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrnavastar/launchcore/internal/logging"
)

var log = logging.For("telemetry")

var tracer = otel.Tracer("launchcore")

// Shutdown is returned by InitTracer; calling it flushes the batcher. A
// noop tracer provider's Shutdown is also a noop, so callers can always
// defer it unconditionally.
type Shutdown func(context.Context) error

// InitTracer wires a real OTLP/gRPC exporter when endpoint is non-empty;
// otherwise the global tracer provider stays the SDK's default noop
// implementation and every span becomes a zero-cost no-op.
func InitTracer(endpoint string) (Shutdown, error) {
	if endpoint == "" {
		log.Info("no OTLP endpoint configured, tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("launchcore"),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracer = tp.Tracer("launchcore")

	log.Info("tracing enabled, exporting to %s", endpoint)
	return tp.Shutdown, nil
}

// StartSpan begins a named span under the current tracer. Callers defer
// span.End() themselves so they can record errors on the span before it
// closes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
