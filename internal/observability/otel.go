// Package observability wires OpenTelemetry tracing.
package observability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracingOptions configures SetupTracing.  An empty Endpoint installs only
// the propagator: spans are still created, but nothing is exported.
type TracingOptions struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is host:port or a full URL of an OTLP/HTTP collector.
	// Headers such as Authorization come from OTEL_EXPORTER_OTLP_HEADERS.
	Endpoint string
	Insecure bool
}

// SetupTracing installs the global propagator and, when an endpoint is
// set, a batching tracer provider.  The returned shutdown flushes pending
// spans and is always non-nil.
func SetupTracing(ctx context.Context, o TracingOptions) (tp *sdktrace.TracerProvider, shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs error
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			errs = errors.Join(errs, shutdownFuncs[i](ctx))
		}
		shutdownFuncs = nil
		return errs
	}

	otel.SetTextMapPropagator(NewPropagator())
	if o.Endpoint == "" {
		return nil, shutdown, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(o.ServiceName),
			semconv.ServiceVersion(o.ServiceVersion),
			semconv.DeploymentEnvironment(o.Environment),
		),
	)
	if err != nil {
		return nil, shutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlptracehttp.Option{}
	if strings.Contains(o.Endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(o.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(o.Endpoint))
	}
	if o.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, shutdown, fmt.Errorf("OTLP trace exporter: %w", err)
	}

	tp = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
	)
	otel.SetTracerProvider(tp)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	return tp, shutdown, nil
}

// NewPropagator returns the W3C trace context and baggage propagator.
func NewPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}
