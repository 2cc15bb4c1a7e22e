// Package telemetry provides config-gated OpenTelemetry tracing.
// Tracing is off by default; when disabled the global provider stays a
// no-op and instrumented code paths cost nothing.
package telemetry

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Config controls whether and how spans are exported.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// SamplerType is always, never, or ratio.
	SamplerType string
	// SamplerRatio is the sampled fraction under the ratio sampler.
	SamplerRatio float64
}

// InitTracer installs the global tracer provider from cfg and returns
// a shutdown function that flushes pending spans. Disabled tracing
// leaves the global provider untouched and returns a no-op shutdown.
func InitTracer(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trace resource")
	}

	// The exporter reads OTEL_EXPORTER_OTLP_ENDPOINT and
	// OTEL_EXPORTER_OTLP_HEADERS from the environment.
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trace exporter")
	}

	// CLI invocations are short-lived, so keep the batch window small
	// and rely on shutdown to flush whatever is still buffered.
	provider := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSpanProcessor(trace.NewBatchSpanProcessor(exporter, trace.WithBatchTimeout(time.Second))),
		trace.WithSampler(samplerFor(cfg)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Provider shutdown stops the processor, which flushes and shuts
	// down the exporter. No separate exporter teardown is needed.
	return provider.Shutdown, nil
}

// samplerFor maps the validated sampler config onto an SDK sampler.
// Config validation restricts the type to always, never, or ratio, so
// ratio doubles as the fallthrough.
func samplerFor(cfg Config) trace.Sampler {
	switch cfg.SamplerType {
	case "always":
		return trace.AlwaysSample()
	case "never":
		return trace.NeverSample()
	default:
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplerRatio))
	}
}
