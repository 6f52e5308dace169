// Package tracing configures the OpenTelemetry tracer provider used by the
// handoff endpoint, the session service and the orchestrator client.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Provider wraps the SDK tracer provider.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// Option configures Setup.
type Option func(*options)

type options struct {
	export bool
	writer io.Writer
}

// WithStdout exports spans as JSON to stdout.
func WithStdout(enabled bool) Option {
	return func(o *options) { o.export = enabled }
}

// WithWriter exports spans as JSON to w.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.export, o.writer = true, w }
}

// Setup installs a global tracer provider and the W3C trace-context
// propagator. Without an exporter spans are still created, so trace ids
// propagate to the orchestrator, but nothing is written.
func Setup(serviceName string, opts ...Option) (*Provider, error) {
	o := &options{writer: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if o.export {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(o.writer))
		if err != nil {
			return nil, fmt.Errorf("tracing: create exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Provider{provider: tp}, nil
}

// Tracer returns a named tracer from this provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.provider.Tracer(name)
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
