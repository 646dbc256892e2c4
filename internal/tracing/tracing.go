// Package tracing emits one OpenTelemetry span per setup step.
//
// Spans are recorded after each step finishes, using the step's own
// timestamps, and the provider is flushed before the handoff.
package tracing

import (
	"context"
	"fmt"

	"github.com/psantana5/entrypoint/internal/step"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds the tracing configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // host:port of an OTLP/HTTP collector, e.g. "otel-collector:4318"
}

// Enabled reports whether spans should be exported.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Provider wraps the OpenTelemetry trace provider and the root span of
// the bootstrap.
type Provider struct {
	tp      *sdktrace.TracerProvider
	tracer  trace.Tracer
	rootCtx context.Context
	root    trace.Span
}

// Init creates a provider. With no endpoint configured it returns a no-op
// provider so callers never need to check.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled() {
		tracer := noop.NewTracerProvider().Tracer(cfg.ServiceName)
		rootCtx, root := tracer.Start(ctx, "bootstrap")
		return &Provider{tracer: tracer, rootCtx: rootCtx, root: root}, nil
	}

	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return newProvider(ctx, tp, cfg.ServiceName), nil
}

func newProvider(ctx context.Context, tp *sdktrace.TracerProvider, name string) *Provider {
	tracer := tp.Tracer(name)
	rootCtx, root := tracer.Start(ctx, "bootstrap")
	return &Provider{tp: tp, tracer: tracer, rootCtx: rootCtx, root: root}
}

// RecordStep emits a finished span for res under the bootstrap span.
func (p *Provider) RecordStep(res step.Result) {
	_, span := p.tracer.Start(p.rootCtx, "step "+res.Name,
		trace.WithTimestamp(res.StartedAt),
		trace.WithAttributes(
			attribute.String("step.name", res.Name),
			attribute.String("step.command", res.Command),
			attribute.Int("step.exit_code", res.ExitCode),
			attribute.String("step.reason", string(res.Reason)),
		),
	)
	if res.Signal != "" {
		span.SetAttributes(attribute.String("step.signal", res.Signal))
	}
	if res.Reason.IsFailure() {
		desc := res.Error
		if desc == "" {
			desc = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		span.SetStatus(codes.Error, desc)
	}
	span.End(trace.WithTimestamp(res.EndedAt))
}

// Annotate adds an event to the bootstrap span.
func (p *Provider) Annotate(name string, attrs ...attribute.KeyValue) {
	p.root.AddEvent(name, trace.WithAttributes(attrs...))
}

// Shutdown ends the bootstrap span and flushes everything to the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.root.End()
	if p.tp != nil {
		return p.tp.Shutdown(ctx)
	}
	return nil
}
