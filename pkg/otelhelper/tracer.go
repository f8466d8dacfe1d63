// Package otelhelper wires OpenTelemetry tracing for the processor and executor.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	WorkflowIDKey    = "chainreact.workflow.id"
	ExecutionIDKey   = "chainreact.execution.id"
	NodeIDKey        = "chainreact.node.id"
	NodeTypeKey      = "chainreact.node.type"
	ExecutionModeKey = "chainreact.execution.mode"
	ProviderKey      = "chainreact.provider"
	ChannelIDKey     = "chainreact.channel.id"
	ChangeTypeKey    = "chainreact.change.type"
	ServiceIDKey     = "chainreact.service.id"
)

// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, serviceName string) (trace.Tracer, error) {
	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return provider.Tracer(serviceName), nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}

// NewTracerOrNoop exports spans over OTLP HTTP when enabled and returns a
// no-op tracer otherwise.
// nolint:ireturn
func NewTracerOrNoop(ctx context.Context, serviceName string, enabled bool) (trace.Tracer, error) {
	if !enabled {
		return Noop(), nil
	}

	return NewTracer(ctx, serviceName)
}

// Noop returns a tracer that records nothing.
// nolint:ireturn
func Noop() trace.Tracer {
	return noop.NewTracerProvider().Tracer("")
}
