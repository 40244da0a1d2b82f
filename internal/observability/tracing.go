// Package observability provides OpenTelemetry tracing, Prometheus metrics,
// and audit logging for Snarl.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the Snarl tracer.
	TracerName = "github.com/snarlhq/snarl"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "snarl")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "snarl",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	// If no endpoint, return no-op tracer
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	// Create OTLP exporter
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(), // Use TLS in production
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	// Create resource with service info
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	// Create sampler
	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	// Create trace provider
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	// Set global provider and propagator
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// SpanKind constants for Snarl operations.
const (
	SpanKindAnalysis = "analysis"
	SpanKindDetector = "detector"
	SpanKindAdapter  = "adapter"
	SpanKindHistory  = "history"
	SpanKindGate     = "gate"
	SpanKindVector   = "vector"
)

// StartAnalysisSpan starts a span for one full detection pass.
func StartAnalysisSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "analysis.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("snarl.span.kind", SpanKindAnalysis),
		),
	)
	return ctx, span
}

// RecordAnalysisResult records pass-level outcome on a span.
func RecordAnalysisResult(span trace.Span, nodes, edges, found int, cancelled bool) {
	span.SetAttributes(
		attribute.Int("graph.nodes", nodes),
		attribute.Int("graph.edges", edges),
		attribute.Int("analysis.patterns_found", found),
		attribute.Bool("analysis.cancelled", cancelled),
	)
	if cancelled {
		span.SetStatus(codes.Error, "analysis cancelled")
	}
}

// StartDetectorSpan starts a span for a single detector.
func StartDetectorSpan(ctx context.Context, detector string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("detector.%s", detector),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("snarl.span.kind", SpanKindDetector),
			attribute.String("detector.name", detector),
		),
	)
	return ctx, span
}

// RecordDetectorResult records how many findings a detector produced.
func RecordDetectorResult(span trace.Span, found int) {
	span.SetAttributes(attribute.Int("detector.patterns_found", found))
}

// StartAdapterSpan starts a span for a graph-store operation.
func StartAdapterSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("adapter.%s", op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("snarl.span.kind", SpanKindAdapter),
			attribute.String("adapter.op", op),
		),
	)
	return ctx, span
}

// StartHistorySpan starts a span for a run-history store operation.
func StartHistorySpan(ctx context.Context, op string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("history.%s", op),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("snarl.span.kind", SpanKindHistory),
			attribute.String("history.op", op),
		),
	)
	return ctx, span
}

// StartGateSpan starts a span for policy gate evaluation.
func StartGateSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "policy.evaluate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("snarl.span.kind", SpanKindGate),
		),
	)
	return ctx, span
}

// RecordGateResult records the gate pipeline outcome on a span.
func RecordGateResult(span trace.Span, status string, passed, failed int) {
	span.SetAttributes(
		attribute.String("policy.status", status),
		attribute.Int("policy.passed", passed),
		attribute.Int("policy.failed", failed),
	)
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d gates failed", failed))
	}
}

// StartVectorSpan starts a span for a signature-archive operation.
func StartVectorSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("vector.%s", op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("snarl.span.kind", SpanKindVector),
			attribute.String("vector.op", op),
		),
	)
	return ctx, span
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
