package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"salespipe/internal/config"
	"salespipe/pkg/contracts"
)

const (
	ServiceName    = "salespipe"
	ServiceVersion = contracts.Version
	TracerName     = "salespipe/pipeline"
)

// TracingProvider wraps the tracer used by pipeline stages
type TracingProvider struct {
	TracerProvider *sdktrace.TracerProvider
	Tracer         trace.Tracer
	logger         *slog.Logger
}

// InitializeTracing sets up OpenTelemetry tracing. With tracing disabled or
// the "none" exporter a no-op tracer is returned. Spans are written to w
// (stdout when nil) by the stdout exporter.
func InitializeTracing(cfg config.TelemetryConfig, w io.Writer, logger *slog.Logger) (*TracingProvider, error) {
	if logger == nil {
		logger = GetLogger()
	}
	provider := &TracingProvider{logger: logger}

	if !cfg.EnableTracing || cfg.TraceExporter == "none" || cfg.TraceExporter == "" {
		provider.Tracer = noop.NewTracerProvider().Tracer(TracerName)
		logger.Debug("Tracing disabled")
		return provider, nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		if w == nil {
			w = os.Stdout
		}
		exporter, err = stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithPrettyPrint(),
		)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	// Syncer keeps span output ordered with the stage log lines.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	provider.TracerProvider = tp
	provider.Tracer = tp.Tracer(TracerName, trace.WithInstrumentationVersion(ServiceVersion))

	logger.Info("Tracing initialized", slog.String("exporter", cfg.TraceExporter))
	return provider, nil
}

// Shutdown flushes and stops the tracer provider
func (p *TracingProvider) Shutdown(ctx context.Context) error {
	if p == nil || p.TracerProvider == nil {
		return nil
	}
	if err := p.TracerProvider.Shutdown(ctx); err != nil {
		p.logger.Error("Failed to shutdown tracer provider", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// TraceIDFromContext extracts the OTel trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span and marks it failed
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}
