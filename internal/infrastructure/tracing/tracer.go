// Package tracing provides OpenTelemetry-based tracing infrastructure for
// ttracker. It supports stdout and OTLP exporters and provides
// domain-specific span helpers for sync runs.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the ttracker tracer.
	TracerName = "github.com/jsuresh/ttracker"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool         // Whether tracing is enabled
	ExporterType ExporterType // Type of exporter to use
	OTLPEndpoint string       // OTLP collector endpoint (for OTLP exporter)
	ServiceName  string       // Service name for traces
	SampleRate   float64      // Sampling rate (0.0 to 1.0)
	Output       io.Writer    // Output for stdout exporter (defaults to os.Stdout)
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "ttracker",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with domain-specific functionality.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

// global is the package-level default tracer.
var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: DefaultConfig(),
		}
	}
	return global
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	// Create exporter
	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource without merging with Default() to avoid schema URL conflicts.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create sampler
	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	// Create tracer provider
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	// Set global propagator
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set global tracer provider
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

// createExporter creates the appropriate exporter based on configuration.
func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// --- Domain-specific span helpers ---

// SyncRunSpan represents a full sync run span.
type SyncRunSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartSyncRunSpan starts a span for a sync run.
func (t *Tracer) StartSyncRunSpan(ctx context.Context, pending int) (context.Context, *SyncRunSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("sync.pending_entries", pending),
		),
	)

	return ctx, &SyncRunSpan{span: span, ctx: ctx}
}

// SetCounts records the outcome counts of the run.
func (ss *SyncRunSpan) SetCounts(created, updated, retracted, failed int) {
	ss.span.SetAttributes(
		attribute.Int("sync.created", created),
		attribute.Int("sync.updated", updated),
		attribute.Int("sync.retracted", retracted),
		attribute.Int("sync.failed", failed),
	)
}

// End ends the sync run span with success status.
func (ss *SyncRunSpan) End() {
	ss.span.SetStatus(codes.Ok, "sync run completed")
	ss.span.End()
}

// EndWithError ends the sync run span with error status.
func (ss *SyncRunSpan) EndWithError(err error) {
	ss.span.RecordError(err)
	ss.span.SetStatus(codes.Error, err.Error())
	ss.span.End()
}

// EntrySpan represents the sync of a single time entry.
type EntrySpan struct {
	span trace.Span
	ctx  context.Context
}

// StartEntrySpan starts a span for syncing one entry.
func (t *Tracer) StartEntrySpan(ctx context.Context, entryID, taskName, projectID string) (context.Context, *EntrySpan) {
	ctx, span := t.tracer.Start(ctx, "sync.entry",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("entry.id", entryID),
			attribute.String("entry.task", taskName),
			attribute.String("entry.project_id", projectID),
		),
	)

	return ctx, &EntrySpan{span: span, ctx: ctx}
}

// SetRemoteID records the remote identifier assigned to the entry.
func (es *EntrySpan) SetRemoteID(remoteID string) {
	es.span.SetAttributes(attribute.String("entry.remote_id", remoteID))
}

// SetOperation records whether the entry was created or updated remotely.
func (es *EntrySpan) SetOperation(op string) {
	es.span.SetAttributes(attribute.String("entry.operation", op))
}

// End ends the entry span with success status.
func (es *EntrySpan) End() {
	es.span.SetStatus(codes.Ok, "entry synced")
	es.span.End()
}

// EndWithError ends the entry span with error status.
func (es *EntrySpan) EndWithError(err error) {
	es.span.RecordError(err)
	es.span.SetStatus(codes.Error, err.Error())
	es.span.End()
}
