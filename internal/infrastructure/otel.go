package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"twcpi/internal/config"
)

const (
	ServiceName = "twcpi"
	MeterName   = "twcpi/pipeline"
)

// OTelProviders holds the OpenTelemetry providers for one process
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// Registry receives every metric recorded through Meter
	Registry *prometheus.Registry
	Logger   *slog.Logger

	traceOut io.Closer
}

// InitializeOTel sets up tracing and metrics. Tracing exports spans with the
// stdout exporter when enabled and is a no-op otherwise. Metrics always flow
// into a private Prometheus registry so they can be written as a textfile.
// Providers are not installed globally.
func InitializeOTel(tracing config.TracingConfig, logger *slog.Logger) (*OTelProviders, error) {
	logger = LoggerOrDefault(logger)
	providers := &OTelProviders{Logger: logger}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	if err := providers.initializeTracing(tracing, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := providers.initializeMetrics(res); err != nil {
		providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Debug("OpenTelemetry initialized",
		slog.Bool("tracing_enabled", tracing.Enabled),
		slog.String("trace_file", tracing.FilePath))

	return providers, nil
}

func (p *OTelProviders) initializeTracing(cfg config.TracingConfig, res *resource.Resource) error {
	if !cfg.Enabled {
		p.Tracer = noop.NewTracerProvider().Tracer(MeterName)
		return nil
	}

	var out io.Writer = os.Stdout
	if cfg.FilePath != "" {
		if err := config.EnsureParentDir(cfg.FilePath); err != nil {
			return err
		}
		f, err := os.Create(cfg.FilePath)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		p.traceOut = f
		out = f
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(out),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	p.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	p.Tracer = p.TracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
	return nil
}

func (p *OTelProviders) initializeMetrics(res *resource.Resource) error {
	p.Registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(p.Registry),
		otelprom.WithoutScopeInfo(),
		otelprom.WithoutTargetInfo(),
		otelprom.WithoutUnits(),
	)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	p.Meter = p.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
	return nil
}

// WriteMetricsTextfile writes the current metrics in the Prometheus text
// format, for collection by the node exporter textfile collector
func (p *OTelProviders) WriteMetricsTextfile(path string) error {
	if err := config.EnsureParentDir(path); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown flushes pending spans and releases the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if p.traceOut != nil {
		if err := p.traceOut.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file close: %w", err))
		}
		p.traceOut = nil
	}

	return errors.Join(errs...)
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// PipelineMetrics holds the instruments recorded by a pipeline run
type PipelineMetrics struct {
	Runs           metric.Int64Counter
	RunDuration    metric.Float64Histogram
	StageDuration  metric.Float64Histogram
	RowsRead       metric.Int64Counter
	RowsSkipped    metric.Int64Counter
	ColumnsDropped metric.Int64Counter
	InvalidCells   metric.Int64Counter
	Observations   metric.Int64Counter
	RebasedRows    metric.Int64Counter
	MissingIndex   metric.Int64Counter
	EventsSkipped  metric.Int64Counter
	HeapAlloc      metric.Int64Gauge
}

// CreatePipelineMetrics registers the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.Runs, "cpi_runs", "Pipeline runs by status"},
		{&m.RowsRead, "cpi_rows_read", "Data rows read from the input file"},
		{&m.RowsSkipped, "cpi_rows_skipped", "Non-monthly rows dropped by the cleaner"},
		{&m.ColumnsDropped, "cpi_columns_dropped", "Placeholder and metadata columns dropped"},
		{&m.InvalidCells, "cpi_invalid_cells", "Unparsable cells treated as missing"},
		{&m.Observations, "cpi_observations", "Long-form observations produced"},
		{&m.RebasedRows, "cpi_rebased_rows", "Rebased rows drawn on the chart"},
		{&m.MissingIndex, "cpi_missing_index", "Rebased rows without an index value"},
		{&m.EventsSkipped, "cpi_events_skipped", "Chart events without an anchor point"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.RunDuration, err = meter.Float64Histogram(
		"cpi_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
	); err != nil {
		return nil, err
	}

	if m.StageDuration, err = meter.Float64Histogram(
		"cpi_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
	); err != nil {
		return nil, err
	}

	if m.HeapAlloc, err = meter.Int64Gauge(
		"cpi_heap_alloc_bytes",
		metric.WithDescription("Heap bytes allocated at the end of the run"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun records the outcome of a run
func (m *PipelineMetrics) RecordRun(ctx context.Context, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.RunDuration.Record(ctx, duration.Seconds())

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.HeapAlloc.Record(ctx, int64(ms.HeapAlloc))
}

// RecordStage records how long one stage took
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	m.StageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// StartSpan starts a span named after a pipeline stage
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
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
