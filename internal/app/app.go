package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"twcpi/internal/chart"
	"twcpi/internal/config"
	"twcpi/internal/dataprocessing"
	"twcpi/internal/exporter"
	"twcpi/internal/infrastructure"
	"twcpi/internal/storage"
	"twcpi/internal/validation"
	"twcpi/pkg/contracts/domain"
)

// Stage names, used for spans and the stage duration metric
const (
	StageValidate = "validate"
	StageLoad     = "load"
	StageClean    = "clean"
	StageReshape  = "reshape"
	StageRebase   = "rebase"
	StageRender   = "render"
	StageExport   = "export"
)

// Application wires the pipeline stages to their infrastructure
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	OTel      *infrastructure.OTelProviders
	Metrics   *infrastructure.PipelineMetrics
	Validator *validation.FileValidator
	Renderer  *chart.Renderer
	CSV       *exporter.CSVWriter
	Workbook  *exporter.WorkbookWriter
	// History is nil when no ledger is configured
	History *storage.HistoryRepository
}

// CleanSummary reports what the cleaner removed
type CleanSummary struct {
	Records        int
	Categories     []string
	DroppedColumns []string
	SkippedRows    int
	InvalidCells   int
}

// Result is the outcome of a successful run
type Result struct {
	RunID        string
	StartedAt    time.Time
	Clean        CleanSummary
	Observations int
	// Table is the rebased table that was drawn
	Table         []domain.RebasedObservation
	MissingIndex  int
	EventsPlaced  int
	EventsSkipped int
	Duration      time.Duration
}

// NewApplication validates cfg and builds every component a run needs.
// A nil logger uses the global one.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = infrastructure.WithComponent(logger, "pipeline")

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(otelProviders.Meter)
	if err != nil {
		otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	renderer, err := chart.NewRenderer(chartOptions(cfg.Render), logger)
	if err != nil {
		otelProviders.Shutdown(context.Background())
		return nil, err
	}

	app := &Application{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		OTel:      otelProviders,
		Metrics:   metrics,
		Validator: validation.NewFileValidator(logger),
		Renderer:  renderer,
		CSV:       exporter.NewCSVWriter(logger),
		Workbook:  exporter.NewWorkbookWriter(logger),
	}

	if paths.History != "" {
		history, err := storage.NewHistoryRepository(paths.History)
		if err != nil {
			otelProviders.Shutdown(context.Background())
			return nil, err
		}
		app.History = history
	}

	return app, nil
}

// chartOptions maps the render configuration onto renderer options
func chartOptions(r config.RenderConfig) chart.Options {
	return chart.Options{
		Width:         r.Width,
		Height:        r.Height,
		DPI:           r.DPI,
		FontPath:      r.FontPath,
		TitleTemplate: r.Title,
		YAxisLabel:    r.YAxisLabel,
		TickMonths:    r.TickMonths,
		BaseLine:      r.BaseLine,
	}
}

// Run executes the pipeline once: validate, load, clean, reshape, rebase,
// render and export. Every stage runs at most once. On error no result is
// returned.
func (a *Application) Run(ctx context.Context) (result *Result, err error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	start := time.Now()
	result = &Result{RunID: infrastructure.GetTraceID(ctx), StartedAt: start}

	ctx, span := infrastructure.StartSpan(ctx, a.OTel.Tracer, "pipeline",
		attribute.String("run.id", result.RunID),
		attribute.String("input.path", a.Paths.Input))
	defer span.End()

	a.Logger.InfoContext(ctx, "Pipeline started",
		slog.String("input", a.Paths.Input),
		slog.String("output", a.Paths.Output),
		slog.String("base_date", a.Config.Pipeline.BaseDate),
		slog.Any("categories", a.Config.Pipeline.Categories))

	defer func() {
		result.Duration = time.Since(start)
		a.finish(ctx, result, err)
		if err != nil {
			result = nil
		}
	}()

	base, err := a.Config.Pipeline.BaseMonth()
	if err != nil {
		return result, err
	}
	events, err := a.Config.Pipeline.DomainEvents()
	if err != nil {
		return result, err
	}

	if err = a.stage(ctx, StageValidate, a.validate); err != nil {
		return result, err
	}

	var table *dataprocessing.RawTable
	if err = a.stage(ctx, StageLoad, func(ctx context.Context) error {
		var lerr error
		table, lerr = dataprocessing.LoadFile(a.Paths.Input, a.Config.Pipeline.LoadOptions())
		if lerr != nil {
			return lerr
		}
		a.Metrics.RowsRead.Add(ctx, int64(len(table.Rows)))
		infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
			"rows":    len(table.Rows),
			"columns": len(table.Header),
		})
		return nil
	}); err != nil {
		return result, err
	}

	var cleaned *dataprocessing.CleanResult
	if err = a.stage(ctx, StageClean, func(ctx context.Context) error {
		var cerr error
		cleaned, cerr = dataprocessing.Clean(table, a.Config.Pipeline.CleanOptions())
		if cerr != nil {
			return cerr
		}
		a.recordClean(ctx, cleaned)
		return nil
	}); err != nil {
		return result, err
	}
	result.Clean = CleanSummary{
		Records:        len(cleaned.Records),
		Categories:     cleaned.Categories,
		DroppedColumns: cleaned.DroppedColumns,
		SkippedRows:    cleaned.SkippedRows,
		InvalidCells:   cleaned.InvalidCells,
	}

	var long []domain.LongObservation
	if err = a.stage(ctx, StageReshape, func(ctx context.Context) error {
		long = dataprocessing.ToLong(cleaned.Records)
		a.Metrics.Observations.Add(ctx, int64(len(long)))
		return nil
	}); err != nil {
		return result, err
	}
	result.Observations = len(long)

	var rebased []domain.RebasedObservation
	if err = a.stage(ctx, StageRebase, func(ctx context.Context) error {
		var rerr error
		rebased, rerr = dataprocessing.Rebase(long, base, a.Config.Pipeline.Categories)
		if rerr != nil {
			return rerr
		}
		for _, c := range a.Config.Pipeline.Categories {
			if !hasCategory(rebased, c) {
				a.Logger.WarnContext(ctx, "Requested category not in data",
					slog.String("category", c))
			}
		}
		return nil
	}); err != nil {
		return result, err
	}

	if err = a.stage(ctx, StageRender, func(ctx context.Context) error {
		out, rerr := a.Renderer.RenderContext(ctx, chart.Request{
			Observations: rebased,
			Categories:   a.Config.Pipeline.Categories,
			BaseDate:     base,
			Events:       events,
			OutputPath:   a.Paths.Output,
		})
		if rerr != nil {
			return rerr
		}
		result.Table = out.Table
		result.EventsPlaced = out.EventsPlaced
		result.EventsSkipped = out.EventsSkipped
		result.MissingIndex = countMissing(out.Table)

		a.Metrics.RebasedRows.Add(ctx, int64(len(out.Table)))
		a.Metrics.MissingIndex.Add(ctx, int64(result.MissingIndex))
		a.Metrics.EventsSkipped.Add(ctx, int64(out.EventsSkipped))
		infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
			"series":         out.Series,
			"events.placed":  out.EventsPlaced,
			"events.skipped": out.EventsSkipped,
		})
		return nil
	}); err != nil {
		return result, err
	}

	if a.Paths.AuditCSV != "" || a.Paths.AuditXLSX != "" {
		if err = a.stage(ctx, StageExport, func(ctx context.Context) error {
			return a.export(ctx, result.Table)
		}); err != nil {
			return result, err
		}
	}

	return result, nil
}

// stage runs fn in its own span and records its duration. A cancelled
// context stops the run before the stage starts.
func (a *Application) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	ctx, span := infrastructure.StartSpan(ctx, a.OTel.Tracer, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	a.Metrics.RecordStage(ctx, name, time.Since(start))

	if err != nil {
		infrastructure.RecordError(ctx, err)
		a.Logger.ErrorContext(ctx, "Stage failed",
			slog.String("stage", name),
			slog.String("error", err.Error()))
		return err
	}

	a.Logger.DebugContext(ctx, "Stage completed",
		slog.String("stage", name),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (a *Application) validate(ctx context.Context) error {
	if err := a.Validator.ValidateCSVFile(a.Paths.Input); err != nil {
		return err
	}

	outputs := []struct {
		path string
		ext  string
	}{
		{a.Paths.Output, ".png"},
		{a.Paths.AuditCSV, ".csv"},
		{a.Paths.AuditXLSX, ".xlsx"},
	}
	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		if err := a.Validator.ValidateOutputFile(o.path, o.ext); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) recordClean(ctx context.Context, cleaned *dataprocessing.CleanResult) {
	a.Metrics.RowsSkipped.Add(ctx, int64(cleaned.SkippedRows))
	a.Metrics.ColumnsDropped.Add(ctx, int64(len(cleaned.DroppedColumns)))
	a.Metrics.InvalidCells.Add(ctx, int64(cleaned.InvalidCells))

	a.Logger.InfoContext(ctx, "Table cleaned",
		slog.Int("records", len(cleaned.Records)),
		slog.Int("categories", len(cleaned.Categories)),
		slog.Any("dropped_columns", cleaned.DroppedColumns),
		slog.Int("skipped_rows", cleaned.SkippedRows),
		slog.Int("invalid_cells", cleaned.InvalidCells))

	if cleaned.InvalidCells > 0 {
		a.Logger.WarnContext(ctx, "Unparsable cells treated as missing",
			slog.Int("invalid_cells", cleaned.InvalidCells))
	}
}

// export writes the audit copies of the rebased table, CSV first
func (a *Application) export(ctx context.Context, table []domain.RebasedObservation) error {
	if a.Paths.AuditCSV != "" {
		if err := a.CSV.WriteRebased(a.Paths.AuditCSV, table); err != nil {
			return err
		}
	}
	if a.Paths.AuditXLSX != "" {
		if err := a.Workbook.WriteRebased(a.Paths.AuditXLSX, table); err != nil {
			return err
		}
	}
	a.Logger.InfoContext(ctx, "Audit tables written",
		slog.String("csv", a.Paths.AuditCSV),
		slog.String("xlsx", a.Paths.AuditXLSX),
		slog.Int("rows", len(table)))
	return nil
}

// finish records the run in metrics and the history ledger and writes the
// metrics textfile. Failures here are logged and do not change the outcome.
func (a *Application) finish(ctx context.Context, result *Result, runErr error) {
	a.Metrics.RecordRun(ctx, result.Duration, runErr)
	if runErr != nil {
		infrastructure.RecordError(ctx, runErr)
	}

	a.saveHistory(ctx, result, runErr)

	if a.Paths.Metrics != "" {
		if err := a.OTel.WriteMetricsTextfile(a.Paths.Metrics); err != nil {
			a.Logger.ErrorContext(ctx, "Failed to write metrics textfile",
				slog.String("path", a.Paths.Metrics),
				slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		a.Logger.ErrorContext(ctx, "Pipeline failed",
			slog.String("error", runErr.Error()),
			slog.Duration("duration", result.Duration))
		return
	}
	a.Logger.InfoContext(ctx, "Pipeline completed",
		slog.Int("rows", len(result.Table)),
		slog.Int("missing_index", result.MissingIndex),
		slog.Int("events_placed", result.EventsPlaced),
		slog.Int("events_skipped", result.EventsSkipped),
		slog.Duration("duration", result.Duration))
}

func (a *Application) saveHistory(ctx context.Context, result *Result, runErr error) {
	if a.History == nil {
		return
	}

	rec := storage.RunRecord{
		RunID:        result.RunID,
		StartedAt:    result.StartedAt,
		Duration:     result.Duration,
		Status:       storage.StatusSuccess,
		InputPath:    a.Paths.Input,
		OutputPath:   a.Paths.Output,
		Categories:   a.Config.Pipeline.Categories,
		Records:      result.Clean.Records,
		SkippedRows:  result.Clean.SkippedRows,
		InvalidCells: result.Clean.InvalidCells,
		Observations: result.Observations,
		RebasedRows:  len(result.Table),
		MissingIndex: result.MissingIndex,
	}
	if base, err := a.Config.Pipeline.BaseMonth(); err == nil {
		rec.BaseDate = base
	}
	table := result.Table
	if runErr != nil {
		rec.Status = storage.StatusError
		rec.Error = runErr.Error()
		table = nil
	}

	// The run context may already be cancelled
	if err := a.History.SaveRun(context.WithoutCancel(ctx), rec, table); err != nil {
		a.Logger.WarnContext(ctx, "Failed to record run history",
			slog.String("error", err.Error()))
	}
}

// Shutdown flushes telemetry and closes the history ledger
func (a *Application) Shutdown(ctx context.Context) error {
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing history database", slog.String("error", err.Error()))
		}
	}
	if a.OTel != nil {
		if err := a.OTel.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}

// Run builds an Application for cfg, runs it once and shuts it down
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	a, err := NewApplication(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer a.Shutdown(context.WithoutCancel(ctx))

	return a.Run(ctx)
}

func hasCategory(rows []domain.RebasedObservation, category string) bool {
	for _, r := range rows {
		if r.Category == category {
			return true
		}
	}
	return false
}

func countMissing(rows []domain.RebasedObservation) int {
	n := 0
	for _, r := range rows {
		if domain.IsMissing(r.Index100) {
			n++
		}
	}
	return n
}
