package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"salespipe/internal/charts"
	"salespipe/internal/config"
	"salespipe/internal/dataprocessing"
	"salespipe/internal/dataset"
	"salespipe/internal/errors"
	"salespipe/internal/exporter"
	"salespipe/internal/infrastructure"
	"salespipe/internal/ingest"
	"salespipe/internal/storage"
	"salespipe/pkg/contracts/domain"
)

// Notices printed when the merged dataset is unavailable.
const (
	NoMergedDataNotice = "No merged data available for analysis"
	NoChartDataNotice  = "No data available for visualization"
)

// StoreOpener opens the database used by the store step.
type StoreOpener func(ctx context.Context) (*storage.Store, error)

// Result carries everything a run produced. Fields stay nil for steps that
// did not run or had nothing to produce.
type Result struct {
	Run *RunState

	Loaded   *ingest.Result
	Sales    *dataset.Table
	Products *dataset.Table
	Regions  *dataset.Table
	Merged   *dataset.Table

	Stored        []storage.Result
	Analysis      *domain.SalesAnalysis
	Reports       []exporter.ReportResult
	Charts        []charts.Artifact
	ChartFailures []charts.Failure
}

// Pipeline wires the loader, cleaner, merger, aggregator and sinks together.
type Pipeline struct {
	cfg     *config.Config
	paths   *config.Paths
	fs      afero.Fs
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
	printer *StatusPrinter

	openStore StoreOpener

	loader     *ingest.Loader
	cleaner    *dataprocessing.Cleaner
	merger     *dataprocessing.Merger
	aggregator *dataprocessing.Aggregator
	reports    *exporter.ReportWriter
	charts     *charts.Renderer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFs sets the filesystem used for sources, reports and charts.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithTracing uses the tracer of an initialized provider.
func WithTracing(tp *infrastructure.TracingProvider) Option {
	return func(p *Pipeline) {
		if tp != nil && tp.Tracer != nil {
			p.tracer = tp.Tracer
		}
	}
}

// WithMetrics records into the given metrics instead of a fresh registry.
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithOutput sends status lines and the step table to w.
func WithOutput(w io.Writer, noColor bool) Option {
	return func(p *Pipeline) { p.printer = NewStatusPrinter(w, noColor) }
}

// WithStoreOpener replaces how the database is opened.
func WithStoreOpener(open StoreOpener) Option {
	return func(p *Pipeline) { p.openStore = open }
}

// New builds a pipeline from a finalized configuration.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("configuration is required", nil)
	}

	p := &Pipeline{
		cfg:   cfg,
		paths: config.NewPaths(cfg),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	if p.logger == nil {
		p.logger = infrastructure.GetLogger()
	}
	if p.tracer == nil {
		p.tracer = noop.NewTracerProvider().Tracer(infrastructure.TracerName)
	}
	if p.metrics == nil {
		p.metrics = infrastructure.NewPipelineMetrics()
	}
	if p.printer == nil {
		p.printer = NewStatusPrinter(nil, true)
	}
	if p.openStore == nil {
		p.openStore = func(ctx context.Context) (*storage.Store, error) {
			return storage.Open(ctx, cfg.Database, p.logger)
		}
	}

	p.loader = ingest.NewLoader(p.fs, p.logger)
	p.cleaner = dataprocessing.NewCleaner(p.logger, dataprocessing.CleanerConfig{
		DateLayouts:     cfg.Cleaning.DateLayouts,
		UnknownCategory: cfg.Cleaning.UnknownCategory,
	})
	p.merger = dataprocessing.NewMerger(p.logger)
	p.aggregator = dataprocessing.NewAggregator(p.logger, dataprocessing.AggregatorConfig{
		TopProducts: cfg.Output.TopProducts,
	})
	p.reports = exporter.NewReportWriter(p.fs, p.paths, cfg.Output.BOMPrefix, p.logger)
	p.charts = charts.NewRenderer(p.fs, p.paths, charts.RendererConfig{TopProducts: cfg.Output.TopProducts}, p.logger)

	p.logger = p.logger.With(slog.String("component", "pipeline"))
	return p, nil
}

// Metrics returns the registry-backed metrics recorded by this pipeline.
func (p *Pipeline) Metrics() *infrastructure.PipelineMetrics {
	return p.metrics
}

type stepFunc func(ctx context.Context, res *Result, step *StepState) error

// Run executes every step in order. Only unrecoverable problems are
// returned as errors; the Result is always non-nil.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	run := NewRunState(infrastructure.GetRunID(ctx))
	res := &Result{Run: run}

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", run.ID)))
	defer span.End()

	run.Start()
	p.printer.RunStarted(run.ID)
	p.logger.InfoContext(ctx, "Pipeline run started")
	p.paths.LogPathResolution(p.logger)

	if err := p.paths.EnsureDirectories(p.fs); err != nil {
		return p.finish(ctx, res, errors.NewConfigError("output directories are not creatable", err))
	}

	steps := []struct {
		id string
		fn stepFunc
	}{
		{StepLoad, p.load},
		{StepClean, p.clean},
		{StepMerge, p.merge},
		{StepStore, p.store},
		{StepAnalyze, p.analyze},
		{StepVisualize, p.visualize},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return p.finish(ctx, res, fmt.Errorf("run cancelled before %s: %w", s.id, err))
		}
		if err := p.runStep(ctx, res, s.id, s.fn); err != nil {
			return p.finish(ctx, res, err)
		}
	}

	return p.finish(ctx, res, nil)
}

func (p *Pipeline) runStep(ctx context.Context, res *Result, id string, fn stepFunc) error {
	step := res.Run.Step(id)

	ctx, span := p.tracer.Start(ctx, "pipeline.step."+id,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", res.Run.ID),
			attribute.String("step.id", id),
		))
	defer span.End()

	step.Start()
	p.printer.StepStarted(step)
	p.logger.InfoContext(ctx, "Step started", slog.String("step", id))

	err := fn(ctx, res, step)
	if err != nil {
		step.Fail(err)
		infrastructure.RecordError(ctx, err)
	} else if status, _ := step.Snapshot(); !status.Finished() {
		step.Complete("")
	}

	status, message := step.Snapshot()
	span.SetAttributes(attribute.String("step.status", string(status)))
	p.metrics.ObserveStep(id, string(status), step.Duration())
	p.printer.StepFinished(step)

	if err != nil {
		p.logger.ErrorContext(ctx, "Step failed",
			slog.String("step", id),
			slog.Duration("duration", step.Duration()),
			slog.String("error", err.Error()))
		return err
	}
	p.logger.InfoContext(ctx, "Step finished",
		slog.String("step", id),
		slog.String("status", string(status)),
		slog.String("message", message),
		slog.Duration("duration", step.Duration()))
	return nil
}

func (p *Pipeline) finish(ctx context.Context, res *Result, err error) (*Result, error) {
	run := res.Run
	if err != nil {
		run.Fail(err)
		infrastructure.RecordError(ctx, err)
		p.logger.ErrorContext(ctx, "Pipeline run failed",
			slog.Duration("duration", run.Duration()),
			slog.String("error", err.Error()))
	} else {
		run.Complete()
		p.logger.InfoContext(ctx, "Pipeline run completed", slog.Duration("duration", run.Duration()))
	}

	p.printer.StepTable(run)

	if werr := p.metrics.WriteTextfile(p.cfg.Telemetry.MetricsTextfile); werr != nil {
		p.logger.WarnContext(ctx, "Failed to write metrics textfile",
			slog.String("path", p.cfg.Telemetry.MetricsTextfile),
			slog.String("error", werr.Error()))
	}
	return res, err
}

func (p *Pipeline) load(ctx context.Context, res *Result, step *StepState) error {
	loaded := p.loader.LoadAll(ctx, p.cfg.Sources)
	res.Loaded = loaded

	tables := []*dataset.Table{loaded.Sales, loaded.Products, loaded.Regions}
	for _, t := range tables {
		if t != nil {
			p.metrics.AddRows(t.Name, t.Len())
		}
	}

	msg := fmt.Sprintf("%d of %d sources loaded", lo.CountBy(tables, func(t *dataset.Table) bool { return t != nil }), len(tables))
	if len(loaded.Failures) > 0 {
		failed := lo.Map(loaded.Failures, func(f ingest.Failure, _ int) string { return f.Source })
		step.Degrade(msg + "; failed: " + strings.Join(failed, ", "))
		return nil
	}
	step.Complete(msg)
	return nil
}

func (p *Pipeline) clean(ctx context.Context, res *Result, step *StepState) error {
	var err error
	if res.Sales, err = p.cleaner.CleanSales(ctx, res.Loaded.Sales); err != nil {
		return err
	}
	if res.Products, err = p.cleaner.CleanProducts(ctx, res.Loaded.Products); err != nil {
		return err
	}
	if res.Regions, err = p.cleaner.CleanRegions(ctx, res.Loaded.Regions); err != nil {
		return err
	}

	if res.Sales == nil && res.Products == nil && res.Regions == nil {
		step.Skip("no data loaded")
		return nil
	}

	cleaned := lo.Filter([]*dataset.Table{res.Sales, res.Products, res.Regions}, func(t *dataset.Table, _ int) bool { return t != nil })
	names := lo.Map(cleaned, func(t *dataset.Table, _ int) string { return fmt.Sprintf("%s (%d rows)", t.Name, t.Len()) })
	step.Complete(strings.Join(names, ", "))
	return nil
}

func (p *Pipeline) merge(ctx context.Context, res *Result, step *StepState) error {
	merged, err := p.merger.Merge(ctx, res.Sales, res.Products, res.Regions)
	if err != nil {
		if errors.IsRecoverable(err) {
			p.logger.WarnContext(ctx, "Skipping merge", slog.String("reason", err.Error()))
			step.Skip(err.Error())
			return nil
		}
		return err
	}

	res.Merged = merged
	p.metrics.AddRows(merged.Name, merged.Len())
	step.Complete(fmt.Sprintf("%d rows, %d columns", merged.Len(), len(merged.Columns)))
	return nil
}

func (p *Pipeline) store(ctx context.Context, res *Result, step *StepState) error {
	entries := []storage.Entry{
		{Name: storage.SalesTable, Data: res.Sales},
		{Name: storage.ProductsTable, Data: res.Products},
		{Name: storage.RegionsTable, Data: res.Regions},
		{Name: storage.MergedSalesTable, Data: res.Merged},
	}
	present := lo.Filter(entries, func(e storage.Entry, _ int) bool { return e.Data != nil })
	if len(present) == 0 {
		step.Skip("no tables to store")
		return nil
	}

	store, err := p.openStore(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Database unavailable", slog.String("error", err.Error()))
		for range present {
			p.metrics.CountArtifact("table", false)
		}
		step.Degrade("database unavailable: " + err.Error())
		return nil
	}
	defer store.Close()

	res.Stored = store.StoreAll(ctx, entries)

	var stored, failed []string
	for _, r := range res.Stored {
		if r.Skipped {
			continue
		}
		p.metrics.CountArtifact("table", r.Err == nil)
		if r.Err != nil {
			failed = append(failed, r.Name)
		} else {
			stored = append(stored, r.Name)
		}
	}

	msg := fmt.Sprintf("%d tables stored", len(stored))
	if len(failed) > 0 {
		step.Degrade(msg + "; failed: " + strings.Join(failed, ", "))
		return nil
	}
	step.Complete(msg)
	return nil
}

func (p *Pipeline) analyze(ctx context.Context, res *Result, step *StepState) error {
	if res.Merged == nil {
		p.logger.WarnContext(ctx, NoMergedDataNotice)
		p.printer.Notice(NoMergedDataNotice)
		step.Skip(NoMergedDataNotice)
		return nil
	}

	analysis, err := p.aggregator.Analyze(ctx, res.Merged)
	if err != nil {
		return err
	}
	res.Analysis = analysis

	summary := analysis.Summary
	p.logger.InfoContext(ctx, "Sales summary",
		slog.Float64("total_revenue", summary.TotalRevenue),
		slog.Float64("average_revenue", summary.AverageRevenue),
		slog.Float64("total_units", summary.TotalUnits),
		slog.Int("rows", summary.Rows))
	p.printer.Summary(summary.String())

	res.Reports = p.reports.WriteAll(ctx, analysis)
	var failed []string
	for _, r := range res.Reports {
		p.metrics.CountArtifact("report", r.Err == nil)
		if r.Err != nil {
			failed = append(failed, r.Name)
		}
	}

	msg := fmt.Sprintf("%d reports written", len(res.Reports)-len(failed))
	if len(failed) > 0 {
		step.Degrade(msg + "; failed: " + strings.Join(failed, ", "))
		return nil
	}
	step.Complete(msg)
	return nil
}

func (p *Pipeline) visualize(ctx context.Context, res *Result, step *StepState) error {
	if res.Merged == nil {
		p.logger.WarnContext(ctx, NoChartDataNotice)
		p.printer.Notice(NoChartDataNotice)
		step.Skip(NoChartDataNotice)
		return nil
	}

	data, err := p.aggregator.ChartData(ctx, res.Merged)
	if err != nil {
		return err
	}

	res.Charts, res.ChartFailures = p.charts.RenderAll(ctx, data)
	for range res.Charts {
		p.metrics.CountArtifact("chart", true)
	}
	for range res.ChartFailures {
		p.metrics.CountArtifact("chart", false)
	}

	msg := fmt.Sprintf("%d charts written", len(res.Charts))
	if len(res.ChartFailures) > 0 {
		failed := lo.Map(res.ChartFailures, func(f charts.Failure, _ int) string { return f.Name })
		step.Degrade(msg + "; failed: " + strings.Join(failed, ", "))
		return nil
	}
	step.Complete(msg)
	return nil
}
