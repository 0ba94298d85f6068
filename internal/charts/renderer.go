package charts

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"salespipe/internal/config"
	"salespipe/internal/errors"
	"salespipe/pkg/contracts/domain"
)

// Chart names double as file stems.
const (
	MonthlySalesTrend = "monthly_sales_trend"
	TopProducts       = "top_products"
	CategoryRevenue   = "category_revenue"
	RegionalRevenue   = "regional_revenue"
)

// Names lists the charts in render order.
var Names = []string{MonthlySalesTrend, TopProducts, CategoryRevenue, RegionalRevenue}

// Artifact is a rendered chart on disk.
type Artifact struct {
	Name string
	Path string
}

// Failure is a chart that could not be written.
type Failure struct {
	Name string
	Err  error
}

// renderable is satisfied by every go-echarts chart type.
type renderable interface {
	Render(w io.Writer) error
}

// RendererConfig holds configuration options for the Renderer.
type RendererConfig struct {
	TopProducts int // Used in the top products chart title
}

// Renderer turns chart data into HTML files in the charts directory.
type Renderer struct {
	fs          afero.Fs
	paths       *config.Paths
	topProducts int
	logger      *slog.Logger
}

// NewRenderer creates a renderer. A nil fs means the OS filesystem.
func NewRenderer(fs afero.Fs, paths *config.Paths, cfg RendererConfig, logger *slog.Logger) *Renderer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopProducts <= 0 {
		cfg.TopProducts = 10
	}
	return &Renderer{
		fs:          fs,
		paths:       paths,
		topProducts: cfg.TopProducts,
		logger:      logger.With(slog.String("component", "charts")),
	}
}

// RenderAll writes all four charts. A chart that fails is logged and
// reported; the others are still written.
func (r *Renderer) RenderAll(ctx context.Context, data *domain.ChartData) ([]Artifact, []Failure) {
	var artifacts []Artifact
	var failures []Failure

	if err := r.fs.MkdirAll(r.paths.ChartsDir, 0755); err != nil {
		err = errors.NewStorageError("failed to create charts directory", err).WithContext("path", r.paths.ChartsDir)
		r.logger.ErrorContext(ctx, "Cannot create charts directory", slog.String("error", err.Error()))
		return nil, lo.Map(Names, func(name string, _ int) Failure { return Failure{Name: name, Err: err} })
	}

	for _, name := range Names {
		path := r.paths.GetChartPath(name + ".html")
		if err := r.renderFile(name, path, data); err != nil {
			r.logger.ErrorContext(ctx, "Failed to render chart",
				slog.String("chart", name),
				slog.String("path", path),
				slog.String("error", err.Error()))
			failures = append(failures, Failure{Name: name, Err: err})
			continue
		}
		r.logger.DebugContext(ctx, "Rendered chart", slog.String("chart", name), slog.String("path", path))
		artifacts = append(artifacts, Artifact{Name: name, Path: path})
	}

	r.logger.InfoContext(ctx, "Created sales visualizations",
		slog.Int("written", len(artifacts)),
		slog.Int("failed", len(failures)))
	return artifacts, failures
}

func (r *Renderer) renderFile(name, path string, data *domain.ChartData) error {
	f, err := r.fs.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create chart file", err).WithContext("path", path)
	}

	if err := r.RenderTo(f, name, data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.NewStorageError("failed to close chart file", err).WithContext("path", path)
	}
	return nil
}

// RenderTo writes the named chart as HTML to w.
func (r *Renderer) RenderTo(w io.Writer, name string, data *domain.ChartData) error {
	chart, err := r.build(name, data)
	if err != nil {
		return err
	}
	if err := chart.Render(w); err != nil {
		return errors.NewStorageError("failed to render chart "+name, err)
	}
	return nil
}

func (r *Renderer) build(name string, data *domain.ChartData) (renderable, error) {
	if data == nil {
		return nil, errors.NewAppValidationError("no chart data")
	}
	switch name {
	case MonthlySalesTrend:
		return monthlyTrend(data.MonthlyRevenue), nil
	case TopProducts:
		return topProducts(data.TopProducts, r.topProducts), nil
	case CategoryRevenue:
		return categoryRevenue(data.CategoryRevenue), nil
	case RegionalRevenue:
		return regionalRevenue(data.RegionRevenue), nil
	default:
		return nil, errors.NewNotFoundError(fmt.Sprintf("chart %q", name))
	}
}

func labels(points []domain.LabeledValue) []string {
	return lo.Map(points, func(p domain.LabeledValue, _ int) string { return p.Label })
}

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: title,
		Width:     "1200px",
		Height:    "600px",
	})
}

func monthlyTrend(points []domain.LabeledValue) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("Monthly Sales Trend"),
		charts.WithTitleOpts(opts.Title{Title: "Monthly Sales Trend"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Month"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Total Revenue ($)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	series := lo.Map(points, func(p domain.LabeledValue, _ int) opts.LineData {
		return opts.LineData{Value: p.Value}
	})
	line.SetXAxis(labels(points)).
		AddSeries("Revenue", series).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "circle"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "royalblue"}),
		)
	return line
}

func topProducts(points []domain.LabeledValue, n int) *charts.Bar {
	title := fmt.Sprintf("Top %d Products by Units Sold", n)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Total Units Sold"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	series := lo.Map(points, func(p domain.LabeledValue, _ int) opts.BarData {
		return opts.BarData{Value: p.Value}
	})
	bar.SetXAxis(labels(points)).
		AddSeries("Units Sold", series).
		SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{Color: "forestgreen"}))
	bar.XYReversal()
	return bar
}

func categoryRevenue(points []domain.LabeledValue) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("Revenue by Product Category"),
		charts.WithTitleOpts(opts.Title{Title: "Revenue by Product Category"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Total Revenue ($)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	series := lo.Map(points, func(p domain.LabeledValue, _ int) opts.BarData {
		return opts.BarData{Value: p.Value}
	})
	bar.SetXAxis(labels(points)).
		AddSeries("Revenue", series).
		SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{Color: "teal"}))
	return bar
}

func regionalRevenue(points []domain.LabeledValue) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts("Revenue Distribution by Region"),
		charts.WithTitleOpts(opts.Title{Title: "Revenue Distribution by Region"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	series := lo.Map(points, func(p domain.LabeledValue, _ int) opts.PieData {
		return opts.PieData{Name: p.Label, Value: p.Value}
	})
	pie.AddSeries("Revenue", series).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
		)
	return pie
}
