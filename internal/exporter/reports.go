package exporter

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"salespipe/internal/config"
	"salespipe/internal/errors"
	"salespipe/pkg/contracts/domain"
)

// Report headers, in the column order of the written files.
var (
	MonthlyHeaders  = []string{"month", "Revenue", "Units Sold"}
	ProductHeaders  = []string{"Product", "Category", "Revenue", "Units Sold"}
	RegionalHeaders = []string{"Region", "Manager", "Revenue", "Units Sold"}
)

// ReportResult is the outcome of writing one report file.
type ReportResult struct {
	Name string
	Path string
	Rows int
	Err  error
}

// ReportWriter writes the analysis views as CSV reports.
type ReportWriter struct {
	csvWriter *CSVWriter
	bom       bool
	logger    *slog.Logger
}

// NewReportWriter creates a report writer that writes into paths.ReportsDir.
func NewReportWriter(fs afero.Fs, paths *config.Paths, bomPrefix bool, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{
		csvWriter: NewCSVWriter(fs, paths),
		bom:       bomPrefix,
		logger:    logger.With(slog.String("component", "reports")),
	}
}

// WriteAll writes the monthly, product and regional reports. A failed file is
// logged and reported; the remaining files are still written.
func (r *ReportWriter) WriteAll(ctx context.Context, analysis *domain.SalesAnalysis) []ReportResult {
	results := []ReportResult{
		r.write(ctx, config.MonthlySalesReport, MonthlyHeaders, monthlyRecords(analysis.Monthly)),
		r.write(ctx, config.ProductPerformanceReport, ProductHeaders, productRecords(analysis.Products)),
		r.write(ctx, config.RegionalPerformanceReport, RegionalHeaders, regionalRecords(analysis.Regions)),
	}

	written := lo.CountBy(results, func(res ReportResult) bool { return res.Err == nil })
	r.logger.InfoContext(ctx, "Saved analysis reports",
		slog.Int("written", written),
		slog.Int("failed", len(results)-written))
	return results
}

func (r *ReportWriter) write(ctx context.Context, name string, headers []string, records [][]string) ReportResult {
	path, err := r.csvWriter.WriteSimpleCSV(name, headers, records, r.bom)
	res := ReportResult{Name: name, Path: path, Rows: len(records)}
	if err != nil {
		res.Err = errors.NewStorageError("failed to write report "+name, err).WithContext("path", path)
		r.logger.ErrorContext(ctx, "Failed to write report",
			slog.String("report", name),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return res
	}

	r.logger.DebugContext(ctx, "Wrote report",
		slog.String("report", name),
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return res
}

func monthlyRecords(rows []domain.MonthlySales) [][]string {
	return lo.Map(rows, func(m domain.MonthlySales, _ int) []string {
		return []string{m.Month, formatFloat(m.Revenue), formatFloat(m.UnitsSold)}
	})
}

func productRecords(rows []domain.ProductPerformance) [][]string {
	return lo.Map(rows, func(p domain.ProductPerformance, _ int) []string {
		return []string{p.Product, p.Category, formatFloat(p.Revenue), formatFloat(p.UnitsSold)}
	})
}

func regionalRecords(rows []domain.RegionalPerformance) [][]string {
	return lo.Map(rows, func(g domain.RegionalPerformance, _ int) []string {
		return []string{g.Region, g.Manager, formatFloat(g.Revenue), formatFloat(g.UnitsSold)}
	})
}
