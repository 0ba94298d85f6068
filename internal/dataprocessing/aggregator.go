package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"salespipe/internal/dataset"
	"salespipe/internal/errors"
	"salespipe/pkg/contracts/domain"
)

// AggregatorConfig holds configuration options for the Aggregator.
type AggregatorConfig struct {
	TopProducts int // Bars in the top products chart
}

// Aggregator computes the grouped views and scalar summary over the merged
// dataset. It must only be called when a merged table exists.
type Aggregator struct {
	logger      *slog.Logger
	topProducts int
}

// NewAggregator creates an aggregator with the given configuration.
func NewAggregator(logger *slog.Logger, config AggregatorConfig) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TopProducts <= 0 {
		config.TopProducts = 10
	}

	return &Aggregator{
		logger:      logger.With(slog.String("component", "aggregator")),
		topProducts: config.TopProducts,
	}
}

// Analyze computes the monthly, product and regional views plus the summary.
func (a *Aggregator) Analyze(ctx context.Context, merged *dataset.Table) (*domain.SalesAnalysis, error) {
	if merged == nil {
		return nil, errors.NewMergeUnavailableError("merged")
	}

	a.logger.InfoContext(ctx, "Running sales analysis", slog.Int("rows", merged.Len()))

	monthly, err := a.Monthly(ctx, merged)
	if err != nil {
		return nil, err
	}
	products, err := a.ProductPerformance(ctx, merged)
	if err != nil {
		return nil, err
	}
	regions, err := a.RegionalPerformance(ctx, merged)
	if err != nil {
		return nil, err
	}
	summary, err := a.Summarize(ctx, merged)
	if err != nil {
		return nil, err
	}

	return &domain.SalesAnalysis{
		Monthly:  monthly,
		Products: products,
		Regions:  regions,
		Summary:  summary,
	}, nil
}

// Monthly sums units and revenue per calendar month, oldest month first.
func (a *Aggregator) Monthly(ctx context.Context, merged *dataset.Table) ([]domain.MonthlySales, error) {
	if !a.requireColumns(ctx, merged, "monthly", dataset.ColDate) {
		return []domain.MonthlySales{}, nil
	}

	groups, err := groupBy(merged, monthOf)
	if err != nil {
		return nil, errors.NewParsingError("monthly aggregation failed", err)
	}

	out := make([]domain.MonthlySales, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.MonthlySales{Month: g.key[0], UnitsSold: g.units, Revenue: g.revenue})
	}
	return out, nil
}

// ProductPerformance sums units and revenue per (Product, Category), highest
// revenue first.
func (a *Aggregator) ProductPerformance(ctx context.Context, merged *dataset.Table) ([]domain.ProductPerformance, error) {
	if !a.requireColumns(ctx, merged, "product performance", dataset.ColProduct, dataset.ColCategory) {
		return []domain.ProductPerformance{}, nil
	}

	groups, err := groupBy(merged, columnsKey(dataset.ColProduct, dataset.ColCategory))
	if err != nil {
		return nil, errors.NewParsingError("product aggregation failed", err)
	}
	sortByRevenueDesc(groups)

	out := make([]domain.ProductPerformance, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.ProductPerformance{
			Product:   g.key[0],
			Category:  g.key[1],
			UnitsSold: g.units,
			Revenue:   g.revenue,
		})
	}
	return out, nil
}

// RegionalPerformance sums units and revenue per (Region, Manager), highest
// revenue first.
func (a *Aggregator) RegionalPerformance(ctx context.Context, merged *dataset.Table) ([]domain.RegionalPerformance, error) {
	if !a.requireColumns(ctx, merged, "regional performance", dataset.ColRegion, dataset.ColManager) {
		return []domain.RegionalPerformance{}, nil
	}

	groups, err := groupBy(merged, columnsKey(dataset.ColRegion, dataset.ColManager))
	if err != nil {
		return nil, errors.NewParsingError("regional aggregation failed", err)
	}
	sortByRevenueDesc(groups)

	out := make([]domain.RegionalPerformance, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.RegionalPerformance{
			Region:    g.key[0],
			Manager:   g.key[1],
			UnitsSold: g.units,
			Revenue:   g.revenue,
		})
	}
	return out, nil
}

// Summarize computes total revenue, mean revenue per row and total units over
// every row. The mean of an empty table is 0. Without a Units Sold or Revenue
// column it returns a PARSING error.
func (a *Aggregator) Summarize(ctx context.Context, merged *dataset.Table) (domain.SalesSummary, error) {
	if err := requireValues(merged); err != nil {
		return domain.SalesSummary{}, errors.NewParsingError("summary failed", err)
	}

	var s domain.SalesSummary
	s.Rows = merged.Len()

	for i := 0; i < merged.Len(); i++ {
		revenue, err := numberAt(merged, i, dataset.ColRevenue)
		if err != nil {
			return domain.SalesSummary{}, errors.NewParsingError("summary failed", err)
		}
		units, err := numberAt(merged, i, dataset.ColUnitsSold)
		if err != nil {
			return domain.SalesSummary{}, errors.NewParsingError("summary failed", err)
		}
		s.TotalRevenue += revenue
		s.TotalUnits += units
	}
	if s.Rows > 0 {
		s.AverageRevenue = s.TotalRevenue / float64(s.Rows)
	}

	a.logger.InfoContext(ctx, "Sales summary",
		slog.Float64("total_revenue", s.TotalRevenue),
		slog.Float64("average_revenue", s.AverageRevenue),
		slog.Float64("total_units", s.TotalUnits))
	return s, nil
}

// ChartData derives the series for the four charts: revenue by month, the top
// products by units sold, revenue by category (ascending) and revenue by region.
func (a *Aggregator) ChartData(ctx context.Context, merged *dataset.Table) (*domain.ChartData, error) {
	if merged == nil {
		return nil, errors.NewMergeUnavailableError("merged")
	}

	data, err := chartGroupings(merged, a.topProducts)
	if err != nil {
		return nil, errors.NewParsingError("chart grouping failed", err)
	}

	a.logger.DebugContext(ctx, "Chart data prepared",
		slog.Int("months", len(data.MonthlyRevenue)),
		slog.Int("products", len(data.TopProducts)),
		slog.Int("categories", len(data.CategoryRevenue)),
		slog.Int("regions", len(data.RegionRevenue)))
	return data, nil
}

func (a *Aggregator) requireColumns(ctx context.Context, t *dataset.Table, view string, cols ...string) bool {
	if hasColumns(t, cols...) {
		return true
	}
	a.logger.WarnContext(ctx, "Skipping view, merged data lacks key columns",
		slog.String("view", view),
		slog.String("columns", fmt.Sprint(cols)))
	return false
}
