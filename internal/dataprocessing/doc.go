// Package dataprocessing turns the raw source tables into analysis-ready data.
//
// # Architecture
//
// The package is organized into three components, applied in order:
//
//  1. Cleaner: per-table normalization (dates, numeric fill, trimming)
//  2. Merger: left joins of sales to products and regions
//  3. Aggregator: monthly, product and regional views, the scalar summary and
//     the series drawn by the charts
//
// # Usage
//
//	cleaner := dataprocessing.NewCleaner(logger, dataprocessing.CleanerConfig{
//	    DateLayouts:     cfg.Cleaning.DateLayouts,
//	    UnknownCategory: cfg.Cleaning.UnknownCategory,
//	})
//	sales, err := cleaner.CleanSales(ctx, raw.Sales)
//
//	merged, err := dataprocessing.NewMerger(logger).Merge(ctx, sales, products, regions)
//	analysis, err := dataprocessing.NewAggregator(logger, dataprocessing.AggregatorConfig{}).Analyze(ctx, merged)
//
// # Data Flow
//
//	raw tables → Cleaner → clean tables → Merger → merged table → Aggregator → views
//
// Tables are never modified in place. Each step returns new tables, so the
// raw and clean versions of a dataset can be stored side by side.
//
// # Error Handling
//
// Errors are *errors.AppError values. A Date that cannot be parsed yields
// DATE_PARSE and should end the run; a missing products table yields
// MERGE_UNAVAILABLE, which callers treat as "skip analysis".
package dataprocessing
