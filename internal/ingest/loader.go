package ingest

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"

	"salespipe/internal/config"
	"salespipe/internal/dataset"
	apperrors "salespipe/internal/errors"
)

// Table names used for the three sources.
const (
	SalesTable    = "sales"
	ProductsTable = "products"
	RegionsTable  = "regions"
)

// Failure describes one source that could not be loaded.
type Failure struct {
	Source string
	Path   string
	Err    error
}

// Result holds whatever could be loaded. A nil table means that source is absent.
type Result struct {
	Sales    *dataset.Table
	Products *dataset.Table
	Regions  *dataset.Table
	Failures []Failure
}

// Failed reports whether the named source failed to load.
func (r *Result) Failed(source string) bool {
	for _, f := range r.Failures {
		if f.Source == source {
			return true
		}
	}
	return false
}

// Loader reads pipeline inputs from a filesystem.
type Loader struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewLoader creates a loader. A nil fs means the OS filesystem.
func NewLoader(fs afero.Fs, logger *slog.Logger) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fs: fs, logger: logger.With(slog.String("component", "loader"))}
}

// LoadAll loads the sales CSV, product JSON and region workbook. Failures are
// logged and collected; they never stop the other loads.
func (l *Loader) LoadAll(ctx context.Context, src config.SourcesConfig) *Result {
	res := &Result{}

	res.Sales = l.load(ctx, res, SalesTable, src.SalesCSV, func() (*dataset.Table, error) {
		return l.LoadCSV(SalesTable, src.SalesCSV)
	})
	res.Products = l.load(ctx, res, ProductsTable, src.ProductsJSON, func() (*dataset.Table, error) {
		return l.LoadJSON(ProductsTable, src.ProductsJSON)
	})
	res.Regions = l.load(ctx, res, RegionsTable, src.RegionsXLSX, func() (*dataset.Table, error) {
		return l.LoadExcel(RegionsTable, src.RegionsXLSX, src.RegionsSheet)
	})

	return res
}

func (l *Loader) load(ctx context.Context, res *Result, source, path string, fn func() (*dataset.Table, error)) *dataset.Table {
	if err := ctx.Err(); err != nil {
		res.Failures = append(res.Failures, Failure{Source: source, Path: path, Err: apperrors.NewSourceLoadError(source, path, err)})
		return nil
	}

	table, err := fn()
	if err != nil {
		loadErr := apperrors.NewSourceLoadError(source, path, err)
		l.logger.ErrorContext(ctx, "Failed to load source",
			slog.String("source", source),
			slog.String("path", path),
			slog.String("error", err.Error()))
		res.Failures = append(res.Failures, Failure{Source: source, Path: path, Err: loadErr})
		return nil
	}

	l.logger.InfoContext(ctx, "Loaded source",
		slog.String("source", source),
		slog.String("path", path),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns)))
	return table
}
