package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// Well-known output file names.
const (
	MonthlySalesReport        = "monthly_sales.csv"
	ProductPerformanceReport  = "product_performance.csv"
	RegionalPerformanceReport = "regional_performance.csv"
)

// Paths contains all resolved file locations for a pipeline run.
// This is the single source of truth for file paths; it is derived from a
// finalized Config and never consults global state.
type Paths struct {
	BaseDir string

	SalesCSV     string
	ProductsJSON string
	RegionsXLSX  string

	ReportsDir   string
	ChartsDir    string
	DatabaseFile string
	LogFile      string
}

// NewPaths derives Paths from a finalized configuration.
func NewPaths(cfg *Config) *Paths {
	return &Paths{
		BaseDir:      cfg.BaseDir,
		SalesCSV:     cfg.Sources.SalesCSV,
		ProductsJSON: cfg.Sources.ProductsJSON,
		RegionsXLSX:  cfg.Sources.RegionsXLSX,
		ReportsDir:   cfg.Output.ReportsDir,
		ChartsDir:    cfg.Output.ChartsDir,
		DatabaseFile: cfg.Database.Path,
		LogFile:      cfg.Logging.FilePath,
	}
}

// EnsureDirectories creates the output directories if they don't exist
func (p *Paths) EnsureDirectories(fs afero.Fs) error {
	directories := []string{
		p.ReportsDir,
		p.ChartsDir,
		filepath.Dir(p.DatabaseFile),
	}

	for _, dir := range directories {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetChartPath returns the path for a chart file
func (p *Paths) GetChartPath(filename string) string {
	return filepath.Join(p.ChartsDir, filename)
}

// LogPathResolution logs every resolved path at debug level.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Path resolution",
		slog.Group("sources",
			slog.String("sales_csv", p.SalesCSV),
			slog.String("products_json", p.ProductsJSON),
			slog.String("regions_xlsx", p.RegionsXLSX),
		),
		slog.Group("outputs",
			slog.String("reports_dir", p.ReportsDir),
			slog.String("charts_dir", p.ChartsDir),
			slog.String("database_file", p.DatabaseFile),
		),
		slog.String("base_dir", p.BaseDir),
	)
}

// FileExists checks if a file exists on fs
func FileExists(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && ok
}
