package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. SALESPIPE_DATABASE_FILE.
const EnvPrefix = "SALESPIPE"

// Config represents the complete pipeline configuration
type Config struct {
	Sources   SourcesConfig   `yaml:"sources" envconfig:"SOURCES"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Cleaning  CleaningConfig  `yaml:"cleaning" envconfig:"CLEANING"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`

	// BaseDir anchors relative paths. It defaults to the directory of the
	// config file, or the working directory when no file is used.
	BaseDir string `yaml:"-" envconfig:"BASE_DIR"`
}

// SourcesConfig locates the three input files
type SourcesConfig struct {
	SalesCSV     string `yaml:"sales_csv" envconfig:"SALES_CSV" validate:"required"`
	ProductsJSON string `yaml:"products_json" envconfig:"PRODUCTS_JSON" validate:"required"`
	RegionsXLSX  string `yaml:"regions_xlsx" envconfig:"REGIONS_XLSX" validate:"required"`
	// RegionsSheet selects a worksheet; empty means the first sheet.
	RegionsSheet string `yaml:"regions_sheet" envconfig:"REGIONS_SHEET"`
}

// OutputConfig contains report and chart output settings
type OutputConfig struct {
	ReportsDir  string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	ChartsDir   string `yaml:"charts_dir" envconfig:"CHARTS_DIR" validate:"required"`
	TopProducts int    `yaml:"top_products" envconfig:"TOP_PRODUCTS" validate:"min=1,max=1000"`
	BOMPrefix   bool   `yaml:"bom_prefix" envconfig:"BOM_PREFIX"`
}

// DatabaseConfig contains persistence settings
type DatabaseConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER" validate:"required,oneof=sqlite"`
	Path   string `yaml:"path" envconfig:"FILE" validate:"required"`
}

// CleaningConfig tunes normalization
type CleaningConfig struct {
	DateLayouts     []string `yaml:"date_layouts" envconfig:"DATE_LAYOUTS" validate:"min=1,dive,required"`
	UnknownCategory string   `yaml:"unknown_category" envconfig:"UNKNOWN_CATEGORY" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	EnableTracing   bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter   string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// DefaultDateLayouts are tried in order when coercing the Date column.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// Default returns default configuration
func Default() *Config {
	layouts := make([]string, len(DefaultDateLayouts))
	copy(layouts, DefaultDateLayouts)

	return &Config{
		Sources: SourcesConfig{
			SalesCSV:     "data/sales_data.csv",
			ProductsJSON: "data/product_metadata.json",
			RegionsXLSX:  "data/region_info.xlsx",
		},
		Output: OutputConfig{
			ReportsDir:  "output/reports",
			ChartsDir:   "output/visualizations",
			TopProducts: 10,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "sales_database.db",
		},
		Cleaning: CleaningConfig{
			DateLayouts:     layouts,
			UnknownCategory: "Unknown",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/pipeline.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if
// path is non-empty), then SALESPIPE_* environment variables. Relative paths
// are resolved against BaseDir and everything is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		abs, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config directory: %w", err)
		}
		cfg.BaseDir = abs
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize normalizes paths and validates the configuration. Load calls it;
// callers that build a Config by hand must call it before use.
func (c *Config) Finalize() error {
	if c.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		c.BaseDir = wd
	}
	c.BaseDir = normalizePath(c.BaseDir)

	if err := c.validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	c.Sources.SalesCSV = c.resolve(c.Sources.SalesCSV)
	c.Sources.ProductsJSON = c.resolve(c.Sources.ProductsJSON)
	c.Sources.RegionsXLSX = c.resolve(c.Sources.RegionsXLSX)
	c.Output.ReportsDir = c.resolve(c.Output.ReportsDir)
	c.Output.ChartsDir = c.resolve(c.Output.ChartsDir)
	c.Database.Path = c.resolve(c.Database.Path)
	if c.Logging.FilePath != "" {
		c.Logging.FilePath = c.resolve(c.Logging.FilePath)
	}
	if c.Telemetry.MetricsTextfile != "" {
		c.Telemetry.MetricsTextfile = c.resolve(c.Telemetry.MetricsTextfile)
	}
	return nil
}

// loadFromFile overlays YAML file values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// WriteExample writes the default configuration as YAML to path.
func WriteExample(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// validate validates the configuration
func (c *Config) validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)

	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when logging.output is %q", c.Logging.Output)
	}

	if c.Output.ReportsDir == c.Output.ChartsDir {
		return fmt.Errorf("output.reports_dir and output.charts_dir must differ")
	}

	return nil
}

// resolve anchors a relative path at BaseDir
func (c *Config) resolve(p string) string {
	p = normalizePath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// normalizePath accepts either slash style and returns a cleaned OS path.
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if filepath.Separator != '\\' {
		p = strings.ReplaceAll(p, `\`, "/")
	}
	return filepath.Clean(filepath.FromSlash(p))
}
