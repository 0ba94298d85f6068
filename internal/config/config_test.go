package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Output.TopProducts)
	assert.Equal(t, "Unknown", cfg.Cleaning.UnknownCategory)
	assert.Equal(t, DefaultDateLayouts, cfg.Cleaning.DateLayouts)

	// Default must not share the package-level layouts slice.
	cfg.Cleaning.DateLayouts[0] = "changed"
	assert.Equal(t, "2006-01-02", DefaultDateLayouts[0])
}

func TestLoad_DefaultsOnly(t *testing.T) {
	base := t.TempDir()
	t.Setenv("SALESPIPE_BASE_DIR", base)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, base, cfg.BaseDir)
	assert.Equal(t, filepath.Join(base, "data", "sales_data.csv"), cfg.Sources.SalesCSV)
	assert.Equal(t, filepath.Join(base, "sales_database.db"), cfg.Database.Path)
	assert.True(t, filepath.IsAbs(cfg.Output.ReportsDir))
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	content := `
sources:
  sales_csv: inputs/sales.csv
  regions_sheet: Regions
output:
  top_products: 5
database:
  path: db/sales.db
logging:
  level: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("SALESPIPE_OUTPUT_TOP_PRODUCTS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "inputs", "sales.csv"), cfg.Sources.SalesCSV)
	assert.Equal(t, filepath.Join(dir, "data", "product_metadata.json"), cfg.Sources.ProductsJSON, "unset keys keep defaults")
	assert.Equal(t, "Regions", cfg.Sources.RegionsSheet)
	assert.Equal(t, filepath.Join(dir, "db", "sales.db"), cfg.Database.Path)
	assert.Equal(t, 3, cfg.Output.TopProducts, "env wins over file")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: [not, a, map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing sales source",
			mutate:  func(c *Config) { c.Sources.SalesCSV = "" },
			wantErr: "SalesCSV",
		},
		{
			name:    "unsupported driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: "Driver",
		},
		{
			name:    "top products below one",
			mutate:  func(c *Config) { c.Output.TopProducts = 0 },
			wantErr: "TopProducts",
		},
		{
			name:    "no date layouts",
			mutate:  func(c *Config) { c.Cleaning.DateLayouts = nil },
			wantErr: "DateLayouts",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "Level",
		},
		{
			name: "file logging without path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.FilePath = ""
			},
			wantErr: "file_path",
		},
		{
			name:    "reports and charts share a directory",
			mutate:  func(c *Config) { c.Output.ChartsDir = c.Output.ReportsDir },
			wantErr: "must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.BaseDir = t.TempDir()
			tt.mutate(cfg)

			err := cfg.Finalize()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizePath(t *testing.T) {
	if filepath.Separator == '\\' {
		t.Skip("backslash is the native separator")
	}
	assert.Equal(t, filepath.Join("output", "reports"), normalizePath(`output\reports`))
	assert.Equal(t, filepath.Join("data", "sales.csv"), normalizePath(" data//sales.csv "))
}

func TestWriteExample_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "salespipe.yaml")

	require.NoError(t, WriteExample(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "conf", "data", "region_info.xlsx"), cfg.Sources.RegionsXLSX)
	assert.Equal(t, 10, cfg.Output.TopProducts)
}
