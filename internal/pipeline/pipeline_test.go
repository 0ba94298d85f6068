package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salespipe/internal/charts"
	"salespipe/internal/config"
	"salespipe/internal/errors"
	"salespipe/internal/infrastructure"
	"salespipe/internal/shared/testutil"
	"salespipe/internal/storage"
)

const salesCSV = `Date,Product,Region,Units Sold,Revenue
2024-01-05,Widget,North,3,30
2024-01-20,Gadget,South,,15.5
2024-02-01,Widget,North,1,10
`

const productsJSON = `[
  {"Product": "Widget", "Category": "Tools"},
  {"Product": "Gadget", "Category": null}
]`

type fixture struct {
	cfg *config.Config
	fs  afero.Fs
	out *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tmp := t.TempDir()
	cfg := config.Default()
	cfg.BaseDir = "/work"
	cfg.Database.Path = filepath.Join(tmp, "sales_database.db")
	cfg.Telemetry.MetricsTextfile = filepath.Join(tmp, "metrics", "salespipe.prom")
	require.NoError(t, cfg.Finalize())

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, cfg.Sources.SalesCSV, []byte(salesCSV), 0644))
	require.NoError(t, afero.WriteFile(fs, cfg.Sources.ProductsJSON, []byte(productsJSON), 0644))
	writeRegions(t, fs, cfg.Sources.RegionsXLSX)

	return &fixture{cfg: cfg, fs: fs, out: &bytes.Buffer{}}
}

func writeRegions(t *testing.T, fs afero.Fs, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"Region", "Manager"},
		{"North", "Alice"},
		{"South", "Bob"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

func (f *fixture) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()

	base := []Option{
		WithFs(f.fs),
		WithLogger(infrastructure.DiscardLogger()),
		WithOutput(f.out, true),
	}
	p, err := New(f.cfg, append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func stepStatuses(run *RunState) map[string]StepStatus {
	out := make(map[string]StepStatus, len(run.Steps))
	for _, s := range run.Steps {
		status, _ := s.Snapshot()
		out[s.ID] = status
	}
	return out
}

func TestRun_FullPipeline(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStatusCompleted, res.Run.Status)
	for id, status := range stepStatuses(res.Run) {
		assert.Equal(t, StepStatusCompleted, status, "step %s", id)
	}

	require.NotNil(t, res.Merged)
	assert.Equal(t, res.Sales.Len(), res.Merged.Len())
	assert.Equal(t, "Unknown", res.Merged.Get(1, "Category"))
	assert.Equal(t, "Alice", res.Merged.Get(0, "Manager"))

	require.NotNil(t, res.Analysis)
	summary := res.Analysis.Summary
	assert.InDelta(t, 55.5, summary.TotalRevenue, 1e-9)
	assert.InDelta(t, 18.5, summary.AverageRevenue, 1e-9)
	assert.InDelta(t, 4, summary.TotalUnits, 1e-9)
	assert.Contains(t, f.out.String(), "Total Revenue: $55.50 | Average Revenue: $18.50 | Total Units Sold: 4")

	for _, report := range res.Reports {
		require.NoError(t, report.Err)
		ok, err := afero.Exists(f.fs, report.Path)
		require.NoError(t, err)
		assert.True(t, ok, report.Path)
	}
	monthly, err := afero.ReadFile(f.fs, filepath.Join(f.cfg.Output.ReportsDir, config.MonthlySalesReport))
	require.NoError(t, err)
	assert.Equal(t, "month,Revenue,Units Sold\n2024-01,45.50,3.00\n2024-02,10.00,1.00\n", string(monthly))

	assert.Len(t, res.Charts, len(charts.Names))
	assert.Empty(t, res.ChartFailures)

	for _, r := range res.Stored {
		assert.NoError(t, r.Err, r.Name)
	}
	store, err := storage.Open(context.Background(), f.cfg.Database, infrastructure.DiscardLogger())
	require.NoError(t, err)
	defer store.Close()
	merged, err := store.ReadTable(context.Background(), storage.MergedSalesTable)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Len())

	m := p.Metrics()
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StepsTotal.WithLabelValues(StepLoad, string(StepStatusCompleted))))
	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.RowsProcessed.WithLabelValues("sales")))
	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.RowsProcessed.WithLabelValues("merged_sales")))
	assert.Equal(t, 4.0, promtestutil.ToFloat64(m.ArtifactsTotal.WithLabelValues("table", "written")))
	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.ArtifactsTotal.WithLabelValues("report", "written")))
	assert.Equal(t, 4.0, promtestutil.ToFloat64(m.ArtifactsTotal.WithLabelValues("chart", "written")))

	_, err = os.Stat(f.cfg.Telemetry.MetricsTextfile)
	assert.NoError(t, err)
}

func TestRun_ProductsUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fs.Remove(f.cfg.Sources.ProductsJSON))

	logger, logs := testutil.NewLogCapture()
	res, err := f.pipeline(t, WithLogger(logger)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStatusCompleted, res.Run.Status)
	assert.Equal(t, map[string]StepStatus{
		StepLoad:      StepStatusDegraded,
		StepClean:     StepStatusCompleted,
		StepMerge:     StepStatusSkipped,
		StepStore:     StepStatusCompleted,
		StepAnalyze:   StepStatusSkipped,
		StepVisualize: StepStatusSkipped,
	}, stepStatuses(res.Run))

	assert.Nil(t, res.Merged)
	assert.Nil(t, res.Analysis)
	assert.Empty(t, res.Charts)
	assert.Contains(t, f.out.String(), NoMergedDataNotice)
	assert.Contains(t, f.out.String(), NoChartDataNotice)

	skip := testutil.AssertLogged(t, logs, slog.LevelWarn, "Skipping merge")
	assert.Contains(t, skip.Attrs["reason"], "product data is not available")
	testutil.AssertLogged(t, logs, slog.LevelWarn, NoMergedDataNotice)
	testutil.AssertLogged(t, logs, slog.LevelError, "Failed to load source")

	stored := map[string]bool{}
	for _, r := range res.Stored {
		stored[r.Name] = !r.Skipped && r.Err == nil
	}
	assert.Equal(t, map[string]bool{
		storage.SalesTable:       true,
		storage.ProductsTable:    false,
		storage.RegionsTable:     true,
		storage.MergedSalesTable: false,
	}, stored)

	ok, err := afero.Exists(f.fs, filepath.Join(f.cfg.Output.ReportsDir, config.MonthlySalesReport))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_RegionsUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fs.Remove(f.cfg.Sources.RegionsXLSX))

	res, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	statuses := stepStatuses(res.Run)
	assert.Equal(t, StepStatusDegraded, statuses[StepLoad])
	assert.Equal(t, StepStatusCompleted, statuses[StepMerge])
	assert.Equal(t, StepStatusCompleted, statuses[StepAnalyze])

	require.NotNil(t, res.Merged)
	assert.False(t, res.Merged.HasColumn("Manager"))
	assert.Empty(t, res.Analysis.Regions)
	assert.InDelta(t, 55.5, res.Analysis.Summary.TotalRevenue, 1e-9)
}

func TestRun_InvalidDateFailsRun(t *testing.T) {
	f := newFixture(t)
	bad := "Date,Product,Region,Units Sold,Revenue\nnot-a-date,Widget,North,1,10\n"
	require.NoError(t, afero.WriteFile(f.fs, f.cfg.Sources.SalesCSV, []byte(bad), 0644))

	res, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDateParse))

	assert.Equal(t, RunStatusFailed, res.Run.Status)
	assert.Equal(t, map[string]StepStatus{
		StepLoad:      StepStatusCompleted,
		StepClean:     StepStatusFailed,
		StepMerge:     StepStatusSkipped,
		StepStore:     StepStatusSkipped,
		StepAnalyze:   StepStatusSkipped,
		StepVisualize: StepStatusSkipped,
	}, stepStatuses(res.Run))
	assert.Nil(t, res.Stored)
}

func TestRun_StoreFailureIsRecovered(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, WithStoreOpener(func(context.Context) (*storage.Store, error) {
		return nil, errors.NewStorageError("disk full", nil)
	}))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	statuses := stepStatuses(res.Run)
	assert.Equal(t, StepStatusDegraded, statuses[StepStore])
	assert.Equal(t, StepStatusCompleted, statuses[StepAnalyze])
	assert.Equal(t, StepStatusCompleted, statuses[StepVisualize])
	assert.Equal(t, 4.0, promtestutil.ToFloat64(p.Metrics().ArtifactsTotal.WithLabelValues("table", "failed")))
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.pipeline(t).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunStatusFailed, res.Run.Status)
	assert.Len(t, res.Run.StepsWithStatus(StepStatusSkipped), len(res.Run.Steps))
}

func TestRun_UsesContextRunID(t *testing.T) {
	f := newFixture(t)
	ctx := infrastructure.WithRunID(context.Background(), "run-123")

	res, err := f.pipeline(t).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-123", res.Run.ID)
	assert.Contains(t, f.out.String(), "run-123")
}

func TestRun_ReadOnlyOutput(t *testing.T) {
	f := newFixture(t)
	f.fs = afero.NewReadOnlyFs(f.fs)

	res, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	assert.Equal(t, RunStatusFailed, res.Run.Status)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}
