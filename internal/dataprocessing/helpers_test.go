package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"salespipe/internal/dataset"
	"salespipe/internal/infrastructure"
)

func table(t *testing.T, name string, columns []string, rows ...dataset.Row) *dataset.Table {
	t.Helper()

	tbl := dataset.New(name, columns)
	for _, r := range rows {
		require.NoError(t, tbl.Append(r))
	}
	return tbl
}

func salesColumns() []string {
	return []string{dataset.ColDate, dataset.ColProduct, dataset.ColRegion, dataset.ColUnitsSold, dataset.ColRevenue}
}

func testCleaner() *Cleaner {
	return NewCleaner(infrastructure.DiscardLogger(), CleanerConfig{
		DateLayouts:     []string{"2006-01-02", "01/02/2006"},
		UnknownCategory: "Unknown",
	})
}
