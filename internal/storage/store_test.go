package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespipe/internal/config"
	"salespipe/internal/dataset"
	apperrors "salespipe/internal/errors"
	"salespipe/internal/infrastructure"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.DatabaseConfig{Driver: DriverName, Path: filepath.Join(t.TempDir(), "sales.db")}
	store, err := Open(context.Background(), cfg, infrastructure.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func salesTable(t *testing.T, rows ...dataset.Row) *dataset.Table {
	t.Helper()

	tbl := dataset.New(SalesTable, []string{"Date", "Product", "Units Sold", "Revenue", "Promo"})
	for _, r := range rows {
		require.NoError(t, tbl.Append(r))
	}
	return tbl
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	in := salesTable(t,
		dataset.Row{time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "Widget", 2.0, 20.5, true},
		dataset.Row{time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), nil, 0.0, 0.0, false},
	)
	require.NoError(t, store.StoreTable(ctx, SalesTable, in))

	out, err := store.ReadTable(ctx, SalesTable)
	require.NoError(t, err)

	assert.Equal(t, in.Columns, out.Columns)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "2024-01-05T00:00:00Z", out.Get(0, "Date"))
	assert.Equal(t, "Widget", out.Get(0, "Product"))
	assert.Equal(t, 2.0, out.Get(0, "Units Sold"))
	assert.Equal(t, 20.5, out.Get(0, "Revenue"))
	assert.Equal(t, 1.0, out.Get(0, "Promo"))
	assert.Nil(t, out.Get(1, "Product"))
	assert.Equal(t, 0.0, out.Get(1, "Promo"))
}

func TestStore_ReplaceOnWrite(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := salesTable(t,
		dataset.Row{"2024-01-01", "A", 1.0, 1.0, nil},
		dataset.Row{"2024-01-02", "B", 1.0, 1.0, nil},
		dataset.Row{"2024-01-03", "C", 1.0, 1.0, nil},
	)
	require.NoError(t, store.StoreTable(ctx, SalesTable, first))

	second := dataset.New(SalesTable, []string{"Product", "Category"})
	require.NoError(t, second.Append(dataset.Row{"Z", "Toys"}))
	require.NoError(t, store.StoreTable(ctx, SalesTable, second))

	out, err := store.ReadTable(ctx, SalesTable)
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Category"}, out.Columns)
	assert.Equal(t, 1, out.Len())
}

func TestStore_StoreAll_SkipsAbsentTables(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	products := dataset.New(ProductsTable, []string{"Product", "Category"})
	require.NoError(t, products.Append(dataset.Row{"A", "Tools"}))

	results := store.StoreAll(ctx, []Entry{
		{Name: SalesTable, Data: salesTable(t, dataset.Row{"2024-01-01", "A", 1.0, 2.0, nil})},
		{Name: ProductsTable, Data: products},
		{Name: RegionsTable, Data: nil},
		{Name: MergedSalesTable, Data: nil},
	})

	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Rows)
	assert.NoError(t, results[1].Err)
	assert.True(t, results[2].Skipped)
	assert.True(t, results[3].Skipped)

	_, err := store.ReadTable(ctx, RegionsTable)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestStore_StoreAll_ContinuesAfterFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer mockDB.Close()

	store := New(sqlx.NewDb(mockDB, "sqlmock"), infrastructure.DiscardLogger())

	failing := dataset.New(SalesTable, []string{"Product"})
	require.NoError(t, failing.Append(dataset.Row{"A"}))
	ok := dataset.New(ProductsTable, []string{"Product"})
	require.NoError(t, ok.Append(dataset.Row{"A"}))

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "sales"`).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "products"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE "products" ("Product" TEXT)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(`INSERT INTO "products" VALUES (?)`).
		ExpectExec().WithArgs("A").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	results := store.StoreAll(context.Background(), []Entry{
		{Name: SalesTable, Data: failing},
		{Name: ProductsTable, Data: ok},
	})

	require.Len(t, results, 2)
	require.Error(t, results[0].Err)
	assert.True(t, apperrors.IsType(results[0].Err, apperrors.ErrTypePersistence))
	assert.Contains(t, results[0].Err.Error(), "database is locked")
	assert.NoError(t, results[1].Err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertFailureRollsBack(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer mockDB.Close()

	store := New(sqlx.NewDb(mockDB, "sqlmock"), nil)

	tbl := dataset.New(RegionsTable, []string{"Region", "Revenue"})
	require.NoError(t, tbl.Append(dataset.Row{"North", 1.5}))

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "regions"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE "regions" ("Region" TEXT, "Revenue" REAL)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(`INSERT INTO "regions" VALUES (?, ?)`).
		ExpectExec().WithArgs("North", 1.5).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = store.StoreTable(context.Background(), RegionsTable, tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert row 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_NoColumns(t *testing.T) {
	store := openTestStore(t)
	err := store.StoreTable(context.Background(), SalesTable, dataset.New(SalesTable, nil))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypePersistence))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres", Path: "x"}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestColumnTypes(t *testing.T) {
	tbl := dataset.New("t", []string{"num", "flag", "text", "mixed", "empty", "when"})
	require.NoError(t, tbl.Append(dataset.Row{1.0, true, "a", 1.0, nil, time.Now()}))
	require.NoError(t, tbl.Append(dataset.Row{nil, false, nil, "b", nil, nil}))

	assert.Equal(t, []string{"REAL", "INTEGER", "TEXT", "TEXT", "TEXT", "TEXT"}, columnTypes(tbl))
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sales", `"sales"`},
		{"Units Sold", `"Units Sold"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuoteIdentifier(tt.in))
	}
}
