package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"salespipe/internal/config"
	"salespipe/internal/dataset"
	"salespipe/internal/errors"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Table names written by the pipeline.
const (
	SalesTable       = "sales"
	ProductsTable    = "products"
	RegionsTable     = "regions"
	MergedSalesTable = "merged_sales"
)

// Column affinities used when creating tables.
const (
	typeReal    = "REAL"
	typeInteger = "INTEGER"
	typeText    = "TEXT"
)

// Entry pairs a table name with its data. A nil Data is skipped.
type Entry struct {
	Name string
	Data *dataset.Table
}

// Result reports the outcome of storing one table.
type Result struct {
	Name    string
	Rows    int
	Skipped bool
	Err     error
}

// Store writes datasets into a SQL database.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if cfg.Driver != DriverName {
		return nil, errors.NewConfigError(fmt.Sprintf("unsupported database driver %q", cfg.Driver), nil)
	}

	db, err := sqlx.Open(DriverName, cfg.Path)
	if err != nil {
		return nil, errors.NewStorageError("failed to open database", err).WithContext("path", cfg.Path)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewStorageError("failed to connect to database", err).WithContext("path", cfg.Path)
	}

	return New(db, logger), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With(slog.String("component", "storage"))}
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreAll writes each entry in order. Failures are logged and reported in
// the results; later entries are still attempted.
func (s *Store) StoreAll(ctx context.Context, entries []Entry) []Result {
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		if e.Data == nil {
			s.logger.DebugContext(ctx, "Skipping absent table", slog.String("table", e.Name))
			results = append(results, Result{Name: e.Name, Skipped: true})
			continue
		}

		err := s.StoreTable(ctx, e.Name, e.Data)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error storing data in database",
				slog.String("table", e.Name),
				slog.String("error", err.Error()))
		} else {
			s.logger.InfoContext(ctx, "Stored table",
				slog.String("table", e.Name),
				slog.Int("rows", e.Data.Len()))
		}
		results = append(results, Result{Name: e.Name, Rows: e.Data.Len(), Err: err})
	}
	return results
}

// StoreTable replaces the named table with the contents of t.
func (s *Store) StoreTable(ctx context.Context, name string, t *dataset.Table) error {
	if err := s.replace(ctx, name, t); err != nil {
		return errors.NewPersistenceError(name, err)
	}
	return nil
}

func (s *Store) replace(ctx context.Context, name string, t *dataset.Table) (err error) {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table has no columns")
	}

	types := columnTypes(t)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, dropTableSQL(name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err = tx.ExecContext(ctx, createTableSQL(name, t.Columns, types)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, insertSQL(name, len(t.Columns)))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		args := make([]any, len(t.Columns))
		for c := range t.Columns {
			var v dataset.Value
			if c < len(row) {
				v = row[c]
			}
			args[c] = toSQL(v, types[c])
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadTable loads a stored table back into a dataset.
func (s *Store) ReadTable(ctx context.Context, name string) (*dataset.Table, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM "+QuoteIdentifier(name))
	if err != nil {
		return nil, errors.NewStorageError("failed to read table", err).WithContext("table", name)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.NewStorageError("failed to read columns", err).WithContext("table", name)
	}

	out := dataset.New(name, cols)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, errors.NewStorageError("failed to scan row", err).WithContext("table", name)
		}
		row := make(dataset.Row, len(values))
		for i, v := range values {
			row[i] = fromSQL(v)
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to iterate rows", err).WithContext("table", name)
	}
	return out, nil
}

// QuoteIdentifier quotes a SQLite identifier, doubling embedded quotes.
// For example, `Units Sold` becomes `"Units Sold"`.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func dropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + QuoteIdentifier(name)
}

func createTableSQL(name string, columns, types []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = QuoteIdentifier(c) + " " + types[i]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdentifier(name), strings.Join(defs, ", "))
}

func insertSQL(name string, n int) string {
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdentifier(name), strings.TrimSuffix(strings.Repeat("?, ", n), ", "))
}

// columnTypes infers one affinity per column: REAL when every present value
// is a number, INTEGER when every present value is a bool, TEXT otherwise.
func columnTypes(t *dataset.Table) []string {
	types := make([]string, len(t.Columns))
	for c := range t.Columns {
		numeric, boolean, seen := true, true, false
		for _, row := range t.Rows {
			if c >= len(row) || dataset.IsNull(row[c]) {
				continue
			}
			seen = true
			switch row[c].(type) {
			case float64:
				boolean = false
			case bool:
				numeric = false
			default:
				numeric, boolean = false, false
			}
		}
		switch {
		case seen && numeric:
			types[c] = typeReal
		case seen && boolean:
			types[c] = typeInteger
		default:
			types[c] = typeText
		}
	}
	return types
}

func toSQL(v dataset.Value, colType string) any {
	if dataset.IsNull(v) {
		return nil
	}
	switch colType {
	case typeReal:
		return v.(float64)
	case typeInteger:
		if v.(bool) {
			return int64(1)
		}
		return int64(0)
	}
	if ts, ok := v.(time.Time); ok {
		return ts.Format(time.RFC3339)
	}
	return dataset.AsString(v)
}

func fromSQL(v any) dataset.Value {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int64:
		return float64(x)
	default:
		return x
	}
}
