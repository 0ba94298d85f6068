package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Canonical column names shared by the loaders, cleaner, merger and aggregator.
const (
	ColDate      = "Date"
	ColProduct   = "Product"
	ColRegion    = "Region"
	ColUnitsSold = "Units Sold"
	ColRevenue   = "Revenue"
	ColCategory  = "Category"
	ColManager   = "Manager"
)

// columnAliases lists accepted alternate spellings for canonical columns.
var columnAliases = map[string][]string{
	ColUnitsSold: {"UnitsSold"},
}

// Value is a single nullable cell. nil means missing.
// Non-nil values are string, float64, bool or time.Time.
type Value = any

// Row is a slice of cells aligned with Table.Columns.
type Row []Value

// Table is an in-memory tabular snapshot. Functions in this module treat a
// Table as immutable and return new tables instead of editing rows in place.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given columns.
func New(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// Len returns the number of rows. A nil table has zero rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds a row, padding short rows with nil.
func (t *Table) Append(row Row) error {
	if len(row) > len(t.Columns) {
		return fmt.Errorf("row has %d cells, table %q has %d columns", len(row), t.Name, len(t.Columns))
	}
	if len(row) < len(t.Columns) {
		padded := make(Row, len(t.Columns))
		copy(padded, row)
		row = padded
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// ColumnIndex returns the position of the first column called name, or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Resolve returns the index of a canonical column, falling back to its aliases.
func (t *Table) Resolve(name string) int {
	if i := t.ColumnIndex(name); i >= 0 {
		return i
	}
	for _, alias := range columnAliases[name] {
		if i := t.ColumnIndex(alias); i >= 0 {
			return i
		}
	}
	return -1
}

// Get returns the cell at row i of the named column, or nil when the column is absent.
func (t *Table) Get(i int, column string) Value {
	idx := t.Resolve(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return nil
	}
	return t.Rows[i][idx]
}

// Clone returns a deep copy of the table's structure. Cell values are scalars
// and are shared.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := New(t.Name, t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(r))
		copy(nr, r)
		out.Rows[i] = nr
	}
	return out
}

// Map returns a copy of the table in which the named column has been replaced
// by fn applied to every cell. fn receives the zero-based row index.
func (t *Table) Map(column string, fn func(i int, v Value) (Value, error)) (*Table, error) {
	idx := t.Resolve(column)
	if idx < 0 {
		return nil, fmt.Errorf("table %q has no column %q", t.Name, column)
	}
	out := t.Clone()
	for i, r := range out.Rows {
		v, err := fn(i, r[idx])
		if err != nil {
			return nil, err
		}
		r[idx] = v
	}
	return out, nil
}

// IsNull reports whether v is missing. Float NaN counts as missing.
func IsNull(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return x != x
	}
	return false
}

// AsString renders a cell as text. Missing cells render as "".
func AsString(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// AsFloat coerces a cell to float64. Missing cells return ok=false.
func AsFloat(v Value) (f float64, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		if x != x {
			return 0, false, nil
		}
		return x, true, nil
	case bool:
		if x {
			return 1, true, nil
		}
		return 0, true, nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", ""))
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("not a number: %q", x)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported numeric value %T", v)
	}
}
