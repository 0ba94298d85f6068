package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"salespipe/internal/dataset"
	"salespipe/internal/errors"
)

// Suffixes applied to non-key columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// analysisColumns are read by the aggregator; a lookup table must not rename them.
var analysisColumns = []string{
	dataset.ColDate,
	dataset.ColProduct,
	dataset.ColRegion,
	dataset.ColUnitsSold,
	dataset.ColRevenue,
	dataset.ColCategory,
	dataset.ColManager,
}

// Merger joins the cleaned tables into the merged sales dataset.
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merger.
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger.With(slog.String("component", "merger"))}
}

// Merge left-joins sales to products on Product and, when regions are
// present, the result to regions on Region. Without sales or products it
// returns a MERGE_UNAVAILABLE error and a nil table. When the region join
// cannot be made the sales and product result is kept. The merged table always
// has exactly one row per sales row.
//
// Columns of a lookup table that would shadow a column already in the merged
// data (Date, Units Sold, Revenue and the join keys) are dropped with a warning.
func (m *Merger) Merge(ctx context.Context, sales, products, regions *dataset.Table) (*dataset.Table, error) {
	if sales == nil {
		return nil, errors.NewMergeUnavailableError("sales")
	}
	if products == nil {
		return nil, errors.NewMergeUnavailableError("product")
	}

	merged, err := LeftJoin(sales, m.withoutShadowing(ctx, sales, products, dataset.ColProduct), dataset.ColProduct)
	if err != nil {
		return nil, err
	}

	switch {
	case regions == nil:
		m.logger.WarnContext(ctx, "Region data unavailable, merged dataset has no region metadata")
	case !merged.HasColumn(dataset.ColRegion):
		m.logger.WarnContext(ctx, "Skipping region join, merged data has no Region column")
	default:
		joined, err := LeftJoin(merged, m.withoutShadowing(ctx, merged, regions, dataset.ColRegion), dataset.ColRegion)
		if err != nil {
			m.logger.WarnContext(ctx, "Skipping region join", slog.String("error", err.Error()))
			break
		}
		merged = joined
	}

	merged.Name = "merged_sales"
	m.logger.InfoContext(ctx, "Created merged dataset",
		slog.Int("rows", merged.Len()),
		slog.Int("columns", len(merged.Columns)))
	return merged, nil
}

// withoutShadowing returns right minus the non-key columns that resolve to a
// column of analysisColumns already present on left.
func (m *Merger) withoutShadowing(ctx context.Context, left, right *dataset.Table, key string) *dataset.Table {
	var dropped []int
	for _, col := range analysisColumns {
		if col == key || left.Resolve(col) < 0 {
			continue
		}
		if i := right.Resolve(col); i >= 0 {
			dropped = append(dropped, i)
		}
	}
	if len(dropped) == 0 {
		return right
	}

	keep := make([]int, 0, len(right.Columns))
	for i := range right.Columns {
		if !lo.Contains(dropped, i) {
			keep = append(keep, i)
		}
	}

	out := dataset.New(right.Name, lo.Map(keep, func(i int, _ int) string { return right.Columns[i] }))
	out.Rows = make([]dataset.Row, len(right.Rows))
	for r, row := range right.Rows {
		nr := make(dataset.Row, len(keep))
		for j, i := range keep {
			if i < len(row) {
				nr[j] = row[i]
			}
		}
		out.Rows[r] = nr
	}

	m.logger.WarnContext(ctx, "Ignoring lookup columns that clash with sales data",
		slog.String("table", right.Name),
		slog.String("columns", fmt.Sprint(lo.Map(dropped, func(i int, _ int) string { return right.Columns[i] }))))
	return out
}

// LeftJoin keeps every row of left and appends the columns of right, matched
// on exact equality of key. When right has several rows with the same key the
// first one wins. Unmatched rows get nil for every right-side column.
func LeftJoin(left, right *dataset.Table, key string) (*dataset.Table, error) {
	lk := left.ColumnIndex(key)
	if lk < 0 {
		return nil, errors.NewAppError(errors.ErrTypeMergeUnavailable,
			fmt.Sprintf("join key %q missing from %s data", key, left.Name), nil)
	}
	rk := right.ColumnIndex(key)
	if rk < 0 {
		return nil, errors.NewAppError(errors.ErrTypeMergeUnavailable,
			fmt.Sprintf("join key %q missing from %s data", key, right.Name), nil)
	}

	leftCols := make([]string, len(left.Columns))
	copy(leftCols, left.Columns)

	leftNames := make(map[string]int, len(left.Columns))
	for i, c := range left.Columns {
		leftNames[c] = i
	}

	var rightIdx []int
	var rightCols []string
	for i, c := range right.Columns {
		if i == rk {
			continue
		}
		name := c
		if j, clash := leftNames[c]; clash && j != lk {
			leftCols[j] = c + LeftSuffix
			name = c + RightSuffix
		}
		rightIdx = append(rightIdx, i)
		rightCols = append(rightCols, name)
	}

	lookup := make(map[string]dataset.Row, right.Len())
	for _, r := range right.Rows {
		if dataset.IsNull(r[rk]) {
			continue
		}
		k := dataset.AsString(r[rk])
		if _, seen := lookup[k]; !seen {
			lookup[k] = r
		}
	}

	out := dataset.New(left.Name, append(leftCols, rightCols...))
	out.Rows = make([]dataset.Row, 0, left.Len())
	for _, l := range left.Rows {
		row := make(dataset.Row, len(out.Columns))
		copy(row, l)
		if !dataset.IsNull(l[lk]) {
			if r, ok := lookup[dataset.AsString(l[lk])]; ok {
				for j, ri := range rightIdx {
					row[len(left.Columns)+j] = r[ri]
				}
			}
		}
		out.Rows = append(out.Rows, row)
	}

	return out, nil
}
