package dataprocessing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"salespipe/internal/dataset"
	"salespipe/pkg/contracts/domain"
)

// monthKey is the layout of the monthly grouping key.
const monthKey = "2006-01"

// group accumulates the sums for one key tuple.
type group struct {
	key     []string
	units   float64
	revenue float64
}

// keyFunc extracts a group key from row i. ok=false drops the row.
type keyFunc func(t *dataset.Table, i int) (key []string, ok bool, err error)

// columnsKey groups by the string form of the given columns. Rows where any
// key is missing are dropped.
func columnsKey(cols ...string) keyFunc {
	return func(t *dataset.Table, i int) ([]string, bool, error) {
		key := make([]string, len(cols))
		for j, c := range cols {
			v := t.Get(i, c)
			if dataset.IsNull(v) {
				return nil, false, nil
			}
			key[j] = dataset.AsString(v)
		}
		return key, true, nil
	}
}

// monthOf groups by the calendar month of Date.
func monthOf(t *dataset.Table, i int) ([]string, bool, error) {
	v := t.Get(i, dataset.ColDate)
	if dataset.IsNull(v) {
		return nil, false, nil
	}
	d, ok := v.(time.Time)
	if !ok {
		return nil, false, fmt.Errorf("row %d: Date is %T, not a parsed date", i+1, v)
	}
	return []string{d.Format(monthKey)}, true, nil
}

// groupBy partitions the table and sums Units Sold and Revenue per partition.
// Groups come back in ascending key order.
func groupBy(t *dataset.Table, key keyFunc) ([]*group, error) {
	if err := requireValues(t); err != nil {
		return nil, err
	}

	byKey := make(map[string]*group)
	for i := 0; i < t.Len(); i++ {
		k, ok, err := key(t, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		units, err := numberAt(t, i, dataset.ColUnitsSold)
		if err != nil {
			return nil, err
		}
		revenue, err := numberAt(t, i, dataset.ColRevenue)
		if err != nil {
			return nil, err
		}

		id := fmt.Sprintf("%q", k)
		g, exists := byKey[id]
		if !exists {
			g = &group{key: k}
			byKey[id] = g
		}
		g.units += units
		g.revenue += revenue
	}

	groups := lo.Values(byKey)
	sort.Slice(groups, func(a, b int) bool {
		return lessKey(groups[a].key, groups[b].key)
	})
	return groups, nil
}

func lessKey(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// requireValues fails when Units Sold or Revenue cannot be resolved on t.
// Reading them as missing would report every total as zero.
func requireValues(t *dataset.Table) error {
	missing := lo.Filter([]string{dataset.ColUnitsSold, dataset.ColRevenue}, func(c string, _ int) bool {
		return t.Resolve(c) < 0
	})
	if len(missing) > 0 {
		return fmt.Errorf("%s has no %s column", t.Name, strings.Join(missing, " or "))
	}
	return nil
}

// numberAt reads a numeric cell; missing counts as zero.
func numberAt(t *dataset.Table, i int, col string) (float64, error) {
	v := t.Get(i, col)
	f, _, err := dataset.AsFloat(v)
	if err != nil {
		return 0, fmt.Errorf("row %d %s: %w", i+1, col, err)
	}
	return f, nil
}

// sortByRevenueDesc orders groups by revenue, highest first, keeping the
// existing order for ties.
func sortByRevenueDesc(groups []*group) {
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].revenue > groups[b].revenue
	})
}

// hasColumns reports whether every column can be resolved on t.
func hasColumns(t *dataset.Table, cols ...string) bool {
	return lo.EveryBy(cols, func(c string) bool { return t.Resolve(c) >= 0 })
}

// chartGroupings derives the single-column series drawn by the charts.
func chartGroupings(t *dataset.Table, topN int) (*domain.ChartData, error) {
	data := &domain.ChartData{}

	if hasColumns(t, dataset.ColDate) {
		monthly, err := groupBy(t, monthOf)
		if err != nil {
			return nil, err
		}
		data.MonthlyRevenue = labeled(monthly, revenueOf)
	}

	if hasColumns(t, dataset.ColProduct) {
		products, err := groupBy(t, columnsKey(dataset.ColProduct))
		if err != nil {
			return nil, err
		}
		sort.SliceStable(products, func(a, b int) bool {
			return products[a].units > products[b].units
		})
		if topN > 0 && len(products) > topN {
			products = products[:topN]
		}
		data.TopProducts = labeled(products, unitsOf)
	}

	if hasColumns(t, dataset.ColCategory) {
		categories, err := groupBy(t, columnsKey(dataset.ColCategory))
		if err != nil {
			return nil, err
		}
		sort.SliceStable(categories, func(a, b int) bool {
			return categories[a].revenue < categories[b].revenue
		})
		data.CategoryRevenue = labeled(categories, revenueOf)
	}

	if hasColumns(t, dataset.ColRegion) {
		regions, err := groupBy(t, columnsKey(dataset.ColRegion))
		if err != nil {
			return nil, err
		}
		data.RegionRevenue = labeled(regions, revenueOf)
	}

	return data, nil
}

func revenueOf(g *group) float64 { return g.revenue }
func unitsOf(g *group) float64   { return g.units }

func labeled(groups []*group, value func(*group) float64) []domain.LabeledValue {
	return lo.Map(groups, func(g *group, _ int) domain.LabeledValue {
		return domain.LabeledValue{Label: g.key[0], Value: value(g)}
	})
}
