package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salespipe/internal/dataset"
	"salespipe/internal/errors"
)

// Excel stores dates as day counts; anything outside this range is not a date.
const maxExcelSerial = 2958465

// CleanerConfig holds configuration options for the Cleaner.
type CleanerConfig struct {
	DateLayouts     []string // Tried in order when parsing the Date column
	UnknownCategory string   // Substituted for missing product categories
}

// Cleaner normalizes each raw table independently. Every method returns a new
// table; inputs are never modified.
type Cleaner struct {
	logger          *slog.Logger
	dateLayouts     []string
	unknownCategory string
}

// NewCleaner creates a cleaner with the given configuration.
func NewCleaner(logger *slog.Logger, config CleanerConfig) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.DateLayouts) == 0 {
		config.DateLayouts = []string{"2006-01-02"}
	}
	if config.UnknownCategory == "" {
		config.UnknownCategory = "Unknown"
	}

	return &Cleaner{
		logger:          logger.With(slog.String("component", "cleaner")),
		dateLayouts:     config.DateLayouts,
		unknownCategory: config.UnknownCategory,
	}
}

// CleanSales parses Date into time.Time and replaces missing Units Sold and
// Revenue with 0. A blank Date stays nil; a present Date that cannot be parsed
// is a DATE_PARSE error that should fail the run. A nil table yields nil.
func (c *Cleaner) CleanSales(ctx context.Context, sales *dataset.Table) (*dataset.Table, error) {
	if sales == nil {
		return nil, nil
	}

	if !sales.HasColumn(dataset.ColDate) {
		return nil, errors.NewDateParseError(0, "", fmt.Errorf("sales data has no %s column", dataset.ColDate))
	}

	missing := 0
	out, err := sales.Map(dataset.ColDate, func(i int, v dataset.Value) (dataset.Value, error) {
		if isBlank(v) {
			missing++
			return nil, nil
		}
		t, err := ParseDate(v, c.dateLayouts)
		if err != nil {
			return nil, errors.NewDateParseError(i+1, dataset.AsString(v), err)
		}
		return t, nil
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Date conversion failed", slog.String("error", err.Error()))
		return nil, err
	}
	if missing > 0 {
		c.logger.WarnContext(ctx, "Sales rows have no Date",
			slog.Int("count", missing))
	}

	for _, col := range []string{dataset.ColUnitsSold, dataset.ColRevenue} {
		if sales.Resolve(col) < 0 {
			return nil, errors.NewParsingError(fmt.Sprintf("sales data has no %s column", col), nil)
		}

		filled := 0
		out, err = out.Map(col, func(i int, v dataset.Value) (dataset.Value, error) {
			f, ok, err := dataset.AsFloat(v)
			if err != nil {
				return nil, errors.NewParsingError(fmt.Sprintf("invalid %s value %q in row %d", col, dataset.AsString(v), i+1), err).
					WithContext("row", i+1)
			}
			if !ok {
				filled++
				return 0.0, nil
			}
			return f, nil
		})
		if err != nil {
			return nil, err
		}
		if filled > 0 {
			c.logger.DebugContext(ctx, "Filled missing values",
				slog.String("column", col),
				slog.Int("count", filled))
		}
	}

	c.logger.InfoContext(ctx, "Processed sales data", slog.Int("rows", out.Len()))
	return out, nil
}

// CleanProducts trims Product names and fills missing or blank Category
// values with the configured placeholder.
func (c *Cleaner) CleanProducts(ctx context.Context, products *dataset.Table) (*dataset.Table, error) {
	if products == nil {
		return nil, nil
	}

	out := products
	var err error
	if products.HasColumn(dataset.ColProduct) {
		if out, err = out.Map(dataset.ColProduct, trimCell); err != nil {
			return nil, err
		}
	}

	if products.HasColumn(dataset.ColCategory) {
		out, err = out.Map(dataset.ColCategory, func(_ int, v dataset.Value) (dataset.Value, error) {
			if dataset.IsNull(v) {
				return c.unknownCategory, nil
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				return c.unknownCategory, nil
			}
			return v, nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		c.logger.WarnContext(ctx, "Product data has no Category column")
	}

	if out == products {
		out = products.Clone()
	}

	c.logger.InfoContext(ctx, "Processed product data", slog.Int("rows", out.Len()))
	return out, nil
}

// CleanRegions trims Region and Manager.
func (c *Cleaner) CleanRegions(ctx context.Context, regions *dataset.Table) (*dataset.Table, error) {
	if regions == nil {
		return nil, nil
	}

	out := regions.Clone()
	for _, col := range []string{dataset.ColRegion, dataset.ColManager} {
		if !out.HasColumn(col) {
			c.logger.WarnContext(ctx, "Region data is missing a column", slog.String("column", col))
			continue
		}
		var err error
		if out, err = out.Map(col, trimCell); err != nil {
			return nil, err
		}
	}

	c.logger.InfoContext(ctx, "Processed region data", slog.Int("rows", out.Len()))
	return out, nil
}

func isBlank(v dataset.Value) bool {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return dataset.IsNull(v)
}

func trimCell(_ int, v dataset.Value) (dataset.Value, error) {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return v, nil
}

// ParseDate converts a cell into a time. Strings are tried against layouts in
// order, then as Excel serial day numbers; float cells are treated as serials.
func ParseDate(v dataset.Value, layouts []string) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case float64:
		return excelSerial(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, fmt.Errorf("missing date")
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return excelSerial(f)
		}
		return time.Time{}, fmt.Errorf("no layout matches %q", s)
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %T", v)
	}
}

func excelSerial(f float64) (time.Time, error) {
	if f != f || f <= 0 || f > maxExcelSerial {
		return time.Time{}, fmt.Errorf("%v is not an Excel date serial", f)
	}
	return excelize.ExcelDateToTime(f, false)
}
