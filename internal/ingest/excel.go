package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"salespipe/internal/dataset"
)

// LoadExcel reads one worksheet of an xlsx workbook. An empty sheet name
// selects the first sheet.
func (l *Loader) LoadExcel(name, path, sheet string) (*dataset.Table, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadExcel(name, f, sheet)
}

// ReadExcel parses a workbook from r. The first non-empty row of the sheet is
// the header and blank rows above it are skipped. Below the header every row
// is kept; empty cells become nil and other cells keep their text untrimmed.
func ReadExcel(name string, r io.Reader, sheet string) (*dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	var table *dataset.Table
	for i, cells := range rows {
		if table == nil {
			if !isBlankRow(cells) {
				table = dataset.New(name, cells)
			}
			continue
		}

		row := make(dataset.Row, len(cells))
		for c, cell := range cells {
			if cell != "" {
				row[c] = cell
			}
		}
		if err := table.Append(row); err != nil {
			return nil, fmt.Errorf("sheet %q row %d: %w", sheet, i+1, err)
		}
	}

	if table == nil {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}
	return table, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
