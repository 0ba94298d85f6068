package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"salespipe/internal/dataset"
)

const utf8BOM = "\ufeff"

// LoadCSV reads a comma-separated file whose first row is the header.
// Empty cells become nil; everything else stays a string.
func (l *Loader) LoadCSV(name, path string) (*dataset.Table, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(name, f)
}

// ReadCSV parses CSV content from r.
func ReadCSV(name string, r io.Reader) (*dataset.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	table := dataset.New(name, header)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(dataset.Row, len(record))
		for i, cell := range record {
			if cell != "" {
				row[i] = cell
			}
		}
		if err := table.Append(row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return table, nil
}
