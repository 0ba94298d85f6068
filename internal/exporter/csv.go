package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"salespipe/internal/config"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	fs    afero.Fs
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance. A nil fs means the OS filesystem.
func NewCSVWriter(fs afero.Fs, paths *config.Paths) *CSVWriter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &CSVWriter{fs: fs, paths: paths}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options and returns the
// path that was written.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	slog.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := w.fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fullPath, fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := w.fs.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return fullPath, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Write BOM if requested (helps Excel recognize UTF-8)
	if options.BOMPrefix && !options.Append {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fullPath, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fullPath, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fullPath, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fullPath, err
	}
	return fullPath, file.Close()
}

// WriteSimpleCSV writes a CSV file with headers and records, replacing any existing file
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string, bom bool) (string, error) {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: bom,
	})
}

// resolvePath anchors relative paths in the reports directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetReportPath(filePath)
}
