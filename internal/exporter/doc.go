// Package exporter writes the pipeline's CSV reports.
//
// This package contains two components:
//
// CSVWriter: Core CSV writing with support for headers, appending and a UTF-8
// BOM for Excel compatibility. All file access goes through an afero.Fs.
//
// ReportWriter: Writes the monthly, product performance and regional
// performance views as monthly_sales.csv, product_performance.csv and
// regional_performance.csv in the reports directory. Numbers are written with
// two decimals.
//
// Example usage:
//
//	writer := exporter.NewReportWriter(afero.NewOsFs(), paths, false, logger)
//	for _, res := range writer.WriteAll(ctx, analysis) {
//	    if res.Err != nil {
//	        log.Printf("report %s failed: %v", res.Name, res.Err)
//	    }
//	}
package exporter
