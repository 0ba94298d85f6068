// Package config provides centralized configuration management for the sales pipeline.
// It handles loading configuration from multiple sources, validation, and path
// resolution so that no component depends on fixed, platform-specific file paths.
//
// # Configuration Sources
//
// Configuration is layered in the following order (later wins):
//
//  1. Default values (Default)
//  2. YAML configuration file, when a path is given
//  3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern SALESPIPE_<SECTION>_<KEY>:
//
//	SALESPIPE_SOURCES_SALES_CSV=data/sales_data.csv
//	SALESPIPE_DATABASE_FILE=sales_database.db
//	SALESPIPE_OUTPUT_TOP_PRODUCTS=10
//	SALESPIPE_LOGGING_LEVEL=debug
//
// # Path Management
//
// Relative paths are anchored at Config.BaseDir (the config file's directory, or
// the working directory). Both "/" and "\" separators are accepted. Paths derives
// the resolved locations used by the loaders and sinks:
//
//	paths := config.NewPaths(cfg)
//	reportPath := paths.GetReportPath(config.MonthlySalesReport)
//
// # Validation
//
// Struct-level rules are declared with validate tags and checked with
// go-playground/validator; cross-field rules live in Config.validate.
package config
