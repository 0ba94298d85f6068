// Package pipeline runs the sales data pipeline end to end.
//
// A run executes six steps strictly in order:
//
//   - load: read the sales CSV, product JSON and region spreadsheet
//   - clean: normalize dates, numeric columns and categories
//   - merge: left-join sales to products and regions
//   - store: persist raw and merged tables to SQLite
//   - analyze: compute the monthly, product and regional views and write reports
//   - visualize: render the HTML charts
//
// Each step has a StepState. Recoverable problems (a missing source, a
// table that cannot be stored, a report that cannot be written) mark the
// step degraded and the run continues. A date parse failure, a parsing
// error or a cancelled context fails the step and ends the run with an
// error. When no merged dataset exists the analyze and visualize steps
// are skipped with a notice.
//
// Progress is reported as status lines and a final step table on the
// configured output writer. Every step gets an OpenTelemetry span and its
// duration and outcome are recorded in the run's Prometheus registry.
package pipeline
