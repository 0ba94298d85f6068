package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics holds the counters and histograms recorded during a run.
// Each run gets its own registry so repeated runs in one process never clash.
type PipelineMetrics struct {
	Registry *prometheus.Registry

	StepDuration   *prometheus.HistogramVec
	StepsTotal     *prometheus.CounterVec
	RowsProcessed  *prometheus.CounterVec
	ArtifactsTotal *prometheus.CounterVec
	LastRunTime    prometheus.Gauge
}

// NewPipelineMetrics creates and registers the pipeline metrics
func NewPipelineMetrics() *PipelineMetrics {
	m := &PipelineMetrics{
		Registry: prometheus.NewRegistry(),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salespipe",
			Name:      "step_duration_seconds",
			Help:      "Pipeline step duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "status"}),
		StepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salespipe",
			Name:      "steps_total",
			Help:      "Pipeline steps executed, by final status",
		}, []string{"step", "status"}),
		RowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salespipe",
			Name:      "rows_processed_total",
			Help:      "Rows handled per dataset",
		}, []string{"dataset"}),
		ArtifactsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salespipe",
			Name:      "artifacts_total",
			Help:      "Reports, charts and tables written, by outcome",
		}, []string{"kind", "outcome"}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "salespipe",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last pipeline run finished",
		}),
	}

	m.Registry.MustRegister(m.StepDuration, m.StepsTotal, m.RowsProcessed, m.ArtifactsTotal, m.LastRunTime)
	return m
}

// ObserveStep records one finished step
func (m *PipelineMetrics) ObserveStep(step, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step, status).Observe(d.Seconds())
	m.StepsTotal.WithLabelValues(step, status).Inc()
}

// AddRows records the row count of a dataset
func (m *PipelineMetrics) AddRows(dataset string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsProcessed.WithLabelValues(dataset).Add(float64(n))
}

// CountArtifact records a written (or failed) output
func (m *PipelineMetrics) CountArtifact(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "written"
	if !ok {
		outcome = "failed"
	}
	m.ArtifactsTotal.WithLabelValues(kind, outcome).Inc()
}

// WriteTextfile stamps the run time and writes the registry in the
// node_exporter textfile format. An empty path is a no-op.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	m.LastRunTime.SetToCurrentTime()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
