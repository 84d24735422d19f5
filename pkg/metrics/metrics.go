// Package metrics tracks conversion activity with Prometheus collectors.
//
// A Collector owns its own registry so several runs (and tests) never share
// counters. After a run the registry can be dumped in the text exposition
// format for node_exporter's textfile collector.
//
// # Basic Usage
//
//	m := metrics.NewCollector()
//	timer := metrics.NewTimer("encode")
//	err := enc.Encode(ctx, rs, dest)
//	m.ObserveEncode("h5", rs.NumRows(), timer.Stop(), err)
//	_ = m.WriteToTextfile("/var/lib/node_exporter/root2data.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "root2data"

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Collector groups the conversion metrics of one process.
type Collector struct {
	registry *prometheus.Registry

	filesProcessed    *prometheus.CounterVec   // by status
	artifactsWritten  *prometheus.CounterVec   // by format, status
	rowsWritten       *prometheus.CounterVec   // by format
	columnsNormalized *prometheus.CounterVec   // by normalization path
	rowsDropped       prometheus.Counter       // short rows removed by the textual path
	missingColumns    prometheus.Counter       // requested names found in no table
	encodeDuration    *prometheus.HistogramVec // by format
	residentMemory    prometheus.Gauge         // RSS after the last file
}

// NewCollector registers a fresh set of collectors on a private registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		filesProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_processed_total",
				Help:      "Source files processed, by outcome",
			},
			[]string{"status"},
		),
		artifactsWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifacts_total",
				Help:      "Artifacts encoded, by format and outcome",
			},
			[]string{"format", "status"},
		),
		rowsWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_written_total",
				Help:      "Rows written to artifacts",
			},
			[]string{"format"},
		),
		columnsNormalized: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "columns_normalized_total",
				Help:      "Columns normalized, by normalization path",
			},
			[]string{"path"},
		),
		rowsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ragged_rows_dropped_total",
			Help:      "Ragged rows dropped because their text form was too short",
		}),
		missingColumns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_columns_total",
			Help:      "Requested columns found in no table",
		}),
		encodeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "encode_duration_seconds",
				Help:      "Time spent encoding one artifact",
				Buckets: []float64{
					0.001, // 1ms - tiny files
					0.01,
					0.1,
					1,
					10,
					60, // 1m - large trees
				},
			},
			[]string{"format"},
		),
		residentMemory: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resident_memory_bytes",
			Help:      "Resident set size after the last converted file",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveFile records the outcome of one source file.
func (c *Collector) ObserveFile(status string) {
	c.filesProcessed.WithLabelValues(status).Inc()
}

// ObserveColumn records one normalized column.
func (c *Collector) ObserveColumn(path string, dropped int) {
	c.columnsNormalized.WithLabelValues(path).Inc()
	if dropped > 0 {
		c.rowsDropped.Add(float64(dropped))
	}
}

// ObserveMissing records requested columns that were not found.
func (c *Collector) ObserveMissing(n int) {
	if n > 0 {
		c.missingColumns.Add(float64(n))
	}
}

// ObserveEncode records one encoder run.
func (c *Collector) ObserveEncode(format string, rows int, d time.Duration, err error) {
	c.encodeDuration.WithLabelValues(format).Observe(d.Seconds())
	if err != nil {
		c.artifactsWritten.WithLabelValues(format, StatusFailure).Inc()
		return
	}
	c.artifactsWritten.WithLabelValues(format, StatusSuccess).Inc()
	c.rowsWritten.WithLabelValues(format).Add(float64(rows))
}

// SetResidentMemory records the current RSS in bytes.
func (c *Collector) SetResidentMemory(bytes uint64) {
	c.residentMemory.Set(float64(bytes))
}

// WriteToTextfile writes every metric in the text exposition format.
func (c *Collector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Timer measures the duration of one operation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{start: time.Now(), name: name}
}

// Name returns the label given to NewTimer.
func (t *Timer) Name() string { return t.name }

// Stop returns the time elapsed since NewTimer. It may be called repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
