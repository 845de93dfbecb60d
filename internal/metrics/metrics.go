// Package metrics exposes Prometheus metrics for generation runs and exports.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gendb collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Generation runs by outcome ("ok", "error")
	Runs *prometheus.CounterVec

	// Rows synthesized across all runs
	Rows prometheus.Counter

	// Duration of table synthesis, excluding export
	GenerateLatency prometheus.Histogram

	// Issued PIDs and rejected collision attempts
	PIDsIssued    prometheus.Counter
	PIDCollisions prometheus.Counter

	// Export outcomes by format and status
	ExportOutcome *prometheus.CounterVec
	ExportLatency *prometheus.HistogramVec
	ExportBytes   *prometheus.CounterVec

	mu             sync.Mutex
	lastCollisions int64
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gendb_runs_total",
			Help: "Total generation runs by outcome",
		}, []string{"outcome"}),

		Rows: f.NewCounter(prometheus.CounterOpts{
			Name: "gendb_rows_generated_total",
			Help: "Total rows synthesized",
		}),

		GenerateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gendb_generate_duration_seconds",
			Help:    "Duration of table synthesis",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),

		PIDsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "gendb_pids_issued_total",
			Help: "Total PIDs issued",
		}),

		PIDCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "gendb_pid_collisions_total",
			Help: "Total PID candidates rejected as duplicates",
		}),

		ExportOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gendb_exports_total",
			Help: "Total export destinations by format and status",
		}, []string{"format", "status"}),

		ExportLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gendb_export_duration_seconds",
			Help:    "Duration of writing one export destination",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"format"}),

		ExportBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gendb_export_bytes_total",
			Help: "Total bytes written by format",
		}, []string{"format"}),
	}
}

// ObserveRun records one generation run.
func (m *Metrics) ObserveRun(rows int, d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Runs.WithLabelValues("error").Inc()
		return
	}
	m.Runs.WithLabelValues("ok").Inc()
	m.Rows.Add(float64(rows))
	m.GenerateLatency.Observe(d.Seconds())
}

// ObservePIDs records issued PIDs. collisions is the generator's running
// total; only the increase since the last call is added.
func (m *Metrics) ObservePIDs(issued int, collisions int64) {
	if m == nil {
		return
	}
	m.PIDsIssued.Add(float64(issued))

	m.mu.Lock()
	defer m.mu.Unlock()
	if delta := collisions - m.lastCollisions; delta > 0 {
		m.PIDCollisions.Add(float64(delta))
	}
	m.lastCollisions = collisions
}

// ObserveExport records one export destination.
func (m *Metrics) ObserveExport(format string, d time.Duration, bytes int64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ExportOutcome.WithLabelValues(format, status).Inc()
	m.ExportLatency.WithLabelValues(format).Observe(d.Seconds())
	if bytes > 0 {
		m.ExportBytes.WithLabelValues(format).Add(float64(bytes))
	}
}
