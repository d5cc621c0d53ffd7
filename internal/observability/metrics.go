// Package observability provides Prometheus metrics and structured logging.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Pipeline metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	LastSuccessfulRun *prometheus.GaugeVec

	// Engine metrics
	RowsBuilt          *prometheus.CounterVec
	Resolutions        *prometheus.CounterVec
	AssignmentsDropped *prometheus.CounterVec

	// Write path metrics
	RowsWritten   *prometheus.CounterVec
	WriteFailures *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sports_features"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Pipeline metrics
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of feature runs by sport, mode and status",
		}, []string{"sport", "mode", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Feature run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"sport", "mode"}),
		LastSuccessfulRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful run",
		}, []string{"sport", "mode"}),

		// Engine metrics
		RowsBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rows_built_total",
			Help:      "Total number of feature rows composed",
		}, []string{"sport"}),
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "snapshot_resolutions_total",
			Help:      "Entity snapshot lookups by resolution (exact, carried_forward, missing)",
		}, []string{"sport", "resolution"}),
		AssignmentsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "assignments_dropped_total",
			Help:      "Observations that could not be placed on a side",
		}, []string{"sport"}),

		// Write path metrics
		RowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "rows_written_total",
			Help:      "Feature rows successfully written",
		}, []string{"sport", "mode"}),
		WriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "write_failures_total",
			Help:      "Failed writes by tier (batch, row)",
		}, []string{"sport", "tier"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(sport, mode, status string, seconds float64, finishedUnix int64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(sport, mode, status).Inc()
	m.RunDuration.WithLabelValues(sport, mode).Observe(seconds)
	if status == "success" {
		m.LastSuccessfulRun.WithLabelValues(sport, mode).Set(float64(finishedUnix))
	}
}

// RecordBuild records engine counters of one run.
func (m *Metrics) RecordBuild(sport string, rows, exact, carried, missing, dropped int) {
	if m == nil {
		return
	}
	m.RowsBuilt.WithLabelValues(sport).Add(float64(rows))
	m.Resolutions.WithLabelValues(sport, "exact").Add(float64(exact))
	m.Resolutions.WithLabelValues(sport, "carried_forward").Add(float64(carried))
	m.Resolutions.WithLabelValues(sport, "missing").Add(float64(missing))
	m.AssignmentsDropped.WithLabelValues(sport).Add(float64(dropped))
}

// RecordWrite records written rows.
func (m *Metrics) RecordWrite(sport, mode string, rows int) {
	if m == nil {
		return
	}
	m.RowsWritten.WithLabelValues(sport, mode).Add(float64(rows))
}

// RecordWriteFailure records a failed batch or row write.
func (m *Metrics) RecordWriteFailure(sport, tier string) {
	if m == nil {
		return
	}
	m.WriteFailures.WithLabelValues(sport, tier).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
