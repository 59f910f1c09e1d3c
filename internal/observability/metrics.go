package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/upb/governed-notebook/models"
)

// Metrics collects kernel metrics. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	Registry *prometheus.Registry

	cells         *prometheus.CounterVec
	cellDuration  prometheus.Histogram
	exportsDenied *prometheus.CounterVec
	auditFailures prometheus.Counter
	queries       *prometheus.CounterVec
}

// NewMetrics registers the kernel collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		cells: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_cells_total",
			Help: "Executed cells by outcome.",
		}, []string{"status"}),
		cellDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notebook_cell_duration_seconds",
			Help:    "Wall-clock duration of executed cells.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		exportsDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_exports_denied_total",
			Help: "Export attempts rejected by the interceptor.",
		}, []string{"operation"}),
		auditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "notebook_audit_flush_failures_total",
			Help: "Execution records that could not be written to the audit store.",
		}),
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_queries_total",
			Help: "Governed data access queries by result.",
		}, []string{"result"}),
	}
}

// RecordCell counts one finished cell
func (m *Metrics) RecordCell(status models.ExecutionStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.cells.WithLabelValues(string(status)).Inc()
	m.cellDuration.Observe(duration.Seconds())
}

// RecordExportDenied counts one rejected export
func (m *Metrics) RecordExportDenied(op models.GovernedOperation) {
	if m == nil {
		return
	}
	m.exportsDenied.WithLabelValues(string(op)).Inc()
}

// RecordAuditFailure counts one record lost to a sink failure
func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// RecordQuery counts one facade query; result is ok, rejected or failed
func (m *Metrics) RecordQuery(result string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(result).Inc()
}
