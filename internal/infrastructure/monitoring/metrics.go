package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation operation labels.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsOpen     prometheus.Gauge
	SessionsCreated  prometheus.Counter
	SessionsDeleted  prometheus.Counter
	SessionsRestored prometheus.Counter
	TakeoversTotal   prometheus.Counter

	// Mirror metrics
	SyncsTotal   prometheus.Counter
	SyncFailures prometheus.Counter
	ReconcileOps *prometheus.CounterVec
	RepoErrors   *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Event log metrics
	EventLogEntries prometheus.Counter
	EventLogFlushes prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
}

// New creates a metrics collector registered on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabstash_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabstash_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		SessionsOpen: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabstash_sessions_open",
				Help: "Number of sessions currently bound to a live window",
			},
		),
		SessionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstash_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstash_sessions_deleted_total",
				Help: "Total number of sessions deleted",
			},
		),
		SessionsRestored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstash_sessions_restored_total",
				Help: "Total number of closed sessions restored into windows",
			},
		),
		TakeoversTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstash_takeovers_total",
				Help: "Total number of successful tab takeovers",
			},
		),
		SyncsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstash_mirror_syncs_total",
				Help: "Total number of session-to-bookmark sync operations",
			},
		),
		SyncFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstash_mirror_sync_failures_total",
				Help: "Total number of failed sync operations",
			},
		),
		ReconcileOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabstash_mirror_reconcile_ops_total",
				Help: "Bookmark writes issued by tab reconciliation",
			},
			[]string{"op"},
		),
		RepoErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabstash_repository_errors_total",
				Help: "Errors swallowed by the repository layer, by method",
			},
			[]string{"method"},
		),
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabstash_cache_hits_total",
				Help: "Cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabstash_cache_misses_total",
				Help: "Cache misses by cache name",
			},
			[]string{"cache"},
		),
		EventLogEntries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstash_eventlog_entries_total",
				Help: "Total number of event log entries appended",
			},
		),
		EventLogFlushes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstash_eventlog_flushes_total",
				Help: "Total number of event log flushes to storage",
			},
		),
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabstash_ws_connections",
				Help: "Number of active WebSocket event stream connections",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordReconcileOp records one bookmark write issued by reconciliation.
func (m *Metrics) RecordReconcileOp(op string) {
	m.ReconcileOps.WithLabelValues(op).Inc()
}

// RecordRepoError records an error swallowed by the repository layer.
func (m *Metrics) RecordRepoError(method string) {
	m.RepoErrors.WithLabelValues(method).Inc()
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMisses.WithLabelValues(cache).Inc()
}
