// Package observability provides Prometheus metrics and structured logging.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// API metrics
	HistoryRequests *prometheus.CounterVec
	HistoryLatency  *prometheus.HistogramVec
	ItemsReturned   *prometheus.CounterVec

	// Reconstruction metrics
	ReconstructionFailures *prometheus.CounterVec
	PagesTrimmed           *prometheus.CounterVec

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Metadata cache metrics
	MetadataCacheHits   prometheus.Counter
	MetadataCacheMisses prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBRetries       *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the global Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "balance_history"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// API metrics
		HistoryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "history_requests_total",
			Help:      "Total number of history requests by asset and status",
		}, []string{"asset", "status"}),
		HistoryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "history_latency_seconds",
			Help:      "History request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"asset"}),
		ItemsReturned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "history_items_returned_total",
			Help:      "Total number of history items returned",
		}, []string{"asset"}),

		// Reconstruction metrics
		ReconstructionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "reconstruction_failures_total",
			Help:      "Total number of balance reconstruction failures by reason",
		}, []string{"asset", "reason"}),
		PagesTrimmed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "pages_trimmed_total",
			Help:      "Total number of pages shortened to end on a block boundary",
		}, []string{"asset"}),

		// Chain metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "near",
			Name:      "rpc_call_latency_seconds",
			Help:      "NEAR RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "near",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed NEAR RPC calls by cause",
		}, []string{"method", "cause"}),

		// Metadata cache metrics
		MetadataCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "cache_hits_total",
			Help:      "Total number of coin metadata cache hits",
		}),
		MetadataCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "cache_misses_total",
			Help:      "Total number of coin metadata cache misses",
		}),

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
		DBRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_retries_total",
			Help:      "Total number of retried database queries",
		}, []string{"database", "operation"}),
		DBConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordHistoryRequest records one served history request.
func RecordHistoryRequest(asset, status string, seconds float64, items int) {
	DefaultMetrics.HistoryRequests.WithLabelValues(asset, status).Inc()
	DefaultMetrics.HistoryLatency.WithLabelValues(asset).Observe(seconds)
	if items > 0 {
		DefaultMetrics.ItemsReturned.WithLabelValues(asset).Add(float64(items))
	}
}

// RecordReconstructionFailure records a failed reconstruction.
func RecordReconstructionFailure(asset, reason string) {
	DefaultMetrics.ReconstructionFailures.WithLabelValues(asset, reason).Inc()
}

// RecordPageTrimmed records a page shortened to a block boundary.
func RecordPageTrimmed(asset string) {
	DefaultMetrics.PagesTrimmed.WithLabelValues(asset).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError records a failed RPC call.
func RecordRPCError(method, cause string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method, cause).Inc()
}

// RecordMetadataCache records a metadata cache lookup.
func RecordMetadataCache(hit bool) {
	if hit {
		DefaultMetrics.MetadataCacheHits.Inc()
		return
	}
	DefaultMetrics.MetadataCacheMisses.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordDBRetry records a retried database query.
func RecordDBRetry(database, operation string) {
	DefaultMetrics.DBRetries.WithLabelValues(database, operation).Inc()
}

// UpdateDBConnections updates the connection gauges of one pool.
func UpdateDBConnections(database string, total, idle int32) {
	DefaultMetrics.DBConnections.WithLabelValues(database, "total").Set(float64(total))
	DefaultMetrics.DBConnections.WithLabelValues(database, "idle").Set(float64(idle))
}
