// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Vault transition metrics
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	SignalsSubmitted   prometheus.Counter
	TradesExecuted     *prometheus.CounterVec
	SnapshotsCreated   prometheus.Counter
	Halted             prometheus.Gauge

	// Risk gate metrics
	RiskEvaluations   *prometheus.CounterVec
	CriterionFailures *prometheus.CounterVec

	// Post-commit side effects
	SettlementTransfers *prometheus.CounterVec
	AuditErrors         *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
// on reg. A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "treasury_vault"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Vault transition metrics
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "transitions_total",
			Help:      "Total number of vault transitions by operation and outcome",
		}, []string{"operation", "outcome"}),
		TransitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "transition_duration_seconds",
			Help:      "Vault transition duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		SignalsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "signals_submitted_total",
			Help:      "Total number of trading signals accepted",
		}),
		TradesExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "trades_executed_total",
			Help:      "Total number of trades executed by action",
		}, []string{"action"}),
		SnapshotsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "snapshots_created_total",
			Help:      "Total number of portfolio snapshots created",
		}),
		Halted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "halted",
			Help:      "1 while the vault is halted, 0 otherwise",
		}),

		// Risk gate metrics
		RiskEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "evaluations_total",
			Help:      "Total number of risk evaluations by result",
		}, []string{"result"}),
		CriterionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "criterion_failures_total",
			Help:      "Total number of failed risk criteria by name",
		}, []string{"criterion"}),

		// Post-commit side effects
		SettlementTransfers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "transfers_total",
			Help:      "Total number of settlement transfers by status",
		}, []string{"status"}),
		AuditErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "errors_total",
			Help:      "Total number of failed audit journal writes by record kind",
		}, []string{"kind"}),

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

		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordTransition records the outcome and duration of a vault transition.
func RecordTransition(operation, outcome string, seconds float64) {
	DefaultMetrics.Transitions.WithLabelValues(operation, outcome).Inc()
	DefaultMetrics.TransitionDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordSignalSubmitted increments the accepted signals counter.
func RecordSignalSubmitted() {
	DefaultMetrics.SignalsSubmitted.Inc()
}

// RecordTradeExecuted increments the executed trades counter.
func RecordTradeExecuted(action string) {
	DefaultMetrics.TradesExecuted.WithLabelValues(action).Inc()
}

// RecordSnapshotCreated increments the snapshots counter.
func RecordSnapshotCreated() {
	DefaultMetrics.SnapshotsCreated.Inc()
}

// SetHalted updates the halted gauge.
func SetHalted(halted bool) {
	if halted {
		DefaultMetrics.Halted.Set(1)
		return
	}
	DefaultMetrics.Halted.Set(0)
}

// RecordRiskEvaluation records a risk gate decision and its failed criteria.
func RecordRiskEvaluation(approved bool, failed []string) {
	result := "rejected"
	if approved {
		result = "approved"
	}
	DefaultMetrics.RiskEvaluations.WithLabelValues(result).Inc()
	for _, name := range failed {
		DefaultMetrics.CriterionFailures.WithLabelValues(name).Inc()
	}
}

// RecordSettlement records a settlement transfer attempt.
func RecordSettlement(status string) {
	DefaultMetrics.SettlementTransfers.WithLabelValues(status).Inc()
}

// RecordAuditError records a failed audit journal write.
func RecordAuditError(kind string) {
	DefaultMetrics.AuditErrors.WithLabelValues(kind).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, route string, status int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
