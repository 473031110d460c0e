// Package metrics records ledger activity as Prometheus series.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/risk"
)

const namespace = "vault_ledger"

// Recorder implements the metric hooks of the processor, the alert monitor
// and the reconciliation engine.
type Recorder struct {
	gatherer prometheus.Gatherer

	transactions      *prometheus.CounterVec
	transactionAmount *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	conflicts         prometheus.Counter
	alertsRaised      *prometheus.CounterVec
	alertsResolved    *prometheus.CounterVec
	reconciliations   *prometheus.CounterVec
	discrepancy       prometheus.Gauge
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// New registers every series on reg. Passing prometheus.NewRegistry() keeps
// tests isolated from the default registry.
func New(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_applied_total",
			Help:      "Ledger entries written, by type and risk level.",
		}, []string{"type", "risk_level"}),
		transactionAmount: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_amount_minor_total",
			Help:      "Absolute minor units moved, by type.",
		}, []string{"type"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_rejected_total",
			Help:      "Rejected ledger operations, by action and reason.",
		}, []string{"action", "reason"}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_conflicts_retried_total",
			Help:      "Units of work retried after a storage conflict.",
		}),
		alertsRaised: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Security alerts raised, by type and severity.",
		}, []string{"type", "severity"}),
		alertsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_resolved_total",
			Help:      "Security alerts resolved, by type.",
		}, []string{"type"}),
		reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation runs, by outcome.",
		}, []string{"status"}),
		discrepancy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconciliation_last_difference_minor",
			Help:      "Signed difference of the most recent discrepancy.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"method", "route"}),
	}
}

func (r *Recorder) TransactionApplied(t ledger.TransactionType, level risk.Level, amount int64) {
	r.transactions.WithLabelValues(string(t), string(level)).Inc()
	if amount < 0 {
		amount = -amount
	}
	r.transactionAmount.WithLabelValues(string(t)).Add(float64(amount))
}

func (r *Recorder) OperationRejected(action string, err error) {
	r.rejections.WithLabelValues(action, Reason(err)).Inc()
}

func (r *Recorder) ConflictRetried() { r.conflicts.Inc() }

func (r *Recorder) AlertRaised(t ledger.AlertType, s ledger.Severity) {
	r.alertsRaised.WithLabelValues(string(t), string(s)).Inc()
}

func (r *Recorder) AlertResolved(t ledger.AlertType) {
	r.alertsResolved.WithLabelValues(string(t)).Inc()
}

func (r *Recorder) Reconciled(status ledger.ReconciliationStatus, difference int64) {
	r.reconciliations.WithLabelValues(string(status)).Inc()
	if status == ledger.ReconciliationDiscrepancy {
		r.discrepancy.Set(float64(difference))
	}
}

// Middleware records request counts and latency by matched route.
func (r *Recorder) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		route := c.Route().Path
		r.requests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		r.requestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
}

// Reason reduces an error to a low-cardinality label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ledger.ErrValidation):
		return "validation"
	case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, ledger.ErrAllocationNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound), errors.Is(err, ledger.ErrAlertNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrWalletNotActive):
		return "wallet_not_active"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ledger.ErrOverUse):
		return "over_use"
	case errors.Is(err, ledger.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ledger.ErrWalletExists):
		return "wallet_exists"
	case errors.Is(err, ledger.ErrTransientConflict):
		return "transient_conflict"
	default:
		return "internal"
	}
}
