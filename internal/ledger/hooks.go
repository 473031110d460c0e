package ledger

import (
	"context"

	"github.com/congo-pay/vault_ledger/internal/risk"
)

// AlertRaiser receives anomalies detected while applying movements. It is
// called after the unit of work has finished.
type AlertRaiser interface {
	RaiseAlert(ctx context.Context, walletID string, alertType AlertType, severity Severity, message string) error
}

// Metrics observes ledger activity.
type Metrics interface {
	TransactionApplied(txType TransactionType, level risk.Level, amount int64)
	OperationRejected(action string, err error)
	ConflictRetried()
}

// NoopAlerts discards alerts.
type NoopAlerts struct{}

func (NoopAlerts) RaiseAlert(context.Context, string, AlertType, Severity, string) error { return nil }

// NoopMetrics discards observations.
type NoopMetrics struct{}

func (NoopMetrics) TransactionApplied(TransactionType, risk.Level, int64) {}
func (NoopMetrics) OperationRejected(string, error)                       {}
func (NoopMetrics) ConflictRetried()                                      {}
