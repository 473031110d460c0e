// Package alerts raises and tracks security alerts over the ledger store.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/notification"
)

// Metrics observes alert activity.
type Metrics interface {
	AlertRaised(alertType ledger.AlertType, severity ledger.Severity)
	AlertResolved(alertType ledger.AlertType)
}

type noopMetrics struct{}

func (noopMetrics) AlertRaised(ledger.AlertType, ledger.Severity) {}
func (noopMetrics) AlertResolved(ledger.AlertType)                {}

// Monitor persists alerts and fans them out to a notifier.
type Monitor struct {
	store    ledger.Store
	notifier notification.Notifier
	metrics  Metrics
	logger   *slog.Logger
	retries  int
	now      func() time.Time
}

// NewMonitor constructs an alert monitor. notifier may be nil.
func NewMonitor(store ledger.Store, notifier notification.Notifier, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		store:    store,
		notifier: notifier,
		metrics:  noopMetrics{},
		logger:   logger,
		retries:  ledger.DefaultMaxRetries,
		now:      time.Now,
	}
}

// SetMetrics records alert activity on m.
func (m *Monitor) SetMetrics(metrics Metrics) {
	if metrics != nil {
		m.metrics = metrics
	}
}

// RaiseInput describes a new alert. WalletID is empty for system-level alerts.
type RaiseInput struct {
	WalletID string
	Type     ledger.AlertType
	Severity ledger.Severity
	Message  string
	ActorID  string
}

// Raise records a new unresolved alert.
func (m *Monitor) Raise(ctx context.Context, in RaiseInput) (ledger.SecurityAlert, error) {
	reject := ledger.AuditInput{
		WalletID:   in.WalletID,
		ActorID:    in.ActorID,
		Action:     ledger.ActionRaiseAlert,
		EntityType: ledger.EntitySecurityAlert,
	}
	if err := validateRaise(in); err != nil {
		return ledger.SecurityAlert{}, m.rejected(ctx, reject, err)
	}

	now := m.now().UTC()
	alert := ledger.SecurityAlert{
		ID:         uuid.NewString(),
		WalletID:   in.WalletID,
		Type:       in.Type,
		Severity:   in.Severity,
		Message:    strings.TrimSpace(in.Message),
		DetectedAt: now,
	}
	err := ledger.RunInTx(ctx, m.store, m.retries, func(tx ledger.Tx) error {
		if err := tx.InsertAlert(ctx, alert); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(ledger.AuditInput{
			WalletID:    in.WalletID,
			ActorID:     in.ActorID,
			Action:      ledger.ActionRaiseAlert,
			EntityType:  ledger.EntitySecurityAlert,
			EntityID:    alert.ID,
			Description: fmt.Sprintf("%s/%s: %s", alert.Type, alert.Severity, alert.Message),
		}, now))
	})
	if err != nil {
		reject.EntityID = alert.ID
		return ledger.SecurityAlert{}, m.rejected(ctx, reject, err)
	}

	m.metrics.AlertRaised(alert.Type, alert.Severity)
	m.logger.WarnContext(ctx, "security alert raised",
		"alert_id", alert.ID, "wallet_id", alert.WalletID, "type", alert.Type, "severity", alert.Severity)
	m.notify(ctx, notification.KindSecurityAlert, alert)
	return alert, nil
}

// RaiseAlert lets the transaction processor raise alerts.
func (m *Monitor) RaiseAlert(ctx context.Context, walletID string, alertType ledger.AlertType, severity ledger.Severity, message string) error {
	_, err := m.Raise(ctx, RaiseInput{
		WalletID: walletID,
		Type:     alertType,
		Severity: severity,
		Message:  message,
		ActorID:  ledger.SystemActor,
	})
	return err
}

// Resolve marks an alert resolved. Resolving twice is an invalid transition.
func (m *Monitor) Resolve(ctx context.Context, alertID, note, actorID string) (ledger.SecurityAlert, error) {
	reject := ledger.AuditInput{
		ActorID:    actorID,
		Action:     ledger.ActionResolveAlert,
		EntityType: ledger.EntitySecurityAlert,
		EntityID:   alertID,
	}
	if strings.TrimSpace(alertID) == "" {
		return ledger.SecurityAlert{}, m.rejected(ctx, reject, fmt.Errorf("%w: alert id is required", ledger.ErrValidation))
	}
	if strings.TrimSpace(actorID) == "" {
		return ledger.SecurityAlert{}, m.rejected(ctx, reject, fmt.Errorf("%w: actor id is required", ledger.ErrValidation))
	}

	var resolved ledger.SecurityAlert
	err := ledger.RunInTx(ctx, m.store, m.retries, func(tx ledger.Tx) error {
		alert, err := tx.GetAlertForUpdate(ctx, alertID)
		if err != nil {
			return err
		}
		reject.WalletID = alert.WalletID
		if alert.Resolved {
			return fmt.Errorf("%w: alert %s already resolved", ledger.ErrInvalidTransition, alertID)
		}
		now := m.now().UTC()
		alert.Resolved = true
		alert.ResolutionNote = strings.TrimSpace(note)
		alert.ResolvedBy = actorID
		alert.ResolvedAt = &now
		if err := tx.UpdateAlert(ctx, alert); err != nil {
			return err
		}
		resolved = alert
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(ledger.AuditInput{
			WalletID:    alert.WalletID,
			ActorID:     actorID,
			Action:      ledger.ActionResolveAlert,
			EntityType:  ledger.EntitySecurityAlert,
			EntityID:    alert.ID,
			Description: alert.ResolutionNote,
		}, now))
	})
	if err != nil {
		return ledger.SecurityAlert{}, m.rejected(ctx, reject, err)
	}
	m.metrics.AlertResolved(resolved.Type)
	m.notify(ctx, notification.KindAlertResolved, resolved)
	return resolved, nil
}

// Get returns one alert.
func (m *Monitor) Get(ctx context.Context, id string) (ledger.SecurityAlert, error) {
	return m.store.GetAlert(ctx, id)
}

// List returns alerts matching filter, newest first.
func (m *Monitor) List(ctx context.Context, filter ledger.AlertFilter) ([]ledger.SecurityAlert, int, error) {
	return m.store.ListAlerts(ctx, filter)
}

// SeverityForAmount grades an absolute discrepancy or exposure.
func SeverityForAmount(amount int64) ledger.Severity {
	if amount < 0 {
		amount = -amount
	}
	switch {
	case amount < 1_000:
		return ledger.SeverityLow
	case amount < 100_000:
		return ledger.SeverityMedium
	case amount < 1_000_000:
		return ledger.SeverityHigh
	default:
		return ledger.SeverityCritical
	}
}

func (m *Monitor) notify(ctx context.Context, kind string, alert ledger.SecurityAlert) {
	if m.notifier == nil {
		return
	}
	err := m.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: alert.WalletID,
		Body:        alert.Message,
		Attributes: map[string]string{
			"alert_id": alert.ID,
			"type":     string(alert.Type),
			"severity": string(alert.Severity),
		},
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "notify alert", "alert_id", alert.ID, "error", err)
	}
}

func (m *Monitor) rejected(ctx context.Context, in ledger.AuditInput, err error) error {
	if auditErr := ledger.RecordRejection(ctx, m.store, in, err); auditErr != nil {
		m.logger.ErrorContext(ctx, "record rejection", "action", in.Action, "error", auditErr)
	}
	return err
}

func validateRaise(in RaiseInput) error {
	switch {
	case !in.Type.Valid():
		return fmt.Errorf("%w: unknown alert type %q", ledger.ErrValidation, in.Type)
	case !in.Severity.Valid():
		return fmt.Errorf("%w: unknown severity %q", ledger.ErrValidation, in.Severity)
	case strings.TrimSpace(in.Message) == "":
		return fmt.Errorf("%w: message is required", ledger.ErrValidation)
	}
	return nil
}
