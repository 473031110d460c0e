// Package reconciliation compares recorded wallet balances with the balance
// implied by their ledger history.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/vault_ledger/internal/alerts"
	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// Metrics observes reconciliation outcomes.
type Metrics interface {
	Reconciled(status ledger.ReconciliationStatus, difference int64)
}

type noopMetrics struct{}

func (noopMetrics) Reconciled(ledger.ReconciliationStatus, int64) {}

// Engine reconciles wallets. It never changes a balance.
type Engine struct {
	store   ledger.Store
	alerts  ledger.AlertRaiser
	metrics Metrics
	logger  *slog.Logger
	retries int
	now     func() time.Time
}

// NewEngine constructs a reconciliation engine. raiser may be nil.
func NewEngine(store ledger.Store, raiser ledger.AlertRaiser, logger *slog.Logger) *Engine {
	if raiser == nil {
		raiser = ledger.NoopAlerts{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		alerts:  raiser,
		metrics: noopMetrics{},
		logger:  logger,
		retries: ledger.DefaultMaxRetries,
		now:     time.Now,
	}
}

// SetMetrics records outcomes on m.
func (e *Engine) SetMetrics(m Metrics) {
	if m != nil {
		e.metrics = m
	}
}

// Reconcile records the outcome of reconciling walletID over [start, end).
//
// The expected balance is the net of every ledger entry: entries before the
// period, inside it and after it. It is compared with the current balance
// under the wallet lock, so no movement can land between the two reads.
func (e *Engine) Reconcile(ctx context.Context, walletID string, start, end time.Time, actorID string) (ledger.ReconciliationRecord, error) {
	reject := ledger.AuditInput{
		WalletID:   walletID,
		ActorID:    actorID,
		Action:     ledger.ActionReconcile,
		EntityType: ledger.EntityReconciliation,
	}
	switch {
	case strings.TrimSpace(walletID) == "":
		return ledger.ReconciliationRecord{}, e.rejected(ctx, reject, fmt.Errorf("%w: wallet id is required", ledger.ErrValidation))
	case start.IsZero() || end.IsZero() || !start.Before(end):
		return ledger.ReconciliationRecord{}, e.rejected(ctx, reject, fmt.Errorf("%w: period start must be before period end", ledger.ErrValidation))
	}

	now := e.now().UTC()
	rec := ledger.ReconciliationRecord{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		PeriodStart: start.UTC(),
		PeriodEnd:   end.UTC(),
		PerformedBy: firstNonEmpty(actorID, ledger.SystemActor),
		CreatedAt:   now,
	}
	reject.EntityID = rec.ID

	err := ledger.RunInTx(ctx, e.store, e.retries, func(tx ledger.Tx) error {
		wallets, err := tx.LockWallets(ctx, walletID)
		if err != nil {
			return err
		}
		sum, err := tx.Summarize(ctx, walletID, ledger.TimeRange{From: start, To: end})
		if err != nil {
			return err
		}
		rec.ExpectedBalance = sum.Opening + sum.PeriodNet + sum.TrailingNet
		rec.ActualBalance = wallets[walletID].Balance
		rec.Difference = rec.ActualBalance - rec.ExpectedBalance
		rec.TransactionCount = sum.Count
		rec.TotalDebits = sum.TotalDebits
		rec.TotalCredits = sum.TotalCredits
		rec.Status = ledger.ReconciliationSuccessful
		if rec.Difference != 0 {
			rec.Status = ledger.ReconciliationDiscrepancy
		}
		if err := tx.InsertReconciliation(ctx, rec); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(ledger.AuditInput{
			WalletID:    walletID,
			ActorID:     actorID,
			Action:      ledger.ActionReconcile,
			EntityType:  ledger.EntityReconciliation,
			EntityID:    rec.ID,
			Description: fmt.Sprintf("%s: expected %d, actual %d", rec.Status, rec.ExpectedBalance, rec.ActualBalance),
		}, now))
	})
	if err != nil {
		return ledger.ReconciliationRecord{}, e.rejected(ctx, reject, err)
	}

	e.metrics.Reconciled(rec.Status, rec.Difference)
	if rec.Status == ledger.ReconciliationDiscrepancy {
		msg := fmt.Sprintf("wallet %s balance %d differs from ledger %d by %d",
			walletID, rec.ActualBalance, rec.ExpectedBalance, rec.Difference)
		if err := e.alerts.RaiseAlert(ctx, walletID, ledger.AlertDataIntegrityIssue, alerts.SeverityForAmount(rec.Difference), msg); err != nil {
			e.logger.ErrorContext(ctx, "raise reconciliation alert", "wallet_id", walletID, "error", err)
		}
		e.logger.WarnContext(ctx, "reconciliation discrepancy", "wallet_id", walletID, "difference", rec.Difference)
	}
	return rec, nil
}

// ReconcileAll reconciles every active wallet over [start, end). It keeps
// going past individual failures and returns them joined.
func (e *Engine) ReconcileAll(ctx context.Context, start, end time.Time, actorID string) ([]ledger.ReconciliationRecord, error) {
	var (
		records []ledger.ReconciliationRecord
		errs    []error
	)
	page := ledger.Page{Limit: 200}
	for {
		wallets, total, err := e.store.ListWallets(ctx, ledger.WalletFilter{Status: ledger.WalletStatusActive, Page: page})
		if err != nil {
			return records, fmt.Errorf("list wallets: %w", err)
		}
		for _, w := range wallets {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			rec, err := e.Reconcile(ctx, w.ID, start, end, actorID)
			if err != nil {
				errs = append(errs, fmt.Errorf("wallet %s: %w", w.ID, err))
				continue
			}
			records = append(records, rec)
		}
		page.Offset += len(wallets)
		if len(wallets) == 0 || page.Offset >= total {
			break
		}
	}
	return records, errors.Join(errs...)
}

// List returns reconciliation records newest first.
func (e *Engine) List(ctx context.Context, filter ledger.ReconciliationFilter) ([]ledger.ReconciliationRecord, int, error) {
	return e.store.ListReconciliations(ctx, filter)
}

func (e *Engine) rejected(ctx context.Context, in ledger.AuditInput, err error) error {
	if auditErr := ledger.RecordRejection(ctx, e.store, in, err); auditErr != nil {
		e.logger.ErrorContext(ctx, "record rejection", "action", in.Action, "error", auditErr)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
