package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/vault_ledger/internal/alerts"
	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/logging"
	"github.com/congo-pay/vault_ledger/internal/risk"
)

type recorder struct {
	statuses []ledger.ReconciliationStatus
}

func (r *recorder) Reconciled(s ledger.ReconciliationStatus, _ int64) {
	r.statuses = append(r.statuses, s)
}

func setup(t *testing.T) (*Engine, *alerts.Monitor, *ledger.Processor, ledger.Store) {
	t.Helper()
	store := ledger.NewInMemory()
	monitor := alerts.NewMonitor(store, nil, logging.Discard())
	p := ledger.NewProcessor(store, risk.NewScorer(), ledger.WithAlerts(monitor), ledger.WithLogger(logging.Discard()))
	return NewEngine(store, monitor, logging.Discard()), monitor, p, store
}

func TestReconcileMatchingHistory(t *testing.T) {
	engine, monitor, p, store := setup(t)
	ctx := context.Background()
	ledger.SeedWallet(store, ledger.Wallet{ID: "wallet-1"})

	_, err := p.ApplyMovement(ctx, ledger.MovementInput{WalletID: "wallet-1", Type: ledger.TxCreateWallet, Amount: 1_000})
	require.NoError(t, err)
	_, err = p.ApplyMovement(ctx, ledger.MovementInput{WalletID: "wallet-1", Type: ledger.TxCustomerPayout, Amount: 300})
	require.NoError(t, err)

	now := time.Now()
	rec, err := engine.Reconcile(ctx, "wallet-1", now.Add(-time.Hour), now.Add(time.Hour), "auditor")
	require.NoError(t, err)
	assert.Equal(t, ledger.ReconciliationSuccessful, rec.Status)
	assert.Equal(t, int64(700), rec.ExpectedBalance)
	assert.Equal(t, int64(700), rec.ActualBalance)
	assert.Zero(t, rec.Difference)
	assert.Equal(t, 2, rec.TransactionCount)
	assert.Equal(t, int64(300), rec.TotalDebits)
	assert.Equal(t, int64(1_000), rec.TotalCredits)
	assert.Equal(t, "auditor", rec.PerformedBy)

	_, total, err := monitor.List(ctx, ledger.AlertFilter{Type: ledger.AlertDataIntegrityIssue})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReconcileEmptyPeriod(t *testing.T) {
	engine, _, p, store := setup(t)
	ctx := context.Background()
	ledger.SeedWallet(store, ledger.Wallet{ID: "wallet-1"})
	_, err := p.ApplyMovement(ctx, ledger.MovementInput{WalletID: "wallet-1", Type: ledger.TxCreateWallet, Amount: 5_000})
	require.NoError(t, err)

	now := time.Now()
	for _, period := range [][2]time.Time{
		{now.Add(-48 * time.Hour), now.Add(-24 * time.Hour)},
		{now.Add(24 * time.Hour), now.Add(48 * time.Hour)},
	} {
		rec, err := engine.Reconcile(ctx, "wallet-1", period[0], period[1], "")
		require.NoError(t, err)
		assert.Equal(t, ledger.ReconciliationSuccessful, rec.Status)
		assert.Zero(t, rec.Difference)
		assert.Zero(t, rec.TransactionCount)
		assert.Equal(t, ledger.SystemActor, rec.PerformedBy)
	}
}

func TestReconcileDiscrepancyRaisesAlert(t *testing.T) {
	engine, monitor, _, store := setup(t)
	ctx := context.Background()
	m := &recorder{}
	engine.SetMetrics(m)
	ledger.SeedWallet(store, ledger.Wallet{ID: "wallet-drift", Balance: 250_000, AvailableBalance: 250_000})

	now := time.Now()
	rec, err := engine.Reconcile(ctx, "wallet-drift", now.Add(-time.Hour), now, "auditor")
	require.NoError(t, err)
	assert.Equal(t, ledger.ReconciliationDiscrepancy, rec.Status)
	assert.Equal(t, int64(250_000), rec.Difference)

	items, total, err := monitor.List(ctx, ledger.AlertFilter{WalletID: "wallet-drift", Type: ledger.AlertDataIntegrityIssue})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, ledger.SeverityHigh, items[0].Severity)

	w, err := store.GetWallet(ctx, "wallet-drift")
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), w.Balance)
	assert.Equal(t, []ledger.ReconciliationStatus{ledger.ReconciliationDiscrepancy}, m.statuses)

	records, total, err := engine.List(ctx, ledger.ReconciliationFilter{WalletID: "wallet-drift"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestReconcileValidation(t *testing.T) {
	engine, _, _, store := setup(t)
	ctx := context.Background()
	now := time.Now()

	_, err := engine.Reconcile(ctx, "", now.Add(-time.Hour), now, "a")
	require.ErrorIs(t, err, ledger.ErrValidation)
	_, err = engine.Reconcile(ctx, "wallet-1", now, now.Add(-time.Hour), "a")
	require.ErrorIs(t, err, ledger.ErrValidation)
	_, err = engine.Reconcile(ctx, "missing", now.Add(-time.Hour), now, "a")
	require.ErrorIs(t, err, ledger.ErrWalletNotFound)

	entries, total, err := store.ListAudit(ctx, ledger.AuditFilter{Action: ledger.ActionReconcile + ledger.RejectedSuffix})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Contains(t, entries[0].Description, "wallet not found")
}

func TestReconcileAll(t *testing.T) {
	engine, _, p, store := setup(t)
	ctx := context.Background()
	ledger.SeedWallet(store, ledger.Wallet{ID: "wallet-a"})
	ledger.SeedWallet(store, ledger.Wallet{ID: "wallet-b", Balance: 10, AvailableBalance: 10})
	ledger.SeedWallet(store, ledger.Wallet{ID: "wallet-closed", Status: ledger.WalletStatusClosed})
	_, err := p.ApplyMovement(ctx, ledger.MovementInput{WalletID: "wallet-a", Type: ledger.TxCreateWallet, Amount: 100})
	require.NoError(t, err)

	now := time.Now()
	records, err := engine.ReconcileAll(ctx, now.Add(-time.Hour), now.Add(time.Hour), "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	byWallet := map[string]ledger.ReconciliationStatus{}
	for _, r := range records {
		byWallet[r.WalletID] = r.Status
	}
	assert.Equal(t, ledger.ReconciliationSuccessful, byWallet["wallet-a"])
	assert.Equal(t, ledger.ReconciliationDiscrepancy, byWallet["wallet-b"])
}
