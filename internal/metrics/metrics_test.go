package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/logging"
	"github.com/congo-pay/vault_ledger/internal/risk"
)

func TestProcessorMetrics(t *testing.T) {
	rec := New(prometheus.NewRegistry())
	store := ledger.NewInMemory()
	ledger.SeedWallet(store, ledger.Wallet{ID: "w", Balance: 100, AvailableBalance: 100})
	p := ledger.NewProcessor(store, risk.NewScorer(), ledger.WithMetrics(rec), ledger.WithLogger(logging.Discard()))
	ctx := context.Background()

	_, err := p.ApplyMovement(ctx, ledger.MovementInput{WalletID: "w", Type: ledger.TxCustomerPayout, Amount: 40})
	require.NoError(t, err)
	_, err = p.ApplyMovement(ctx, ledger.MovementInput{WalletID: "w", Type: ledger.TxCustomerPayout, Amount: 400})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.transactions.WithLabelValues("customer-payout", string(risk.LevelLow))))
	assert.Equal(t, 40.0, testutil.ToFloat64(rec.transactionAmount.WithLabelValues("customer-payout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.rejections.WithLabelValues(ledger.ActionApplyMovement, "insufficient_funds")))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "limit_exceeded", Reason(&ledger.LimitError{Limit: "daily"}))
	assert.Equal(t, "not_found", Reason(ledger.ErrAlertNotFound))
	assert.Equal(t, "internal", Reason(errors.New("boom")))
	assert.Equal(t, "none", Reason(nil))
}

func TestHandlerExposesSeries(t *testing.T) {
	rec := New(prometheus.NewRegistry())
	rec.Reconciled(ledger.ReconciliationDiscrepancy, -25)
	rec.AlertRaised(ledger.AlertDataIntegrityIssue, ledger.SeverityLow)

	app := fiber.New()
	app.Use(rec.Middleware())
	app.Get("/metrics", rec.Handler())
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.ErrTeapot })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `vault_ledger_reconciliations_total{status="discrepancy"} 1`)
	assert.Contains(t, text, "vault_ledger_reconciliation_last_difference_minor -25")
	assert.Contains(t, text, `vault_ledger_alerts_raised_total{severity="low",type="data-integrity-issue"} 1`)
	assert.Contains(t, text, `vault_ledger_http_requests_total{method="GET",route="/boom",status="418"} 1`)
}
