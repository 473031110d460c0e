package reporting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/vault_ledger/internal/httpx"
	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/logging"
	"github.com/congo-pay/vault_ledger/internal/risk"
)

type listBody struct {
	Items  []map[string]any `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func setup(t *testing.T) *fiber.App {
	t.Helper()
	store := ledger.NewInMemory()
	ledger.SeedWallet(store, ledger.Wallet{ID: "wallet-a", Balance: 5_000, AvailableBalance: 5_000})
	ledger.SeedWallet(store, ledger.Wallet{ID: "wallet-b"})
	p := ledger.NewProcessor(store, risk.NewScorer(), ledger.WithLogger(logging.Discard()))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := p.ApplyTransfer(ctx, ledger.TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-b", Amount: 100})
		require.NoError(t, err)
	}
	_, err := p.ApplyMovement(ctx, ledger.MovementInput{WalletID: "wallet-a", Type: ledger.TxCashWithdrawal, Amount: 50_000})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	h := NewHandler(NewService(store))
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(logging.Discard())})
	app.Get("/transactions", h.Transactions)
	app.Get("/wallets/:walletId/transactions", h.Transactions)
	app.Get("/wallets/:walletId/summary", h.Summary)
	app.Get("/audit", h.Audit)
	app.Get("/alerts", h.Alerts)
	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, listBody) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	var body listBody
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func TestTransactionListing(t *testing.T) {
	app := setup(t)

	status, body := get(t, app, "/wallets/wallet-b/transactions?limit=2")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, body.Total)
	assert.Len(t, body.Items, 2)
	assert.Equal(t, 2, body.Limit)

	status, body = get(t, app, "/transactions?type=fund-transfer&offset=4")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 6, body.Total)
	assert.Len(t, body.Items, 2)

	status, _ = get(t, app, "/transactions?type=teleport")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = get(t, app, "/transactions?from=2025-02-01T00:00:00Z&to=2025-01-01T00:00:00Z")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuditListingIncludesRejections(t *testing.T) {
	app := setup(t)

	status, body := get(t, app, "/audit?wallet_id=wallet-a&action=apply_movement_rejected")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Total)
	assert.Contains(t, body.Items[0]["description"], "insufficient funds")

	status, _ = get(t, app, "/alerts?resolved=maybe")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSummary(t *testing.T) {
	app := setup(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/wallets/wallet-b/summary", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.EqualValues(t, 300, out["period_net"])
	assert.EqualValues(t, 3, out["transaction_count"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/wallets/ghost/summary", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
