package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/logging"
	"github.com/congo-pay/vault_ledger/internal/risk"
	"github.com/congo-pay/vault_ledger/internal/testutil"
)

func setupPostgresStore(t *testing.T) *ledger.PostgresStore {
	t.Helper()
	pool := testutil.SetupTestDB(t)
	store := ledger.NewPostgresStore(pool)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func insertWallet(t *testing.T, store ledger.Store, id string, balance int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.InTx(context.Background(), func(tx ledger.Tx) error {
		return tx.InsertWallet(context.Background(), ledger.Wallet{
			ID:               id,
			Name:             id,
			Type:             ledger.WalletTypeBranchAllocation,
			Currency:         "XAF",
			Balance:          balance,
			AvailableBalance: balance,
			SecurityLevel:    ledger.SecurityLevelStandard,
			Status:           ledger.WalletStatusActive,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}))
}

func TestPostgresStoreTransfersConserveFunds(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()
	insertWallet(t, store, "wallet-a", 5_000)
	insertWallet(t, store, "wallet-b", 5_000)
	p := ledger.NewProcessor(store, risk.NewScorer(), ledger.WithLogger(logging.Discard()), ledger.WithMaxRetries(5))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "wallet-a", "wallet-b"
			if i%2 == 1 {
				from, to = to, from
			}
			_, err := p.ApplyTransfer(ctx, ledger.TransferInput{FromWalletID: from, ToWalletID: to, Amount: 100})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	a, err := store.GetWallet(ctx, "wallet-a")
	require.NoError(t, err)
	b, err := store.GetWallet(ctx, "wallet-b")
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), a.Balance+b.Balance)
	assert.Equal(t, int64(5_000), a.Balance)
	assert.True(t, a.Balanced())

	_, total, err := store.ListTransactions(ctx, ledger.TransactionFilter{WalletID: "wallet-a"})
	require.NoError(t, err)
	assert.Equal(t, 20, total)
}

func TestPostgresStoreConcurrentSameReference(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()
	insertWallet(t, store, "wallet-a", 0)
	p := ledger.NewProcessor(store, risk.NewScorer(), ledger.WithLogger(logging.Discard()))

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.ApplyMovement(ctx, ledger.MovementInput{
				WalletID: "wallet-a", Type: ledger.TxFundTransfer, Amount: 900, Reference: "gw-777",
			})
			assert.NoError(t, err)
			ids[i] = res.Transaction.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	w, err := store.GetWallet(ctx, "wallet-a")
	require.NoError(t, err)
	assert.Equal(t, int64(900), w.Balance)
}

func TestPostgresStoreRejectionLeavesAuditOnly(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()
	insertWallet(t, store, "wallet-a", 100)
	p := ledger.NewProcessor(store, risk.NewScorer(), ledger.WithLogger(logging.Discard()))

	_, err := p.ApplyMovement(ctx, ledger.MovementInput{WalletID: "wallet-a", Type: ledger.TxCashWithdrawal, Amount: 150})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	entries, total, err := store.ListAudit(ctx, ledger.AuditFilter{WalletID: "wallet-a"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, ledger.ActionApplyMovement+ledger.RejectedSuffix, entries[0].Action)

	sum, err := store.Summarize(ctx, "wallet-a", ledger.TimeRange{})
	require.NoError(t, err)
	assert.Zero(t, sum.Count)
}
