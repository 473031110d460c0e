package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/vault_ledger/internal/logging"
	"github.com/congo-pay/vault_ledger/internal/risk"
)

type raisedAlert struct {
	WalletID string
	Type     AlertType
	Severity Severity
}

type recordingAlerts struct {
	mu     sync.Mutex
	raised []raisedAlert
}

func (r *recordingAlerts) RaiseAlert(_ context.Context, walletID string, t AlertType, s Severity, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raised = append(r.raised, raisedAlert{WalletID: walletID, Type: t, Severity: s})
	return nil
}

func (r *recordingAlerts) ofType(t AlertType) []raisedAlert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []raisedAlert
	for _, a := range r.raised {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func newTestProcessor(t *testing.T) (*Processor, Store, *recordingAlerts) {
	t.Helper()
	store := NewInMemory()
	alerts := &recordingAlerts{}
	p := NewProcessor(store, risk.NewScorer(), WithAlerts(alerts), WithLogger(logging.Discard()))
	return p, store, alerts
}

func seed(store Store, id string, balance int64) {
	SeedWallet(store, Wallet{ID: id, Name: id, Balance: balance, AvailableBalance: balance})
}

func mustWallet(t *testing.T, store Store, id string) Wallet {
	t.Helper()
	w, err := store.GetWallet(context.Background(), id)
	require.NoError(t, err)
	return w
}

func auditActions(t *testing.T, store Store, walletID string) []string {
	t.Helper()
	entries, _, err := store.ListAudit(context.Background(), AuditFilter{WalletID: walletID})
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestApplyTransferMovesWholeBalance(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	ctx := context.Background()
	seed(store, "wallet-a", 1000)
	seed(store, "wallet-b", 500)

	res, err := p.ApplyTransfer(ctx, TransferInput{
		FromWalletID: "wallet-a",
		ToWalletID:   "wallet-b",
		Amount:       1000,
		ActorID:      "teller-1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), res.FromBalanceBefore)
	assert.Equal(t, int64(0), res.FromBalanceAfter)
	assert.Equal(t, int64(500), res.ToBalanceBefore)
	assert.Equal(t, int64(1500), res.ToBalanceAfter)
	assert.Equal(t, res.FromBalanceBefore+res.ToBalanceBefore, res.FromBalanceAfter+res.ToBalanceAfter)

	a := mustWallet(t, store, "wallet-a")
	b := mustWallet(t, store, "wallet-b")
	assert.Equal(t, Wallet{Balance: 0, AvailableBalance: 0, ReserveBalance: 0},
		Wallet{Balance: a.Balance, AvailableBalance: a.AvailableBalance, ReserveBalance: a.ReserveBalance})
	assert.Equal(t, Wallet{Balance: 1500, AvailableBalance: 1500, ReserveBalance: 0},
		Wallet{Balance: b.Balance, AvailableBalance: b.AvailableBalance, ReserveBalance: b.ReserveBalance})

	rows, total, err := store.ListTransactions(ctx, TransactionFilter{Reference: res.Reference})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	var sum int64
	for _, r := range rows {
		sum += r.Amount
		assert.Equal(t, TxFundTransfer, r.Type)
		assert.Equal(t, "teller-1", r.ProcessedBy)
	}
	assert.Zero(t, sum)
	assert.Equal(t, "wallet-b", res.Debit.CounterpartyWalletID)
	assert.Equal(t, "wallet-a", res.Credit.CounterpartyWalletID)

	assert.Equal(t, []string{ActionTransferOut}, auditActions(t, store, "wallet-a"))
	assert.Equal(t, []string{ActionTransferIn}, auditActions(t, store, "wallet-b"))
}

func TestApplyMovementInsufficientFundsIsRejectedAndAudited(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	ctx := context.Background()
	seed(store, "wallet-a", 100)

	_, err := p.ApplyMovement(ctx, MovementInput{
		WalletID: "wallet-a",
		Type:     TxCashWithdrawal,
		Amount:   150,
		ActorID:  "teller-1",
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	w := mustWallet(t, store, "wallet-a")
	assert.Equal(t, int64(100), w.Balance)
	assert.Equal(t, int64(100), w.AvailableBalance)

	assert.Equal(t, []string{ActionApplyMovement + RejectedSuffix}, auditActions(t, store, "wallet-a"))
	entries, _, err := store.ListAudit(ctx, AuditFilter{WalletID: "wallet-a"})
	require.NoError(t, err)
	assert.Contains(t, entries[0].Description, "insufficient funds")

	_, total, err := store.ListTransactions(ctx, TransactionFilter{WalletID: "wallet-a"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestApplyMovementDirections(t *testing.T) {
	tests := []struct {
		name    string
		txType  TransactionType
		amount  int64
		balance int64
	}{
		{name: "credit ignores sign", txType: TxFundAllocation, amount: -200, balance: 1200},
		{name: "debit ignores sign", txType: TxBranchDisbursement, amount: 200, balance: 800},
		{name: "signed positive credits", txType: TxReserveAdjustment, amount: 200, balance: 1200},
		{name: "signed negative debits", txType: TxReserveAdjustment, amount: -200, balance: 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, _ := newTestProcessor(t)
			seed(store, "wallet-a", 1000)

			res, err := p.ApplyMovement(context.Background(), MovementInput{
				WalletID: "wallet-a", Type: tt.txType, Amount: tt.amount,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1000), res.Transaction.BalanceBefore)
			assert.Equal(t, tt.balance, res.Transaction.BalanceAfter)
			assert.Equal(t, tt.balance-1000, res.Transaction.Amount)
			assert.Equal(t, SystemActor, res.Transaction.ProcessedBy)
			assert.NotEmpty(t, res.Transaction.Reference)

			w := mustWallet(t, store, "wallet-a")
			assert.Equal(t, tt.balance, w.Balance)
			assert.True(t, w.Balanced())
		})
	}
}

func TestApplyMovementValidation(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	ctx := context.Background()

	_, err := p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxCashWithdrawal})
	require.ErrorIs(t, err, ErrValidation)

	_, err = p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: "teleport", Amount: 5})
	require.ErrorIs(t, err, ErrValidation)

	_, err = p.ApplyMovement(ctx, MovementInput{WalletID: "missing", Type: TxCashWithdrawal, Amount: 5})
	require.ErrorIs(t, err, ErrWalletNotFound)

	assert.Len(t, auditActions(t, store, "wallet-a"), 2)
	assert.Equal(t, int64(1000), mustWallet(t, store, "wallet-a").Balance)
}

func TestApplyMovementRejectsInactiveWallet(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	SeedWallet(store, Wallet{ID: "wallet-f", Balance: 1000, AvailableBalance: 1000, Status: WalletStatusFrozen})

	_, err := p.ApplyMovement(context.Background(), MovementInput{WalletID: "wallet-f", Type: TxFundAllocation, Amount: 10})
	require.ErrorIs(t, err, ErrWalletNotActive)
	assert.Equal(t, int64(1000), mustWallet(t, store, "wallet-f").Balance)
}

func TestApplyMovementIdempotentReplay(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 0)
	ctx := context.Background()

	in := MovementInput{WalletID: "wallet-a", Type: TxFundTransfer, Amount: 700, Reference: "gw-123"}
	first, err := p.ApplyMovement(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := p.ApplyMovement(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction, second.Transaction)
	assert.Equal(t, int64(700), mustWallet(t, store, "wallet-a").Balance)
	assert.Equal(t, []string{ActionApplyMovement}, auditActions(t, store, "wallet-a"))
}

func TestApplyMovementConcurrentSameReference(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 0)
	ctx := context.Background()

	const callers = 16
	results := make([]MovementResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.ApplyMovement(ctx, MovementInput{
				WalletID: "wallet-a", Type: TxFundTransfer, Amount: 250, Reference: "settle-42",
			})
		}(i)
	}
	wg.Wait()

	replays := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Transaction.ID, results[i].Transaction.ID)
		if results[i].Replayed {
			replays++
		}
	}
	assert.Equal(t, callers-1, replays)

	_, total, err := store.ListTransactions(ctx, TransactionFilter{WalletID: "wallet-a"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, int64(250), mustWallet(t, store, "wallet-a").Balance)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxCashWithdrawal, Amount: 30})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	w := mustWallet(t, store, "wallet-a")
	assert.Equal(t, 33, succeeded)
	assert.Equal(t, int64(1000-33*30), w.AvailableBalance)
	assert.GreaterOrEqual(t, w.AvailableBalance, int64(0))
	assert.True(t, w.Balanced())
}

func TestConcurrentOppositeTransfersConserveFunds(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 5000)
	seed(store, "wallet-b", 5000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "wallet-a", "wallet-b"
			if i%2 == 1 {
				from, to = to, from
			}
			_, _ = p.ApplyTransfer(ctx, TransferInput{FromWalletID: from, ToWalletID: to, Amount: int64(50 + i)})
		}(i)
	}
	wg.Wait()

	a := mustWallet(t, store, "wallet-a")
	b := mustWallet(t, store, "wallet-b")
	assert.Equal(t, int64(10000), a.Balance+b.Balance)
	assert.True(t, a.Balanced())
	assert.True(t, b.Balanced())
}

func TestApplyTransferIdempotentReference(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	seed(store, "wallet-b", 0)
	ctx := context.Background()

	in := TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-b", Amount: 400, Reference: "tr-1"}
	first, err := p.ApplyTransfer(ctx, in)
	require.NoError(t, err)
	second, err := p.ApplyTransfer(ctx, in)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Debit.ID, second.Debit.ID)
	assert.Equal(t, first.Credit.ID, second.Credit.ID)
	assert.Equal(t, first.FromBalanceAfter, second.FromBalanceAfter)
	assert.Equal(t, int64(600), mustWallet(t, store, "wallet-a").Balance)
}

func TestApplyTransferValidation(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	SeedWallet(store, Wallet{ID: "wallet-usd", Currency: "USD"})
	ctx := context.Background()

	_, err := p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-a", Amount: 1})
	require.ErrorIs(t, err, ErrValidation)
	_, err = p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-x", Amount: 0})
	require.ErrorIs(t, err, ErrValidation)
	_, err = p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-x", Amount: 10})
	require.ErrorIs(t, err, ErrWalletNotFound)
	_, err = p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-usd", Amount: 10})
	require.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, int64(1000), mustWallet(t, store, "wallet-a").Balance)
	for _, action := range auditActions(t, store, "wallet-a") {
		assert.Equal(t, ActionApplyTransfer+RejectedSuffix, action)
	}
}

func TestLimitsBlockAndAlert(t *testing.T) {
	p, store, alerts := newTestProcessor(t)
	SeedWallet(store, Wallet{
		ID: "wallet-a", Balance: 10_000, AvailableBalance: 10_000,
		Limits: Limits{PerTransaction: 2_000, Daily: 3_000},
	})
	ctx := context.Background()

	_, err := p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxCustomerPayout, Amount: 2_500})
	require.ErrorIs(t, err, ErrLimitExceeded)
	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, "per-transaction", limitErr.Limit)

	_, err = p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxCustomerPayout, Amount: 2_000})
	require.NoError(t, err)

	_, err = p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-b", Amount: 1_500})
	require.ErrorIs(t, err, ErrWalletNotFound)

	seed(store, "wallet-b", 0)
	_, err = p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-b", Amount: 1_500})
	require.ErrorIs(t, err, ErrLimitExceeded)
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, "daily", limitErr.Limit)
	assert.Equal(t, int64(3_500), limitErr.Attempt)

	// credits are never limited
	_, err = p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxFundAllocation, Amount: 50_000})
	require.NoError(t, err)

	raised := alerts.ofType(AlertLimitExceeded)
	require.Len(t, raised, 2)
	assert.Equal(t, "wallet-a", raised[0].WalletID)
	assert.Equal(t, int64(58_000), mustWallet(t, store, "wallet-a").Balance)
}

func TestCriticalRiskIsStampedAndAlerted(t *testing.T) {
	p, store, alerts := newTestProcessor(t)
	seed(store, "wallet-vault", 0)

	res, err := p.ApplyMovement(context.Background(), MovementInput{
		WalletID: "wallet-vault", Type: TxFundAllocation, Amount: 2_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, risk.LevelCritical, res.Transaction.RiskLevel)
	assert.Equal(t, 95, res.Transaction.RiskScore)

	raised := alerts.ofType(AlertSuspiciousTransaction)
	require.Len(t, raised, 1)
	assert.Equal(t, SeverityCritical, raised[0].Severity)

	_, err = p.ApplyMovement(context.Background(), MovementInput{
		WalletID: "wallet-vault", Type: TxFundAllocation, Amount: 500,
	})
	require.NoError(t, err)
	assert.Len(t, alerts.ofType(AlertSuspiciousTransaction), 1)
}

func TestReverseTransferRestoresBalances(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	seed(store, "wallet-b", 0)
	ctx := context.Background()

	tr, err := p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-b", Amount: 300, Reference: "gw-9"})
	require.NoError(t, err)

	res, err := p.Reverse(ctx, ReverseInput{Reference: tr.Reference, Reason: "chargeback", ActorID: "ops"})
	require.NoError(t, err)
	require.Len(t, res.Reversals, 2)
	assert.Equal(t, "gw-9:reversal", res.Reference)
	for _, r := range res.Reversals {
		assert.Equal(t, TxReversal, r.Type)
		assert.Contains(t, r.Description, "chargeback")
	}

	assert.Equal(t, int64(1000), mustWallet(t, store, "wallet-a").Balance)
	assert.Equal(t, int64(0), mustWallet(t, store, "wallet-b").Balance)

	originals, _, err := store.ListTransactions(ctx, TransactionFilter{Reference: "gw-9"})
	require.NoError(t, err)
	for _, o := range originals {
		assert.Equal(t, TxStatusReversed, o.Status)
		assert.NotZero(t, o.Amount)
	}

	again, err := p.Reverse(ctx, ReverseInput{Reference: "gw-9"})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Len(t, again.Reversals, 2)
	assert.Equal(t, int64(1000), mustWallet(t, store, "wallet-a").Balance)
}

func TestReverseFailures(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 0)
	ctx := context.Background()

	_, err := p.Reverse(ctx, ReverseInput{Reference: "nope"})
	require.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = p.Reverse(ctx, ReverseInput{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxFundTransfer, Amount: 500, Reference: "in-1"})
	require.NoError(t, err)
	_, err = p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxCashWithdrawal, Amount: 400})
	require.NoError(t, err)

	_, err = p.Reverse(ctx, ReverseInput{Reference: "in-1"})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(100), mustWallet(t, store, "wallet-a").Balance)
}

type conflictingStore struct {
	Store
	mu    sync.Mutex
	calls int
}

func (s *conflictingStore) InTx(context.Context, func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return fmt.Errorf("%w: serialization failure", ErrConflict)
}

func TestRunInTxSurfacesTransientConflict(t *testing.T) {
	store := &conflictingStore{Store: NewInMemory()}

	err := RunInTx(context.Background(), store, 2, func(Tx) error { return nil })
	require.ErrorIs(t, err, ErrTransientConflict)
	assert.Equal(t, 3, store.calls)

	p := NewProcessor(store, nil, WithMaxRetries(1), WithLogger(logging.Discard()))
	_, err = p.ApplyMovement(context.Background(), MovementInput{WalletID: "w", Type: TxFundAllocation, Amount: 1})
	require.ErrorIs(t, err, ErrTransientConflict)
	assert.Equal(t, 5, store.calls)
}

func TestApplyMovementRejectsOutOfRangeAmounts(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	ctx := context.Background()

	for _, in := range []MovementInput{
		{WalletID: "wallet-a", Type: TxCashWithdrawal, Amount: math.MinInt64},
		{WalletID: "wallet-a", Type: TxReserveAdjustment, Amount: math.MinInt64},
		{WalletID: "wallet-a", Type: TxFundAllocation, Amount: math.MaxInt64},
	} {
		_, err := p.ApplyMovement(ctx, in)
		require.ErrorIs(t, err, ErrValidation, "amount %d", in.Amount)
	}

	w := mustWallet(t, store, "wallet-a")
	assert.Equal(t, int64(1000), w.Balance)
	assert.Equal(t, int64(1000), w.AvailableBalance)
	assert.Len(t, auditActions(t, store, "wallet-a"), 3)

	_, err := p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-b", Amount: math.MaxInt64})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreditThatWouldOverflowBalanceIsRejected(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-full", math.MaxInt64-10)
	seed(store, "wallet-a", 1000)
	ctx := context.Background()

	_, err := p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-full", Type: TxFundAllocation, Amount: 100})
	require.ErrorIs(t, err, ErrValidation)

	_, err = p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-full", Amount: 100})
	require.ErrorIs(t, err, ErrValidation)

	full := mustWallet(t, store, "wallet-full")
	assert.Equal(t, int64(math.MaxInt64-10), full.Balance)
	assert.Equal(t, int64(1000), mustWallet(t, store, "wallet-a").Balance)
	assert.Equal(t, []string{ActionApplyMovement + RejectedSuffix}, auditActions(t, store, "wallet-full"))

	res, err := p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-full", Type: TxFundAllocation, Amount: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), res.Transaction.BalanceAfter)
}

func TestApplyTransferRejectsReferenceOfAnotherMovement(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	seed(store, "wallet-b", 0)
	ctx := context.Background()

	_, err := p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxFundAllocation, Amount: 50, Reference: "dep-1"})
	require.NoError(t, err)

	res, err := p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-b", Amount: 400, Reference: "dep-1"})
	require.ErrorIs(t, err, ErrValidation)
	assert.False(t, res.Replayed)
	assert.Equal(t, int64(1050), mustWallet(t, store, "wallet-a").Balance)
	assert.Zero(t, mustWallet(t, store, "wallet-b").Balance)
}

func TestApplyTransferRejectsReferenceUsedOnDestination(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	seed(store, "wallet-b", 0)
	ctx := context.Background()

	_, err := p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-b", Type: TxFundAllocation, Amount: 20, Reference: "shared-1"})
	require.NoError(t, err)

	_, err = p.ApplyTransfer(ctx, TransferInput{FromWalletID: "wallet-a", ToWalletID: "wallet-b", Amount: 400, Reference: "shared-1"})
	require.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrTransientConflict)
	assert.Equal(t, int64(1000), mustWallet(t, store, "wallet-a").Balance)
	assert.Equal(t, int64(20), mustWallet(t, store, "wallet-b").Balance)
	assert.Equal(t, []string{ActionApplyTransfer + RejectedSuffix}, auditActions(t, store, "wallet-a"))
}

func TestApplyMovementRejectsReferenceReusedWithOtherType(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seed(store, "wallet-a", 1000)
	ctx := context.Background()

	_, err := p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxFundAllocation, Amount: 50, Reference: "ref-9"})
	require.NoError(t, err)

	_, err = p.ApplyMovement(ctx, MovementInput{WalletID: "wallet-a", Type: TxCashWithdrawal, Amount: 50, Reference: "ref-9"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int64(1050), mustWallet(t, store, "wallet-a").Balance)
}
