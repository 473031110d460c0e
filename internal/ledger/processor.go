package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/vault_ledger/internal/logging"
	"github.com/congo-pay/vault_ledger/internal/money"
	"github.com/congo-pay/vault_ledger/internal/risk"
)

// DefaultMaxRetries bounds how often a conflicting unit of work is retried.
const DefaultMaxRetries = 3

// Processor is the single choke point for balance mutation. Every movement,
// transfer and reversal computes its before/after snapshots here.
type Processor struct {
	store      Store
	scorer     *risk.Scorer
	alerts     AlertRaiser
	metrics    Metrics
	logger     *slog.Logger
	refs       *ReferenceGenerator
	maxRetries int
	now        func() time.Time
}

// ProcessorOption customises a Processor.
type ProcessorOption func(*Processor)

// WithAlerts routes limit breaches and critical-risk movements to a.
func WithAlerts(a AlertRaiser) ProcessorOption {
	return func(p *Processor) { p.alerts = a }
}

// WithMetrics records activity on m.
func WithMetrics(m Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger sets the processor logger.
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// WithMaxRetries sets the conflict retry bound.
func WithMaxRetries(n int) ProcessorOption {
	return func(p *Processor) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// NewProcessor constructs a transaction processor over store.
func NewProcessor(store Store, scorer *risk.Scorer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:      store,
		scorer:     scorer,
		alerts:     NoopAlerts{},
		metrics:    NoopMetrics{},
		logger:     slog.Default(),
		refs:       NewReferenceGenerator(),
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
	if p.scorer == nil {
		p.scorer = risk.NewScorer()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store exposes the backing store to collaborators sharing the processor's
// retry policy.
func (p *Processor) Store() Store { return p.store }

// NewReference returns a fresh transaction reference.
func (p *Processor) NewReference() string { return p.refs.Next() }

// Run executes fn as one unit of work with the processor's retry policy.
func (p *Processor) Run(ctx context.Context, fn func(tx Tx) error) error {
	return runWithRetry(ctx, p.store, p.maxRetries, p.metrics.ConflictRetried, fn)
}

// MovementInput describes one debit or credit against a single wallet.
type MovementInput struct {
	WalletID    string
	Type        TransactionType
	Amount      int64
	Description string
	ActorID     string
	// Reference is the idempotency key; one is generated when empty.
	Reference string
}

// MovementResult is the applied row plus whether it was a replay.
type MovementResult struct {
	Transaction WalletTransaction
	Replayed    bool
}

// ApplyMovement applies one ledger movement. A reference already used for
// the wallet returns the existing row instead of applying twice.
func (p *Processor) ApplyMovement(ctx context.Context, in MovementInput) (MovementResult, error) {
	reject := AuditInput{
		WalletID:   in.WalletID,
		ActorID:    in.ActorID,
		Action:     ActionApplyMovement,
		EntityType: EntityTransaction,
		EntityID:   in.Reference,
	}
	if err := validateMovement(in); err != nil {
		return MovementResult{}, p.rejected(ctx, reject, err)
	}
	if in.Reference == "" {
		in.Reference = p.refs.Next()
		reject.EntityID = in.Reference
	}

	var res MovementResult
	var assessment risk.Assessment
	err := p.Run(ctx, func(tx Tx) error {
		res = MovementResult{}
		wallets, err := tx.LockWallets(ctx, in.WalletID)
		if err != nil {
			return err
		}
		w := wallets[in.WalletID]

		if existing, found, err := tx.FindTransaction(ctx, w.ID, in.Reference); err != nil {
			return err
		} else if found {
			if existing.Type != in.Type {
				return validationError("reference %s already used by a %s entry on wallet %s", in.Reference, existing.Type, w.ID)
			}
			res = MovementResult{Transaction: existing, Replayed: true}
			return nil
		}

		if w.Status != WalletStatusActive {
			return fmt.Errorf("%w: wallet %s is %s", ErrWalletNotActive, w.ID, w.Status)
		}

		delta := in.Type.signedDelta(in.Amount)
		if delta < 0 {
			if err := p.checkDebit(ctx, tx, w, -delta); err != nil {
				return err
			}
		} else if err := checkCredit(w, delta); err != nil {
			return err
		}

		now := p.now().UTC()
		assessment = p.scorer.Assess(delta)
		row := p.newRow(w, in.Type, delta, in.Description, in.Reference, in.ActorID, assessment, now)
		applyDelta(w, delta, now)

		if err := tx.InsertTransaction(ctx, row); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, *w); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, NewAuditEntry(AuditInput{
			WalletID:    w.ID,
			ActorID:     in.ActorID,
			Action:      ActionApplyMovement,
			EntityType:  EntityTransaction,
			EntityID:    row.ID,
			Description: fmt.Sprintf("%s %d %s ref=%s", row.Type, row.Amount, row.Currency, row.Reference),
			RiskLevel:   row.RiskLevel,
		}, now)); err != nil {
			return err
		}
		res.Transaction = row
		return nil
	})
	if err != nil {
		return MovementResult{}, p.rejected(ctx, reject, err)
	}
	if !res.Replayed {
		p.applied(ctx, res.Transaction, assessment)
	}
	return res, nil
}

// TransferInput describes a movement of funds between two wallets.
type TransferInput struct {
	FromWalletID string
	ToWalletID   string
	Amount       int64
	Description  string
	ActorID      string
	// Reference makes the transfer idempotent when set.
	Reference string
}

// TransferResult reports both sides of an applied transfer.
type TransferResult struct {
	Reference         string
	FromBalanceBefore int64
	FromBalanceAfter  int64
	ToBalanceBefore   int64
	ToBalanceAfter    int64
	Debit             WalletTransaction
	Credit            WalletTransaction
	Replayed          bool
}

// ApplyTransfer debits the source and credits the destination in one unit of
// work. Either both rows exist afterwards or neither does.
func (p *Processor) ApplyTransfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	reject := AuditInput{
		WalletID:   in.FromWalletID,
		ActorID:    in.ActorID,
		Action:     ActionApplyTransfer,
		EntityType: EntityTransaction,
		EntityID:   in.Reference,
	}
	if err := validateTransfer(in); err != nil {
		return TransferResult{}, p.rejected(ctx, reject, err)
	}
	if in.Reference == "" {
		in.Reference = p.refs.Next()
		reject.EntityID = in.Reference
	}

	var res TransferResult
	var assessment risk.Assessment
	err := p.Run(ctx, func(tx Tx) error {
		res = TransferResult{Reference: in.Reference}
		wallets, err := tx.LockWallets(ctx, in.FromWalletID, in.ToWalletID)
		if err != nil {
			return err
		}
		from, to := wallets[in.FromWalletID], wallets[in.ToWalletID]

		debit, debitFound, err := tx.FindTransaction(ctx, from.ID, in.Reference)
		if err != nil {
			return err
		}
		credit, creditFound, err := tx.FindTransaction(ctx, to.ID, in.Reference)
		if err != nil {
			return err
		}
		switch {
		case debitFound && creditFound && isTransferLeg(debit, to.ID) && isTransferLeg(credit, from.ID):
			res.Debit, res.Credit, res.Replayed = debit, credit, true
			res.FromBalanceBefore, res.FromBalanceAfter = debit.BalanceBefore, debit.BalanceAfter
			res.ToBalanceBefore, res.ToBalanceAfter = credit.BalanceBefore, credit.BalanceAfter
			return nil
		case debitFound:
			return validationError("reference %s already used by a %s entry on wallet %s", in.Reference, debit.Type, from.ID)
		case creditFound:
			return validationError("reference %s already used by a %s entry on wallet %s", in.Reference, credit.Type, to.ID)
		}

		for _, w := range []*Wallet{from, to} {
			if w.Status != WalletStatusActive {
				return fmt.Errorf("%w: wallet %s is %s", ErrWalletNotActive, w.ID, w.Status)
			}
		}
		if !strings.EqualFold(from.Currency, to.Currency) {
			return validationError("currency mismatch %s -> %s", from.Currency, to.Currency)
		}
		if err := p.checkDebit(ctx, tx, from, in.Amount); err != nil {
			return err
		}
		if err := checkCredit(to, in.Amount); err != nil {
			return err
		}

		now := p.now().UTC()
		assessment = p.scorer.Assess(in.Amount)
		res.FromBalanceBefore, res.ToBalanceBefore = from.Balance, to.Balance

		res.Debit = p.newRow(from, TxFundTransfer, -in.Amount, in.Description, in.Reference, in.ActorID, assessment, now)
		res.Debit.CounterpartyWalletID = to.ID
		res.Credit = p.newRow(to, TxFundTransfer, in.Amount, in.Description, in.Reference, in.ActorID, assessment, now)
		res.Credit.CounterpartyWalletID = from.ID

		applyDelta(from, -in.Amount, now)
		applyDelta(to, in.Amount, now)
		res.FromBalanceAfter, res.ToBalanceAfter = from.Balance, to.Balance

		for _, row := range []WalletTransaction{res.Debit, res.Credit} {
			if err := tx.InsertTransaction(ctx, row); err != nil {
				return err
			}
		}
		for _, w := range []*Wallet{from, to} {
			if err := tx.UpdateWallet(ctx, *w); err != nil {
				return err
			}
		}
		audits := []AuditInput{
			{WalletID: from.ID, Action: ActionTransferOut, EntityID: res.Debit.ID,
				Description: fmt.Sprintf("transfer %d to %s ref=%s", in.Amount, to.ID, in.Reference)},
			{WalletID: to.ID, Action: ActionTransferIn, EntityID: res.Credit.ID,
				Description: fmt.Sprintf("transfer %d from %s ref=%s", in.Amount, from.ID, in.Reference)},
		}
		for _, a := range audits {
			a.ActorID, a.EntityType, a.RiskLevel = in.ActorID, EntityTransaction, assessment.Level
			if err := tx.AppendAudit(ctx, NewAuditEntry(a, now)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, p.rejected(ctx, reject, err)
	}
	if !res.Replayed {
		p.applied(ctx, res.Debit, assessment)
		p.metrics.TransactionApplied(res.Credit.Type, assessment.Level, res.Credit.Amount)
	}
	return res, nil
}

// checkDebit enforces wallet limits and available funds for a debit of
// amount. Limits are checked first so a breach is always alerted.
func (p *Processor) checkDebit(ctx context.Context, tx Tx, w *Wallet, amount int64) error {
	if limit := w.Limits.PerTransaction; limit > 0 && amount > limit {
		return &LimitError{WalletID: w.ID, Limit: "per-transaction", Max: limit, Attempt: amount}
	}
	now := p.now().UTC()
	windows := []struct {
		name  string
		max   int64
		since time.Time
	}{
		{"daily", w.Limits.Daily, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)},
		{"monthly", w.Limits.Monthly, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, win := range windows {
		if win.max <= 0 {
			continue
		}
		spent, err := tx.DebitTotalSince(ctx, w.ID, win.since)
		if err != nil {
			return err
		}
		if amount > win.max-spent {
			return &LimitError{WalletID: w.ID, Limit: win.name, Max: win.max, Attempt: spent + amount}
		}
	}
	if w.AvailableBalance < amount {
		return fmt.Errorf("%w: wallet %s has %d available, needs %d", ErrInsufficientFunds, w.ID, w.AvailableBalance, amount)
	}
	return nil
}

// checkCredit rejects a credit the wallet balance cannot hold.
func checkCredit(w *Wallet, amount int64) error {
	if amount > math.MaxInt64-w.Balance || amount > math.MaxInt64-w.AvailableBalance {
		return validationError("credit of %d would overflow the balance of wallet %s", amount, w.ID)
	}
	return nil
}

func isTransferLeg(row WalletTransaction, counterparty string) bool {
	return row.Type == TxFundTransfer && row.CounterpartyWalletID == counterparty
}

func (p *Processor) newRow(w *Wallet, t TransactionType, delta int64, description, reference, actor string, a risk.Assessment, now time.Time) WalletTransaction {
	if actor == "" {
		actor = SystemActor
	}
	return WalletTransaction{
		ID:            uuid.NewString(),
		WalletID:      w.ID,
		Type:          t,
		Amount:        delta,
		Currency:      w.Currency,
		BalanceBefore: w.Balance,
		BalanceAfter:  w.Balance + delta,
		Description:   description,
		Reference:     reference,
		RiskScore:     a.Score,
		RiskLevel:     a.Level,
		Status:        TxStatusCompleted,
		ProcessedBy:   actor,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// applyDelta moves total and available balance together; the reserve is
// only touched by allocations.
func applyDelta(w *Wallet, delta int64, now time.Time) {
	w.Balance += delta
	w.AvailableBalance += delta
	w.UpdatedAt = now
}

func (p *Processor) applied(ctx context.Context, row WalletTransaction, a risk.Assessment) {
	p.metrics.TransactionApplied(row.Type, a.Level, row.Amount)
	if a.Level != risk.LevelCritical {
		return
	}
	msg := fmt.Sprintf("%s of %d %s on wallet %s requires %s (ref=%s)",
		row.Type, row.Amount, row.Currency, row.WalletID, a.Authorization, row.Reference)
	if err := p.alerts.RaiseAlert(ctx, row.WalletID, AlertSuspiciousTransaction, SeverityCritical, msg); err != nil {
		p.logger.ErrorContext(ctx, "raise suspicious transaction alert", "wallet_id", row.WalletID, "error", err)
	}
}

// rejected records the rejection and passes err through.
func (p *Processor) rejected(ctx context.Context, in AuditInput, err error) error {
	logger := logging.FromContext(ctx, p.logger)
	var limitErr *LimitError
	if errors.As(err, &limitErr) {
		msg := limitErr.Error()
		if alertErr := p.alerts.RaiseAlert(ctx, limitErr.WalletID, AlertLimitExceeded, SeverityHigh, msg); alertErr != nil {
			logger.ErrorContext(ctx, "raise limit alert", "wallet_id", limitErr.WalletID, "error", alertErr)
		}
	}
	if auditErr := RecordRejection(ctx, p.store, in, err); auditErr != nil {
		logger.ErrorContext(ctx, "record rejection", "action", in.Action, "error", auditErr)
	}
	p.metrics.OperationRejected(in.Action, err)
	logger.WarnContext(ctx, "ledger operation rejected", "action", in.Action, "wallet_id", in.WalletID, "error", err)
	return err
}

func validateMovement(in MovementInput) error {
	switch {
	case strings.TrimSpace(in.WalletID) == "":
		return validationError("wallet id is required")
	case !in.Type.Valid():
		return validationError("unknown transaction type %q", in.Type)
	case in.Amount == 0:
		return validationError("amount must be non-zero")
	case in.Amount > money.MaxMinor || in.Amount < -money.MaxMinor:
		return validationError("amount %d is out of range", in.Amount)
	}
	return nil
}

func validateTransfer(in TransferInput) error {
	switch {
	case strings.TrimSpace(in.FromWalletID) == "" || strings.TrimSpace(in.ToWalletID) == "":
		return validationError("source and destination wallet ids are required")
	case in.FromWalletID == in.ToWalletID:
		return validationError("source and destination wallet must differ")
	case in.Amount <= 0:
		return validationError("amount must be positive")
	case in.Amount > money.MaxMinor:
		return validationError("amount %d is out of range", in.Amount)
	}
	return nil
}
