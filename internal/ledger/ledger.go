package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation wraps every input rejection raised before state is touched.
	ErrValidation = errors.New("validation failed")

	ErrWalletNotFound      = errors.New("wallet not found")
	ErrAllocationNotFound  = errors.New("allocation not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlertNotFound       = errors.New("alert not found")

	ErrWalletExists = errors.New("wallet already exists")

	// ErrWalletNotActive occurs when a wallet is suspended, frozen, inactive or closed.
	ErrWalletNotActive = errors.New("wallet not active")

	// ErrInsufficientFunds occurs when a debit would take the available
	// balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLimitExceeded occurs when a debit breaches a configured wallet limit.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrOverUse occurs when recorded usage exceeds an allocation's remainder.
	ErrOverUse = errors.New("usage exceeds remaining allocation")

	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict is reported by stores when a concurrent writer won the race
	// (unique key, serialization failure or deadlock). It is retried.
	ErrConflict = errors.New("storage conflict")

	// ErrTransientConflict is surfaced once conflict retries are exhausted.
	ErrTransientConflict = errors.New("transient conflict, retry later")
)

// LimitError details which wallet limit a debit breached.
type LimitError struct {
	WalletID string
	Limit    string
	Max      int64
	Attempt  int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit of %d exceeded for wallet %s (attempted total %d)", e.Limit, e.Max, e.WalletID, e.Attempt)
}

// Unwrap lets errors.Is match ErrLimitExceeded.
func (e *LimitError) Unwrap() error { return ErrLimitExceeded }

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Page bounds a listing query.
type Page struct {
	Limit  int
	Offset int
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// TimeRange filters on creation time; zero bounds are open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range. To is exclusive.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

type WalletFilter struct {
	Type   WalletType
	Status WalletStatus
	Page   Page
}

type TransactionFilter struct {
	WalletID  string
	Reference string
	Type      TransactionType
	Status    TransactionStatus
	Range     TimeRange
	Page      Page
}

type AllocationFilter struct {
	SourceWalletID string
	TargetID       string
	Status         AllocationStatus
	Range          TimeRange
	Page           Page
}

type ReconciliationFilter struct {
	WalletID string
	Status   ReconciliationStatus
	Range    TimeRange
	Page     Page
}

type AlertFilter struct {
	WalletID string
	Type     AlertType
	Severity Severity
	// Resolved filters on resolution when non-nil.
	Resolved *bool
	Range    TimeRange
	Page     Page
}

type AuditFilter struct {
	WalletID string
	ActorID  string
	Action   string
	Range    TimeRange
	Page     Page
}

// LedgerSummary aggregates a wallet's history around a period.
type LedgerSummary struct {
	// Opening is the net of every entry created before the period.
	Opening int64
	// PeriodNet is the net of entries inside the period.
	PeriodNet int64
	// TrailingNet is the net of entries created at or after the period end.
	TrailingNet  int64
	Count        int
	TotalDebits  int64
	TotalCredits int64
}

// Reader exposes read-only queries over the ledger state.
type Reader interface {
	GetWallet(ctx context.Context, id string) (Wallet, error)
	ListWallets(ctx context.Context, filter WalletFilter) ([]Wallet, int, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]WalletTransaction, int, error)
	GetAllocation(ctx context.Context, id string) (Allocation, error)
	ListAllocations(ctx context.Context, filter AllocationFilter) ([]Allocation, int, error)
	ListReconciliations(ctx context.Context, filter ReconciliationFilter) ([]ReconciliationRecord, int, error)
	GetAlert(ctx context.Context, id string) (SecurityAlert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]SecurityAlert, int, error)
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, int, error)
	Summarize(ctx context.Context, walletID string, period TimeRange) (LedgerSummary, error)
}

// Tx is one atomic unit of work. Wallet rows returned by LockWallets stay
// locked until the unit commits or rolls back.
type Tx interface {
	// LockWallets locks the given wallets in ascending id order.
	LockWallets(ctx context.Context, ids ...string) (map[string]*Wallet, error)
	InsertWallet(ctx context.Context, w Wallet) error
	UpdateWallet(ctx context.Context, w Wallet) error

	FindTransaction(ctx context.Context, walletID, reference string) (WalletTransaction, bool, error)
	TransactionsByReference(ctx context.Context, reference string) ([]WalletTransaction, error)
	InsertTransaction(ctx context.Context, t WalletTransaction) error
	MarkReversed(ctx context.Context, id string, at time.Time) error
	// DebitTotalSince sums the absolute value of debits created at or after since.
	DebitTotalSince(ctx context.Context, walletID string, since time.Time) (int64, error)

	GetAllocationForUpdate(ctx context.Context, id string) (Allocation, error)
	InsertAllocation(ctx context.Context, a Allocation) error
	UpdateAllocation(ctx context.Context, a Allocation) error
	DueAllocations(ctx context.Context, now time.Time, limit int) ([]Allocation, error)

	// Summarize aggregates history inside the unit so it agrees with locked balances.
	Summarize(ctx context.Context, walletID string, period TimeRange) (LedgerSummary, error)
	InsertReconciliation(ctx context.Context, r ReconciliationRecord) error
	GetAlertForUpdate(ctx context.Context, id string) (SecurityAlert, error)
	InsertAlert(ctx context.Context, a SecurityAlert) error
	UpdateAlert(ctx context.Context, a SecurityAlert) error
	AppendAudit(ctx context.Context, e AuditEntry) error
}

// Store is the durable ledger backend (e.g. Postgres).
type Store interface {
	Reader
	// InTx runs fn as one atomic unit; any error rolls the whole unit back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// AppendAudit writes an audit entry outside of any unit of work. Used for
	// rejections, whose unit of work was rolled back.
	AppendAudit(ctx context.Context, e AuditEntry) error
}

// RunInTx executes fn through store.InTx, retrying ErrConflict up to retries
// additional times before surfacing ErrTransientConflict.
func RunInTx(ctx context.Context, store Store, retries int, fn func(tx Tx) error) error {
	return runWithRetry(ctx, store, retries, nil, fn)
}

func runWithRetry(ctx context.Context, store Store, retries int, onRetry func(), fn func(tx Tx) error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 && onRetry != nil {
			onRetry()
		}
		err = store.InTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return fmt.Errorf("%w: %v", ErrTransientConflict, err)
}
