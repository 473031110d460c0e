// Package reporting serves the read-only ledger queries used by dashboards
// and operators. Nothing here mutates state.
package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// Service answers paginated listing queries.
type Service struct {
	reader ledger.Reader
}

// NewService builds a reporting service over reader.
func NewService(reader ledger.Reader) *Service {
	return &Service{reader: reader}
}

func (s *Service) Wallets(ctx context.Context, f ledger.WalletFilter) ([]ledger.Wallet, int, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown wallet type %q", ledger.ErrValidation, f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown wallet status %q", ledger.ErrValidation, f.Status)
	}
	f.Page = f.Page.Normalize()
	return s.reader.ListWallets(ctx, f)
}

func (s *Service) Transactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.WalletTransaction, int, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown transaction type %q", ledger.ErrValidation, f.Type)
	}
	switch f.Status {
	case "", ledger.TxStatusPending, ledger.TxStatusCompleted, ledger.TxStatusFailed, ledger.TxStatusReversed:
	default:
		return nil, 0, fmt.Errorf("%w: unknown transaction status %q", ledger.ErrValidation, f.Status)
	}
	f.Page = f.Page.Normalize()
	return s.reader.ListTransactions(ctx, f)
}

func (s *Service) Allocations(ctx context.Context, f ledger.AllocationFilter) ([]ledger.Allocation, int, error) {
	switch f.Status {
	case "", ledger.AllocationActive, ledger.AllocationExpired, ledger.AllocationRecalled, ledger.AllocationSuspended:
	default:
		return nil, 0, fmt.Errorf("%w: unknown allocation status %q", ledger.ErrValidation, f.Status)
	}
	f.Page = f.Page.Normalize()
	return s.reader.ListAllocations(ctx, f)
}

func (s *Service) Reconciliations(ctx context.Context, f ledger.ReconciliationFilter) ([]ledger.ReconciliationRecord, int, error) {
	switch f.Status {
	case "", ledger.ReconciliationSuccessful, ledger.ReconciliationDiscrepancy:
	default:
		return nil, 0, fmt.Errorf("%w: unknown reconciliation status %q", ledger.ErrValidation, f.Status)
	}
	f.Page = f.Page.Normalize()
	return s.reader.ListReconciliations(ctx, f)
}

func (s *Service) Alerts(ctx context.Context, f ledger.AlertFilter) ([]ledger.SecurityAlert, int, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown alert type %q", ledger.ErrValidation, f.Type)
	}
	if f.Severity != "" && !f.Severity.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown severity %q", ledger.ErrValidation, f.Severity)
	}
	f.Page = f.Page.Normalize()
	return s.reader.ListAlerts(ctx, f)
}

func (s *Service) Audit(ctx context.Context, f ledger.AuditFilter) ([]ledger.AuditEntry, int, error) {
	f.Action = strings.ToUpper(strings.TrimSpace(f.Action))
	f.Page = f.Page.Normalize()
	return s.reader.ListAudit(ctx, f)
}

// Summary aggregates a wallet's ledger history around period.
func (s *Service) Summary(ctx context.Context, walletID string, period ledger.TimeRange) (ledger.LedgerSummary, error) {
	return s.reader.Summarize(ctx, walletID, period)
}
