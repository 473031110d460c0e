package httpx

import (
	"time"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/money"
)

// Amount renders minor units both raw and as a decimal string.
type Amount struct {
	Minor   int64  `json:"minor"`
	Decimal string `json:"decimal"`
}

// NewAmount presents minor units of currency.
func NewAmount(minor int64, currency string) Amount {
	return Amount{Minor: minor, Decimal: money.FromMinor(minor, currency)}
}

type WalletJSON struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Type                string    `json:"type"`
	Currency            string    `json:"currency"`
	Balance             Amount    `json:"balance"`
	AvailableBalance    Amount    `json:"available_balance"`
	ReserveBalance      Amount    `json:"reserve_balance"`
	SecurityLevel       string    `json:"security_level"`
	Status              string    `json:"status"`
	PerTransactionLimit int64     `json:"per_transaction_limit"`
	DailyLimit          int64     `json:"daily_limit"`
	MonthlyLimit        int64     `json:"monthly_limit"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func Wallet(w ledger.Wallet) WalletJSON {
	return WalletJSON{
		ID:                  w.ID,
		Name:                w.Name,
		Type:                string(w.Type),
		Currency:            w.Currency,
		Balance:             NewAmount(w.Balance, w.Currency),
		AvailableBalance:    NewAmount(w.AvailableBalance, w.Currency),
		ReserveBalance:      NewAmount(w.ReserveBalance, w.Currency),
		SecurityLevel:       string(w.SecurityLevel),
		Status:              string(w.Status),
		PerTransactionLimit: w.Limits.PerTransaction,
		DailyLimit:          w.Limits.Daily,
		MonthlyLimit:        w.Limits.Monthly,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
	}
}

type TransactionJSON struct {
	ID                   string    `json:"id"`
	WalletID             string    `json:"wallet_id"`
	Type                 string    `json:"type"`
	Amount               Amount    `json:"amount"`
	Currency             string    `json:"currency"`
	BalanceBefore        int64     `json:"balance_before"`
	BalanceAfter         int64     `json:"balance_after"`
	Description          string    `json:"description,omitempty"`
	Reference            string    `json:"reference"`
	CounterpartyWalletID string    `json:"counterparty_wallet_id,omitempty"`
	RiskScore            int       `json:"risk_score"`
	RiskLevel            string    `json:"risk_level"`
	Status               string    `json:"status"`
	ProcessedBy          string    `json:"processed_by"`
	CreatedAt            time.Time `json:"created_at"`
}

func Transaction(t ledger.WalletTransaction) TransactionJSON {
	return TransactionJSON{
		ID:                   t.ID,
		WalletID:             t.WalletID,
		Type:                 string(t.Type),
		Amount:               NewAmount(t.Amount, t.Currency),
		Currency:             t.Currency,
		BalanceBefore:        t.BalanceBefore,
		BalanceAfter:         t.BalanceAfter,
		Description:          t.Description,
		Reference:            t.Reference,
		CounterpartyWalletID: t.CounterpartyWalletID,
		RiskScore:            t.RiskScore,
		RiskLevel:            string(t.RiskLevel),
		Status:               string(t.Status),
		ProcessedBy:          t.ProcessedBy,
		CreatedAt:            t.CreatedAt,
	}
}

type AllocationJSON struct {
	ID              string     `json:"id"`
	SourceWalletID  string     `json:"source_wallet_id"`
	TargetID        string     `json:"target_id"`
	Amount          int64      `json:"amount"`
	RemainingAmount int64      `json:"remaining_amount"`
	UsedAmount      int64      `json:"used_amount"`
	ReleasedAmount  int64      `json:"released_amount"`
	Purpose         string     `json:"purpose"`
	Status          string     `json:"status"`
	RequestedBy     string     `json:"requested_by"`
	AllocatedBy     string     `json:"allocated_by"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func Allocation(a ledger.Allocation) AllocationJSON {
	return AllocationJSON{
		ID:              a.ID,
		SourceWalletID:  a.SourceWalletID,
		TargetID:        a.TargetID,
		Amount:          a.Amount,
		RemainingAmount: a.RemainingAmount,
		UsedAmount:      a.UsedAmount,
		ReleasedAmount:  a.ReleasedAmount,
		Purpose:         a.Purpose,
		Status:          string(a.Status),
		RequestedBy:     a.RequestedBy,
		AllocatedBy:     a.AllocatedBy,
		ExpiresAt:       a.ExpiresAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type ReconciliationJSON struct {
	ID               string    `json:"id"`
	WalletID         string    `json:"wallet_id"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	ExpectedBalance  int64     `json:"expected_balance"`
	ActualBalance    int64     `json:"actual_balance"`
	Difference       int64     `json:"difference"`
	TransactionCount int       `json:"transaction_count"`
	TotalDebits      int64     `json:"total_debits"`
	TotalCredits     int64     `json:"total_credits"`
	Status           string    `json:"status"`
	PerformedBy      string    `json:"performed_by"`
	CreatedAt        time.Time `json:"created_at"`
}

func Reconciliation(r ledger.ReconciliationRecord) ReconciliationJSON {
	return ReconciliationJSON{
		ID:               r.ID,
		WalletID:         r.WalletID,
		PeriodStart:      r.PeriodStart,
		PeriodEnd:        r.PeriodEnd,
		ExpectedBalance:  r.ExpectedBalance,
		ActualBalance:    r.ActualBalance,
		Difference:       r.Difference,
		TransactionCount: r.TransactionCount,
		TotalDebits:      r.TotalDebits,
		TotalCredits:     r.TotalCredits,
		Status:           string(r.Status),
		PerformedBy:      r.PerformedBy,
		CreatedAt:        r.CreatedAt,
	}
}

type AlertJSON struct {
	ID             string     `json:"id"`
	WalletID       string     `json:"wallet_id,omitempty"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	Message        string     `json:"message"`
	DetectedAt     time.Time  `json:"detected_at"`
	Resolved       bool       `json:"resolved"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func Alert(a ledger.SecurityAlert) AlertJSON {
	return AlertJSON{
		ID:             a.ID,
		WalletID:       a.WalletID,
		Type:           string(a.Type),
		Severity:       string(a.Severity),
		Message:        a.Message,
		DetectedAt:     a.DetectedAt,
		Resolved:       a.Resolved,
		ResolutionNote: a.ResolutionNote,
		ResolvedBy:     a.ResolvedBy,
		ResolvedAt:     a.ResolvedAt,
	}
}

type AuditJSON struct {
	ID          string    `json:"id"`
	WalletID    string    `json:"wallet_id,omitempty"`
	ActorID     string    `json:"actor_id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type,omitempty"`
	EntityID    string    `json:"entity_id,omitempty"`
	Description string    `json:"description,omitempty"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func Audit(e ledger.AuditEntry) AuditJSON {
	return AuditJSON{
		ID:          e.ID,
		WalletID:    e.WalletID,
		ActorID:     e.ActorID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Description: e.Description,
		RiskLevel:   string(e.RiskLevel),
		CreatedAt:   e.CreatedAt,
	}
}
