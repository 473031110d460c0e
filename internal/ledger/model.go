package ledger

import (
	"time"

	"github.com/congo-pay/vault_ledger/internal/risk"
)

// WalletType classifies the purpose of a custodial wallet.
type WalletType string

const (
	WalletTypeVault             WalletType = "vault"
	WalletTypeBranchAllocation  WalletType = "branch-allocation"
	WalletTypeCustomerFloat     WalletType = "customer-float"
	WalletTypeLoanDisbursement  WalletType = "loan-disbursement"
	WalletTypeReserve           WalletType = "reserve"
	WalletTypeOperational       WalletType = "operational"
	WalletTypeRegulatoryReserve WalletType = "regulatory-reserve"
	WalletTypeEmergency         WalletType = "emergency"
	WalletTypeFeeProfit         WalletType = "fee-profit"
)

// Valid reports whether t is a known wallet type.
func (t WalletType) Valid() bool {
	switch t {
	case WalletTypeVault, WalletTypeBranchAllocation, WalletTypeCustomerFloat,
		WalletTypeLoanDisbursement, WalletTypeReserve, WalletTypeOperational,
		WalletTypeRegulatoryReserve, WalletTypeEmergency, WalletTypeFeeProfit:
		return true
	}
	return false
}

// WalletStatus is the lifecycle state of a wallet. Wallets are never deleted;
// closing is a status transition.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusInactive  WalletStatus = "inactive"
	WalletStatusSuspended WalletStatus = "suspended"
	WalletStatusFrozen    WalletStatus = "frozen"
	WalletStatusClosed    WalletStatus = "closed"
)

// Valid reports whether s is a known wallet status.
func (s WalletStatus) Valid() bool {
	switch s {
	case WalletStatusActive, WalletStatusInactive, WalletStatusSuspended, WalletStatusFrozen, WalletStatusClosed:
		return true
	}
	return false
}

// SecurityLevel drives how closely a wallet is watched by operators.
type SecurityLevel string

const (
	SecurityLevelStandard SecurityLevel = "standard"
	SecurityLevelElevated SecurityLevel = "elevated"
	SecurityLevelMaximum  SecurityLevel = "maximum"
)

// Valid reports whether l is a known security level.
func (l SecurityLevel) Valid() bool {
	switch l {
	case SecurityLevelStandard, SecurityLevelElevated, SecurityLevelMaximum:
		return true
	}
	return false
}

// Limits caps debits out of a wallet. Zero means unlimited.
type Limits struct {
	PerTransaction int64
	Daily          int64
	Monthly        int64
}

// Wallet is the durable balance record of a custodial wallet.
//
// Balance == AvailableBalance + ReserveBalance once an operation settles and
// AvailableBalance never drops below zero.
type Wallet struct {
	ID               string
	Name             string
	Type             WalletType
	Currency         string
	Balance          int64
	AvailableBalance int64
	ReserveBalance   int64
	SecurityLevel    SecurityLevel
	Status           WalletStatus
	Limits           Limits
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Balanced reports whether the balance split holds.
func (w Wallet) Balanced() bool {
	return w.Balance == w.AvailableBalance+w.ReserveBalance && w.AvailableBalance >= 0 && w.ReserveBalance >= 0
}

// TransactionType enumerates ledger movement kinds.
type TransactionType string

const (
	TxCreateWallet             TransactionType = "create-wallet"
	TxFundAllocation           TransactionType = "fund-allocation"
	TxFundTransfer             TransactionType = "fund-transfer"
	TxBranchDisbursement       TransactionType = "branch-disbursement"
	TxCustomerPayout           TransactionType = "customer-payout"
	TxLoanFunding              TransactionType = "loan-funding"
	TxReserveAdjustment        TransactionType = "reserve-adjustment"
	TxReconciliationAdjustment TransactionType = "reconciliation-adjustment"
	TxReversal                 TransactionType = "reversal"
	TxEmergencyWithdrawal      TransactionType = "emergency-withdrawal"
	TxRegulatoryPayment        TransactionType = "regulatory-payment"
	TxCashWithdrawal           TransactionType = "cash-withdrawal"
)

// Direction describes how a transaction type moves a balance.
type Direction int

const (
	DirectionCredit Direction = iota + 1
	DirectionDebit
	// DirectionSigned takes the sign of the supplied amount.
	DirectionSigned
)

// Direction returns the balance direction of t, or 0 for unknown types.
func (t TransactionType) Direction() Direction {
	switch t {
	case TxCreateWallet, TxFundAllocation:
		return DirectionCredit
	case TxBranchDisbursement, TxCustomerPayout, TxLoanFunding,
		TxEmergencyWithdrawal, TxRegulatoryPayment, TxCashWithdrawal:
		return DirectionDebit
	case TxFundTransfer, TxReserveAdjustment, TxReconciliationAdjustment, TxReversal:
		return DirectionSigned
	}
	return 0
}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t.Direction() != 0
}

// signedDelta converts a caller amount into the signed balance change for t.
func (t TransactionType) signedDelta(amount int64) int64 {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	switch t.Direction() {
	case DirectionCredit:
		return abs
	case DirectionDebit:
		return -abs
	default:
		return amount
	}
}

// TransactionStatus is the state of a ledger entry. Only the transition to
// reversed is ever applied to a stored row.
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusReversed  TransactionStatus = "reversed"
)

// WalletTransaction is one immutable ledger entry against one wallet.
type WalletTransaction struct {
	ID                   string
	WalletID             string
	Type                 TransactionType
	Amount               int64
	Currency             string
	BalanceBefore        int64
	BalanceAfter         int64
	Description          string
	Reference            string
	CounterpartyWalletID string
	RiskScore            int
	RiskLevel            risk.Level
	Status               TransactionStatus
	ProcessedBy          string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AllocationStatus is the lifecycle state of an allocation.
type AllocationStatus string

const (
	AllocationActive    AllocationStatus = "active"
	AllocationExpired   AllocationStatus = "expired"
	AllocationRecalled  AllocationStatus = "recalled"
	AllocationSuspended AllocationStatus = "suspended"
)

// Terminal reports whether no further transitions are allowed.
func (s AllocationStatus) Terminal() bool {
	return s == AllocationExpired || s == AllocationRecalled
}

// Allocation reserves funds of a source wallet for a target.
type Allocation struct {
	ID              string
	SourceWalletID  string
	TargetID        string
	Amount          int64
	RemainingAmount int64
	UsedAmount      int64
	ReleasedAmount  int64
	Purpose         string
	Status          AllocationStatus
	RequestedBy     string
	AllocatedBy     string
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReconciliationStatus is the outcome of a reconciliation run.
type ReconciliationStatus string

const (
	ReconciliationSuccessful  ReconciliationStatus = "successful"
	ReconciliationDiscrepancy ReconciliationStatus = "discrepancy"
)

// ReconciliationRecord is the immutable outcome of reconciling one wallet.
type ReconciliationRecord struct {
	ID               string
	WalletID         string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	ExpectedBalance  int64
	ActualBalance    int64
	Difference       int64
	TransactionCount int
	TotalDebits      int64
	TotalCredits     int64
	Status           ReconciliationStatus
	PerformedBy      string
	CreatedAt        time.Time
}

// AlertType enumerates security alert kinds.
type AlertType string

const (
	AlertUnauthorizedAccess     AlertType = "unauthorized-access"
	AlertSuspiciousTransaction  AlertType = "suspicious-transaction"
	AlertLimitExceeded          AlertType = "limit-exceeded"
	AlertMultipleFailedAttempts AlertType = "multiple-failed-attempts"
	AlertUnusualPattern         AlertType = "unusual-pattern"
	AlertSystemBreach           AlertType = "system-breach"
	AlertDataIntegrityIssue     AlertType = "data-integrity-issue"
	AlertComplianceViolation    AlertType = "compliance-violation"
	AlertFraudDetection         AlertType = "fraud-detection"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertUnauthorizedAccess, AlertSuspiciousTransaction, AlertLimitExceeded,
		AlertMultipleFailedAttempts, AlertUnusualPattern, AlertSystemBreach,
		AlertDataIntegrityIssue, AlertComplianceViolation, AlertFraudDetection:
		return true
	}
	return false
}

// Severity grades a security alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// SecurityAlert records an anomaly. Only the resolution fields ever change.
type SecurityAlert struct {
	ID             string
	WalletID       string
	Type           AlertType
	Severity       Severity
	Message        string
	DetectedAt     time.Time
	Resolved       bool
	ResolutionNote string
	ResolvedBy     string
	ResolvedAt     *time.Time
}

// AuditEntry is one append-only record of a state-changing call.
type AuditEntry struct {
	ID          string
	WalletID    string
	ActorID     string
	Action      string
	EntityType  string
	EntityID    string
	Description string
	RiskLevel   risk.Level
	CreatedAt   time.Time
}
