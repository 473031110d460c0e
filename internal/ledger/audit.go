package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/vault_ledger/internal/risk"
)

// Audit actions written by the ledger core and its callers.
const (
	ActionApplyMovement   = "APPLY_MOVEMENT"
	ActionApplyTransfer   = "APPLY_TRANSFER"
	ActionTransferOut     = "TRANSFER_OUT"
	ActionTransferIn      = "TRANSFER_IN"
	ActionReverse         = "REVERSE_TRANSACTION"
	ActionProvisionWallet = "PROVISION_WALLET"
	ActionChangeStatus    = "CHANGE_WALLET_STATUS"
	ActionUpdateLimits    = "UPDATE_WALLET_LIMITS"
	ActionAllocate        = "ALLOCATE_FUNDS"
	ActionRecordUsage     = "RECORD_ALLOCATION_USAGE"
	ActionRecall          = "RECALL_ALLOCATION"
	ActionExpire          = "EXPIRE_ALLOCATION"
	ActionSuspend         = "SUSPEND_ALLOCATION"
	ActionResume          = "RESUME_ALLOCATION"
	ActionReconcile       = "RECONCILE_WALLET"
	ActionRaiseAlert      = "RAISE_ALERT"
	ActionResolveAlert    = "RESOLVE_ALERT"

	RejectedSuffix = "_REJECTED"
	SystemActor    = "system"
)

// Entity types referenced by audit entries.
const (
	EntityWallet         = "wallet"
	EntityTransaction    = "wallet_transaction"
	EntityAllocation     = "allocation"
	EntityReconciliation = "reconciliation"
	EntitySecurityAlert  = "security_alert"
)

// AuditInput describes one audit entry before it is stamped.
type AuditInput struct {
	WalletID    string
	ActorID     string
	Action      string
	EntityType  string
	EntityID    string
	Description string
	RiskLevel   risk.Level
}

// NewAuditEntry stamps an id and creation time onto in.
func NewAuditEntry(in AuditInput, at time.Time) AuditEntry {
	actor := in.ActorID
	if actor == "" {
		actor = SystemActor
	}
	return AuditEntry{
		ID:          uuid.NewString(),
		WalletID:    in.WalletID,
		ActorID:     actor,
		Action:      in.Action,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Description: in.Description,
		RiskLevel:   in.RiskLevel,
		CreatedAt:   at.UTC(),
	}
}

// RecordRejection appends the single audit entry of a rejected call. The
// unit of work has already rolled back, so the entry is written on its own.
func RecordRejection(ctx context.Context, store Store, in AuditInput, cause error) error {
	in.Action += RejectedSuffix
	if cause != nil {
		in.Description = cause.Error()
	}
	// A caller that gave up must not lose the rejection record.
	return store.AppendAudit(context.WithoutCancel(ctx), NewAuditEntry(in, time.Now()))
}
