// Package allocation reserves wallet funds for branches and other targets and
// tracks how the reservation is used, recalled or expires.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/money"
)

// Manager owns the allocation lifecycle. Reserving and releasing funds is a
// balance-neutral move between available and reserve on the source wallet.
type Manager struct {
	processor *ledger.Processor
	store     ledger.Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager constructs an allocation manager sharing the processor's store
// and retry policy.
func NewManager(processor *ledger.Processor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{processor: processor, store: processor.Store(), logger: logger, now: time.Now}
}

// AllocateInput describes a new reservation.
type AllocateInput struct {
	SourceWalletID string
	TargetID       string
	Amount         int64
	Purpose        string
	RequestedBy    string
	ActorID        string
	ExpiresAt      *time.Time
}

// Allocate moves amount from the source wallet's available balance into its
// reserve and records an active allocation.
func (m *Manager) Allocate(ctx context.Context, in AllocateInput) (ledger.Allocation, error) {
	reject := ledger.AuditInput{
		WalletID:   in.SourceWalletID,
		ActorID:    in.ActorID,
		Action:     ledger.ActionAllocate,
		EntityType: ledger.EntityAllocation,
	}
	now := m.now().UTC()
	switch {
	case strings.TrimSpace(in.SourceWalletID) == "" || strings.TrimSpace(in.TargetID) == "":
		return ledger.Allocation{}, m.rejected(ctx, reject, fmt.Errorf("%w: source wallet and target are required", ledger.ErrValidation))
	case in.Amount <= 0:
		return ledger.Allocation{}, m.rejected(ctx, reject, fmt.Errorf("%w: amount must be positive", ledger.ErrValidation))
	case in.Amount > money.MaxMinor:
		return ledger.Allocation{}, m.rejected(ctx, reject, fmt.Errorf("%w: amount %d is out of range", ledger.ErrValidation, in.Amount))
	case in.ExpiresAt != nil && !in.ExpiresAt.After(now):
		return ledger.Allocation{}, m.rejected(ctx, reject, fmt.Errorf("%w: expiry must be in the future", ledger.ErrValidation))
	}

	alloc := ledger.Allocation{
		ID:              uuid.NewString(),
		SourceWalletID:  in.SourceWalletID,
		TargetID:        in.TargetID,
		Amount:          in.Amount,
		RemainingAmount: in.Amount,
		Purpose:         strings.TrimSpace(in.Purpose),
		Status:          ledger.AllocationActive,
		RequestedBy:     firstNonEmpty(in.RequestedBy, in.ActorID),
		AllocatedBy:     firstNonEmpty(in.ActorID, ledger.SystemActor),
		ExpiresAt:       in.ExpiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	reject.EntityID = alloc.ID

	err := m.processor.Run(ctx, func(tx ledger.Tx) error {
		wallets, err := tx.LockWallets(ctx, in.SourceWalletID)
		if err != nil {
			return err
		}
		w := wallets[in.SourceWalletID]
		if w.Status != ledger.WalletStatusActive {
			return fmt.Errorf("%w: wallet %s is %s", ledger.ErrWalletNotActive, w.ID, w.Status)
		}
		if w.AvailableBalance < in.Amount {
			return fmt.Errorf("%w: wallet %s has %d available, allocation needs %d",
				ledger.ErrInsufficientFunds, w.ID, w.AvailableBalance, in.Amount)
		}
		w.AvailableBalance -= in.Amount
		w.ReserveBalance += in.Amount
		w.UpdatedAt = now
		if err := tx.UpdateWallet(ctx, *w); err != nil {
			return err
		}
		if err := tx.InsertAllocation(ctx, alloc); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(ledger.AuditInput{
			WalletID:    w.ID,
			ActorID:     in.ActorID,
			Action:      ledger.ActionAllocate,
			EntityType:  ledger.EntityAllocation,
			EntityID:    alloc.ID,
			Description: fmt.Sprintf("reserved %d for %s: %s", in.Amount, in.TargetID, alloc.Purpose),
		}, now))
	})
	if err != nil {
		return ledger.Allocation{}, m.rejected(ctx, reject, err)
	}
	return alloc, nil
}

// RecordUsage books used against the allocation's remainder. Used funds stay
// in the source wallet's reserve; only the remainder is ever released.
func (m *Manager) RecordUsage(ctx context.Context, allocationID string, used int64, actorID string) (ledger.Allocation, error) {
	reject := ledger.AuditInput{
		ActorID:    actorID,
		Action:     ledger.ActionRecordUsage,
		EntityType: ledger.EntityAllocation,
		EntityID:   allocationID,
	}
	if used <= 0 {
		return ledger.Allocation{}, m.rejected(ctx, reject, fmt.Errorf("%w: usage must be positive", ledger.ErrValidation))
	}

	var out ledger.Allocation
	err := m.processor.Run(ctx, func(tx ledger.Tx) error {
		alloc, err := tx.GetAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		reject.WalletID = alloc.SourceWalletID
		if alloc.Status != ledger.AllocationActive {
			return fmt.Errorf("%w: allocation %s is %s", ledger.ErrInvalidTransition, alloc.ID, alloc.Status)
		}
		if used > alloc.RemainingAmount {
			return fmt.Errorf("%w: %d requested, %d remaining", ledger.ErrOverUse, used, alloc.RemainingAmount)
		}
		now := m.now().UTC()
		alloc.RemainingAmount -= used
		alloc.UsedAmount += used
		alloc.UpdatedAt = now
		if err := tx.UpdateAllocation(ctx, alloc); err != nil {
			return err
		}
		out = alloc
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(ledger.AuditInput{
			WalletID:    alloc.SourceWalletID,
			ActorID:     actorID,
			Action:      ledger.ActionRecordUsage,
			EntityType:  ledger.EntityAllocation,
			EntityID:    alloc.ID,
			Description: fmt.Sprintf("used %d, %d remaining", used, alloc.RemainingAmount),
		}, now))
	})
	if err != nil {
		return ledger.Allocation{}, m.rejected(ctx, reject, err)
	}
	return out, nil
}

// Recall ends the allocation and releases its remainder to the source
// wallet's available balance.
func (m *Manager) Recall(ctx context.Context, allocationID, actorID string) (ledger.Allocation, error) {
	return m.terminate(ctx, allocationID, actorID, ledger.AllocationRecalled, ledger.ActionRecall)
}

// Suspend blocks usage until the allocation is resumed.
func (m *Manager) Suspend(ctx context.Context, allocationID, actorID string) (ledger.Allocation, error) {
	return m.transition(ctx, allocationID, actorID, ledger.AllocationActive, ledger.AllocationSuspended, ledger.ActionSuspend)
}

// Resume reactivates a suspended allocation.
func (m *Manager) Resume(ctx context.Context, allocationID, actorID string) (ledger.Allocation, error) {
	return m.transition(ctx, allocationID, actorID, ledger.AllocationSuspended, ledger.AllocationActive, ledger.ActionResume)
}

// ExpireDue expires every allocation whose expiry is at or before now and
// reports how many were expired.
func (m *Manager) ExpireDue(ctx context.Context, now time.Time, batch int) (int, error) {
	var due []ledger.Allocation
	if err := m.processor.Run(ctx, func(tx ledger.Tx) error {
		var err error
		due, err = tx.DueAllocations(ctx, now, batch)
		return err
	}); err != nil {
		return 0, err
	}

	expired := 0
	for _, a := range due {
		_, err := m.terminate(ctx, a.ID, ledger.SystemActor, ledger.AllocationExpired, ledger.ActionExpire)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, ledger.ErrInvalidTransition):
			// Recalled concurrently.
		default:
			return expired, fmt.Errorf("expire allocation %s: %w", a.ID, err)
		}
	}
	return expired, nil
}

// Get returns one allocation.
func (m *Manager) Get(ctx context.Context, id string) (ledger.Allocation, error) {
	return m.store.GetAllocation(ctx, id)
}

// List returns allocations matching filter, newest first.
func (m *Manager) List(ctx context.Context, filter ledger.AllocationFilter) ([]ledger.Allocation, int, error) {
	return m.store.ListAllocations(ctx, filter)
}

func (m *Manager) terminate(ctx context.Context, allocationID, actorID string, status ledger.AllocationStatus, action string) (ledger.Allocation, error) {
	reject := ledger.AuditInput{
		ActorID:    actorID,
		Action:     action,
		EntityType: ledger.EntityAllocation,
		EntityID:   allocationID,
	}
	var out ledger.Allocation
	err := m.processor.Run(ctx, func(tx ledger.Tx) error {
		alloc, err := tx.GetAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		reject.WalletID = alloc.SourceWalletID
		if alloc.Status.Terminal() {
			return fmt.Errorf("%w: allocation %s is already %s", ledger.ErrInvalidTransition, alloc.ID, alloc.Status)
		}
		wallets, err := tx.LockWallets(ctx, alloc.SourceWalletID)
		if err != nil {
			return err
		}
		w := wallets[alloc.SourceWalletID]
		now := m.now().UTC()
		release := alloc.RemainingAmount
		if release > w.ReserveBalance {
			return fmt.Errorf("wallet %s reserve %d cannot cover release of %d", w.ID, w.ReserveBalance, release)
		}
		w.ReserveBalance -= release
		w.AvailableBalance += release
		w.UpdatedAt = now
		if err := tx.UpdateWallet(ctx, *w); err != nil {
			return err
		}

		alloc.ReleasedAmount += release
		alloc.RemainingAmount = 0
		alloc.Status = status
		alloc.UpdatedAt = now
		if err := tx.UpdateAllocation(ctx, alloc); err != nil {
			return err
		}
		out = alloc
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(ledger.AuditInput{
			WalletID:    w.ID,
			ActorID:     actorID,
			Action:      action,
			EntityType:  ledger.EntityAllocation,
			EntityID:    alloc.ID,
			Description: fmt.Sprintf("released %d, %d used", release, alloc.UsedAmount),
		}, now))
	})
	if err != nil {
		return ledger.Allocation{}, m.rejected(ctx, reject, err)
	}
	return out, nil
}

func (m *Manager) transition(ctx context.Context, allocationID, actorID string, from, to ledger.AllocationStatus, action string) (ledger.Allocation, error) {
	reject := ledger.AuditInput{
		ActorID:    actorID,
		Action:     action,
		EntityType: ledger.EntityAllocation,
		EntityID:   allocationID,
	}
	var out ledger.Allocation
	err := m.processor.Run(ctx, func(tx ledger.Tx) error {
		alloc, err := tx.GetAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		reject.WalletID = alloc.SourceWalletID
		if alloc.Status != from {
			return fmt.Errorf("%w: allocation %s is %s, expected %s", ledger.ErrInvalidTransition, alloc.ID, alloc.Status, from)
		}
		now := m.now().UTC()
		alloc.Status = to
		alloc.UpdatedAt = now
		if err := tx.UpdateAllocation(ctx, alloc); err != nil {
			return err
		}
		out = alloc
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(ledger.AuditInput{
			WalletID:   alloc.SourceWalletID,
			ActorID:    actorID,
			Action:     action,
			EntityType: ledger.EntityAllocation,
			EntityID:   alloc.ID,
		}, now))
	})
	if err != nil {
		return ledger.Allocation{}, m.rejected(ctx, reject, err)
	}
	return out, nil
}

func (m *Manager) rejected(ctx context.Context, in ledger.AuditInput, err error) error {
	if auditErr := ledger.RecordRejection(ctx, m.store, in, err); auditErr != nil {
		m.logger.ErrorContext(ctx, "record rejection", "action", in.Action, "error", auditErr)
	}
	m.logger.WarnContext(ctx, "allocation operation rejected", "action", in.Action, "allocation_id", in.EntityID, "error", err)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
