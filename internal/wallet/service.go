// Package wallet provisions custodial wallets and manages their status and
// limits. Balance changes go through the ledger processor only.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/money"
)

// Service exposes wallet operations backed by the ledger.
type Service struct {
	processor *ledger.Processor
	store     ledger.Store
	logger    *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(processor *ledger.Processor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{processor: processor, store: processor.Store(), logger: logger}
}

// Provision opens a wallet. A positive opening balance is recorded as a
// create-wallet ledger entry so reconciliation sees it.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (ledger.Wallet, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = money.DefaultCurrency
	}
	level := in.SecurityLevel
	if level == "" {
		level = ledger.SecurityLevelStandard
	}

	if err := validateProvision(in, currency, level); err != nil {
		return ledger.Wallet{}, s.rejected(ctx, ledger.AuditInput{
			WalletID:   in.ID,
			ActorID:    in.ActorID,
			Action:     ledger.ActionProvisionWallet,
			EntityType: ledger.EntityWallet,
			EntityID:   in.ID,
		}, err)
	}

	return s.processor.OpenWallet(ctx, ledger.OpenInput{
		Wallet: ledger.Wallet{
			ID:            strings.TrimSpace(in.ID),
			Name:          strings.TrimSpace(in.Name),
			Type:          in.Type,
			Currency:      currency,
			SecurityLevel: level,
			Status:        ledger.WalletStatusActive,
			Limits:        in.Limits,
		},
		OpeningBalance: in.OpeningBalance,
		ActorID:        in.ActorID,
	})
}

// Get retrieves one wallet.
func (s *Service) Get(ctx context.Context, id string) (ledger.Wallet, error) {
	return s.store.GetWallet(ctx, id)
}

// List returns wallets matching filter.
func (s *Service) List(ctx context.Context, filter ledger.WalletFilter) ([]ledger.Wallet, int, error) {
	return s.store.ListWallets(ctx, filter)
}

// Balance returns the wallet's current balance split.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	w, err := s.store.GetWallet(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		WalletID:  w.ID,
		Currency:  w.Currency,
		Total:     w.Balance,
		Available: w.AvailableBalance,
		Reserved:  w.ReserveBalance,
		AsOf:      time.Now().UTC(),
	}, nil
}

// ChangeStatus moves a wallet to status. Closed is terminal and a wallet
// can only be closed once its balance is zero.
func (s *Service) ChangeStatus(ctx context.Context, id string, status ledger.WalletStatus, reason, actorID string) (ledger.Wallet, error) {
	audit := ledger.AuditInput{
		WalletID:   id,
		ActorID:    actorID,
		Action:     ledger.ActionChangeStatus,
		EntityType: ledger.EntityWallet,
		EntityID:   id,
	}
	if !status.Valid() {
		return ledger.Wallet{}, s.rejected(ctx, audit, fmt.Errorf("%w: unknown status %q", ledger.ErrValidation, status))
	}

	var out ledger.Wallet
	err := s.processor.Run(ctx, func(tx ledger.Tx) error {
		wallets, err := tx.LockWallets(ctx, id)
		if err != nil {
			return err
		}
		w := wallets[id]
		switch {
		case w.Status == ledger.WalletStatusClosed:
			return fmt.Errorf("%w: wallet %s is closed", ledger.ErrInvalidTransition, id)
		case w.Status == status:
			return fmt.Errorf("%w: wallet %s is already %s", ledger.ErrInvalidTransition, id, status)
		case status == ledger.WalletStatusClosed && w.Balance != 0:
			return fmt.Errorf("%w: wallet %s still holds %d", ledger.ErrInvalidTransition, id, w.Balance)
		}
		now := time.Now().UTC()
		from := w.Status
		w.Status = status
		w.UpdatedAt = now
		if err := tx.UpdateWallet(ctx, *w); err != nil {
			return err
		}
		out = *w
		desc := fmt.Sprintf("%s -> %s", from, status)
		if r := strings.TrimSpace(reason); r != "" {
			desc += ": " + r
		}
		entry := audit
		entry.Description = desc
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(entry, now))
	})
	if err != nil {
		return ledger.Wallet{}, s.rejected(ctx, audit, err)
	}
	s.logger.InfoContext(ctx, "wallet status changed", "wallet_id", id, "status", status, "actor_id", actorID)
	return out, nil
}

// UpdateLimits replaces the wallet's debit limits. Zero disables a limit.
func (s *Service) UpdateLimits(ctx context.Context, id string, limits ledger.Limits, actorID string) (ledger.Wallet, error) {
	audit := ledger.AuditInput{
		WalletID:   id,
		ActorID:    actorID,
		Action:     ledger.ActionUpdateLimits,
		EntityType: ledger.EntityWallet,
		EntityID:   id,
	}
	if limits.PerTransaction < 0 || limits.Daily < 0 || limits.Monthly < 0 {
		return ledger.Wallet{}, s.rejected(ctx, audit, fmt.Errorf("%w: limits cannot be negative", ledger.ErrValidation))
	}

	var out ledger.Wallet
	err := s.processor.Run(ctx, func(tx ledger.Tx) error {
		wallets, err := tx.LockWallets(ctx, id)
		if err != nil {
			return err
		}
		w := wallets[id]
		if w.Status == ledger.WalletStatusClosed {
			return fmt.Errorf("%w: wallet %s is closed", ledger.ErrWalletNotActive, id)
		}
		now := time.Now().UTC()
		w.Limits = limits
		w.UpdatedAt = now
		if err := tx.UpdateWallet(ctx, *w); err != nil {
			return err
		}
		out = *w
		entry := audit
		entry.Description = fmt.Sprintf("per-transaction=%d daily=%d monthly=%d", limits.PerTransaction, limits.Daily, limits.Monthly)
		return tx.AppendAudit(ctx, ledger.NewAuditEntry(entry, now))
	})
	if err != nil {
		return ledger.Wallet{}, s.rejected(ctx, audit, err)
	}
	return out, nil
}

func validateProvision(in ProvisionInput, currency string, level ledger.SecurityLevel) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ledger.ErrValidation)
	case !in.Type.Valid():
		return fmt.Errorf("%w: unknown wallet type %q", ledger.ErrValidation, in.Type)
	case len(currency) != 3:
		return fmt.Errorf("%w: currency must be an ISO 4217 code", ledger.ErrValidation)
	case !level.Valid():
		return fmt.Errorf("%w: unknown security level %q", ledger.ErrValidation, level)
	case in.OpeningBalance < 0:
		return fmt.Errorf("%w: opening balance cannot be negative", ledger.ErrValidation)
	case in.Limits.PerTransaction < 0 || in.Limits.Daily < 0 || in.Limits.Monthly < 0:
		return fmt.Errorf("%w: limits cannot be negative", ledger.ErrValidation)
	}
	return nil
}

func (s *Service) rejected(ctx context.Context, in ledger.AuditInput, err error) error {
	if auditErr := ledger.RecordRejection(ctx, s.store, in, err); auditErr != nil {
		s.logger.ErrorContext(ctx, "record rejection", "action", in.Action, "error", auditErr)
	}
	return err
}
