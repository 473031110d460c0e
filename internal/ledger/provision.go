package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/congo-pay/vault_ledger/internal/money"
	"github.com/congo-pay/vault_ledger/internal/risk"
)

// OpenInput describes a new wallet and its opening balance.
type OpenInput struct {
	Wallet         Wallet
	OpeningBalance int64
	ActorID        string
}

// OpenWallet inserts a wallet and, for a positive opening balance, its
// create-wallet ledger entry in one unit of work.
func (p *Processor) OpenWallet(ctx context.Context, in OpenInput) (Wallet, error) {
	w := in.Wallet
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	reject := AuditInput{
		WalletID:   w.ID,
		ActorID:    in.ActorID,
		Action:     ActionProvisionWallet,
		EntityType: EntityWallet,
		EntityID:   w.ID,
	}
	if in.OpeningBalance < 0 {
		return Wallet{}, p.rejected(ctx, reject, validationError("opening balance cannot be negative"))
	}
	if in.OpeningBalance > money.MaxMinor {
		return Wallet{}, p.rejected(ctx, reject, validationError("opening balance %d is out of range", in.OpeningBalance))
	}

	var (
		row        WalletTransaction
		assessment risk.Assessment
	)
	err := p.Run(ctx, func(tx Tx) error {
		row = WalletTransaction{}
		if _, err := tx.LockWallets(ctx, w.ID); err == nil {
			return fmt.Errorf("%w: %s", ErrWalletExists, w.ID)
		} else if !errors.Is(err, ErrWalletNotFound) {
			return err
		}

		now := p.now().UTC()
		opened := w
		opened.Balance, opened.AvailableBalance, opened.ReserveBalance = 0, 0, 0
		opened.CreatedAt, opened.UpdatedAt = now, now
		if in.OpeningBalance > 0 {
			assessment = p.scorer.Assess(in.OpeningBalance)
			row = p.newRow(&opened, TxCreateWallet, in.OpeningBalance, "opening balance", "open:"+w.ID, in.ActorID, assessment, now)
			applyDelta(&opened, in.OpeningBalance, now)
		}
		if err := tx.InsertWallet(ctx, opened); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, NewAuditEntry(AuditInput{
			WalletID:    opened.ID,
			ActorID:     in.ActorID,
			Action:      ActionProvisionWallet,
			EntityType:  EntityWallet,
			EntityID:    opened.ID,
			Description: fmt.Sprintf("%s wallet %q in %s", opened.Type, opened.Name, opened.Currency),
		}, now)); err != nil {
			return err
		}
		if row.ID != "" {
			if err := tx.InsertTransaction(ctx, row); err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, NewAuditEntry(AuditInput{
				WalletID:    opened.ID,
				ActorID:     in.ActorID,
				Action:      ActionApplyMovement,
				EntityType:  EntityTransaction,
				EntityID:    row.ID,
				Description: fmt.Sprintf("%s %d %s ref=%s", row.Type, row.Amount, row.Currency, row.Reference),
				RiskLevel:   row.RiskLevel,
			}, now)); err != nil {
				return err
			}
		}
		w = opened
		return nil
	})
	if err != nil {
		return Wallet{}, p.rejected(ctx, reject, err)
	}
	if row.ID != "" {
		p.applied(ctx, row, assessment)
	}
	return w, nil
}
