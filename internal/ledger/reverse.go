package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/congo-pay/vault_ledger/internal/risk"
)

// ReverseInput identifies the movement to offset by its reference.
type ReverseInput struct {
	Reference string
	Reason    string
	ActorID   string
}

// ReverseResult holds the offsetting rows.
type ReverseResult struct {
	Reference string
	Reversals []WalletTransaction
	Replayed  bool
}

// Reverse offsets every row written under in.Reference with a reversal row
// and marks the originals reversed. Original rows are never deleted and their
// amounts and snapshots stay untouched.
func (p *Processor) Reverse(ctx context.Context, in ReverseInput) (ReverseResult, error) {
	reject := AuditInput{
		ActorID:    in.ActorID,
		Action:     ActionReverse,
		EntityType: EntityTransaction,
		EntityID:   in.Reference,
	}
	if strings.TrimSpace(in.Reference) == "" {
		return ReverseResult{}, p.rejected(ctx, reject, validationError("reference is required"))
	}
	reversalRef := ReversalReference(in.Reference)

	var res ReverseResult
	var assessments []risk.Assessment
	err := p.Run(ctx, func(tx Tx) error {
		res = ReverseResult{Reference: reversalRef}
		assessments = assessments[:0]

		originals, err := tx.TransactionsByReference(ctx, in.Reference)
		if err != nil {
			return err
		}
		if len(originals) == 0 {
			return fmt.Errorf("%w: reference %s", ErrTransactionNotFound, in.Reference)
		}
		reject.WalletID = originals[0].WalletID

		ids := make([]string, 0, len(originals))
		for _, o := range originals {
			ids = append(ids, o.WalletID)
		}
		wallets, err := tx.LockWallets(ctx, ids...)
		if err != nil {
			return err
		}

		for _, o := range originals {
			prior, found, err := tx.FindTransaction(ctx, o.WalletID, reversalRef)
			if err != nil {
				return err
			}
			if found {
				res.Reversals = append(res.Reversals, prior)
			}
		}
		if len(res.Reversals) > 0 {
			res.Replayed = true
			return nil
		}

		now := p.now().UTC()
		for _, o := range originals {
			if o.Status != TxStatusCompleted {
				return fmt.Errorf("%w: transaction %s is %s", ErrInvalidTransition, o.ID, o.Status)
			}
			w := wallets[o.WalletID]
			if w.Status == WalletStatusClosed || w.Status == WalletStatusInactive {
				return fmt.Errorf("%w: wallet %s is %s", ErrWalletNotActive, w.ID, w.Status)
			}
			delta := -o.Amount
			if delta < 0 && w.AvailableBalance < -delta {
				return fmt.Errorf("%w: wallet %s has %d available, reversal needs %d",
					ErrInsufficientFunds, w.ID, w.AvailableBalance, -delta)
			}
			if delta > 0 {
				if err := checkCredit(w, delta); err != nil {
					return err
				}
			}

			a := p.scorer.Assess(delta)
			description := "reversal of " + in.Reference
			if in.Reason != "" {
				description += ": " + in.Reason
			}
			row := p.newRow(w, TxReversal, delta, description, reversalRef, in.ActorID, a, now)
			row.CounterpartyWalletID = o.CounterpartyWalletID
			applyDelta(w, delta, now)

			if err := tx.InsertTransaction(ctx, row); err != nil {
				return err
			}
			if err := tx.MarkReversed(ctx, o.ID, now); err != nil {
				return err
			}
			if err := tx.UpdateWallet(ctx, *w); err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, NewAuditEntry(AuditInput{
				WalletID:    w.ID,
				ActorID:     in.ActorID,
				Action:      ActionReverse,
				EntityType:  EntityTransaction,
				EntityID:    row.ID,
				Description: fmt.Sprintf("reversed %s (%d) ref=%s", o.ID, o.Amount, in.Reference),
				RiskLevel:   a.Level,
			}, now)); err != nil {
				return err
			}
			res.Reversals = append(res.Reversals, row)
			assessments = append(assessments, a)
		}
		return nil
	})
	if err != nil {
		return ReverseResult{}, p.rejected(ctx, reject, err)
	}
	if !res.Replayed {
		for i, row := range res.Reversals {
			p.applied(ctx, row, assessments[i])
		}
	}
	return res, nil
}
