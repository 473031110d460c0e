// Package funding consumes payment-gateway events and books them on the
// ledger. Gateway retries are absorbed by using the external reference as the
// ledger idempotency key.
package funding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// GatewayActor is recorded as the actor of gateway-driven movements.
const GatewayActor = "payment-gateway"

// Service applies gateway events through the transaction processor.
type Service struct {
	processor *ledger.Processor
	logger    *slog.Logger
}

// NewService builds a funding service.
func NewService(processor *ledger.Processor, logger *slog.Logger) (*Service, error) {
	if processor == nil {
		return nil, fmt.Errorf("transaction processor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{processor: processor, logger: logger}, nil
}

// Settlement is a "funds arrived" event.
type Settlement struct {
	ExternalReference   string
	DestinationWalletID string
	Amount              int64
	Currency            string
	Description         string
}

// FundsSettled credits the destination wallet. A retried event returns the
// original entry with Replayed set.
func (s *Service) FundsSettled(ctx context.Context, ev Settlement) (ledger.MovementResult, error) {
	reject := ledger.AuditInput{
		WalletID:   ev.DestinationWalletID,
		ActorID:    GatewayActor,
		Action:     ledger.ActionApplyMovement,
		EntityType: ledger.EntityTransaction,
		EntityID:   ev.ExternalReference,
	}
	if strings.TrimSpace(ev.ExternalReference) == "" {
		return ledger.MovementResult{}, s.rejected(ctx, reject, fmt.Errorf("%w: external reference is required", ledger.ErrValidation))
	}
	if ev.Currency != "" {
		w, err := s.processor.Store().GetWallet(ctx, ev.DestinationWalletID)
		if err != nil {
			return ledger.MovementResult{}, s.rejected(ctx, reject, err)
		}
		if !strings.EqualFold(w.Currency, ev.Currency) {
			return ledger.MovementResult{}, s.rejected(ctx, reject, fmt.Errorf("%w: wallet %s holds %s, settlement is in %s",
				ledger.ErrValidation, w.ID, w.Currency, strings.ToUpper(ev.Currency)))
		}
	}
	if ev.Amount <= 0 {
		return ledger.MovementResult{}, s.rejected(ctx, reject, fmt.Errorf("%w: settled amount must be positive", ledger.ErrValidation))
	}

	desc := strings.TrimSpace(ev.Description)
	if desc == "" {
		desc = "gateway settlement " + ev.ExternalReference
	}
	res, err := s.processor.ApplyMovement(ctx, ledger.MovementInput{
		WalletID:    ev.DestinationWalletID,
		Type:        ledger.TxFundTransfer,
		Amount:      ev.Amount,
		Description: desc,
		ActorID:     GatewayActor,
		Reference:   ev.ExternalReference,
	})
	if err != nil {
		return ledger.MovementResult{}, err
	}
	s.logger.InfoContext(ctx, "gateway settlement booked",
		"reference", ev.ExternalReference, "wallet_id", ev.DestinationWalletID, "replayed", res.Replayed)
	return res, nil
}

// FundsReversed offsets the entries booked under externalReference. The
// original rows are kept and marked reversed.
func (s *Service) FundsReversed(ctx context.Context, externalReference, reason string) (ledger.ReverseResult, error) {
	res, err := s.processor.Reverse(ctx, ledger.ReverseInput{
		Reference: externalReference,
		Reason:    reason,
		ActorID:   GatewayActor,
	})
	if err != nil {
		return ledger.ReverseResult{}, err
	}
	s.logger.InfoContext(ctx, "gateway reversal booked", "reference", externalReference, "replayed", res.Replayed)
	return res, nil
}

func (s *Service) rejected(ctx context.Context, in ledger.AuditInput, err error) error {
	if auditErr := ledger.RecordRejection(ctx, s.processor.Store(), in, err); auditErr != nil {
		s.logger.ErrorContext(ctx, "record rejection", "action", in.Action, "error", auditErr)
	}
	s.logger.WarnContext(ctx, "gateway settlement rejected", "reference", in.EntityID, "wallet_id", in.WalletID, "error", err)
	return err
}
