// Package payments is the HTTP-facing entry point for ledger movements,
// wallet-to-wallet transfers and reversals.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/notification"
)

// Service forwards payment operations to the transaction processor and
// notifies downstream systems of completed transfers and reversals.
type Service struct {
	processor *ledger.Processor
	notifier  notification.Notifier
	logger    *slog.Logger
}

// NewService constructs a payment service. notifier may be nil.
func NewService(processor *ledger.Processor, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{processor: processor, notifier: notifier, logger: logger}
}

// Move applies a single-wallet movement.
func (s *Service) Move(ctx context.Context, in ledger.MovementInput) (ledger.MovementResult, error) {
	return s.processor.ApplyMovement(ctx, in)
}

// Transfer moves funds between two wallets atomically.
func (s *Service) Transfer(ctx context.Context, in ledger.TransferInput) (ledger.TransferResult, error) {
	res, err := s.processor.ApplyTransfer(ctx, in)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	if !res.Replayed {
		s.notify(ctx, notification.Message{
			Kind:        notification.KindTransferCompleted,
			Destination: in.ToWalletID,
			Body:        fmt.Sprintf("received %d %s from wallet %s", res.Credit.Amount, res.Credit.Currency, in.FromWalletID),
			Attributes: map[string]string{
				"reference": res.Reference,
				"amount":    strconv.FormatInt(res.Credit.Amount, 10),
			},
		})
	}
	return res, nil
}

// Reverse offsets every movement booked under a reference.
func (s *Service) Reverse(ctx context.Context, in ledger.ReverseInput) (ledger.ReverseResult, error) {
	res, err := s.processor.Reverse(ctx, in)
	if err != nil {
		return ledger.ReverseResult{}, err
	}
	if !res.Replayed {
		for _, r := range res.Reversals {
			s.notify(ctx, notification.Message{
				Kind:        notification.KindTransactionReversed,
				Destination: r.WalletID,
				Body:        fmt.Sprintf("reference %s reversed: %d %s", in.Reference, r.Amount, r.Currency),
				Attributes:  map[string]string{"reference": in.Reference},
			})
		}
	}
	return res, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "kind", msg.Kind, "error", err)
	}
}
