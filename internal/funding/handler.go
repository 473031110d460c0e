package funding

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
)

// Handler exposes the payment-gateway callback endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Settled books a "funds arrived" callback. Replays answer 200.
func (h *Handler) Settled(c *fiber.Ctx) error {
	var req SettlementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := httpx.ParseAmount(req.Amount, req.Currency)
	if err != nil {
		return httpx.Error(err)
	}

	res, err := h.service.FundsSettled(c.UserContext(), Settlement{
		ExternalReference:   req.ExternalReference,
		DestinationWalletID: req.DestinationWalletID,
		Amount:              amount,
		Currency:            req.Currency,
		Description:         req.Description,
	})
	if err != nil {
		return httpx.Error(err)
	}

	balance := res.Transaction.BalanceAfter
	return c.Status(statusFor(res.Replayed)).JSON(EventResponse{
		ExternalReference: req.ExternalReference,
		TransactionIDs:    []string{res.Transaction.ID},
		WalletBalance:     &balance,
		Replayed:          res.Replayed,
	})
}

// Reversed books a "funds reversed" callback. Replays answer 200.
func (h *Handler) Reversed(c *fiber.Ctx) error {
	var req ReversalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.FundsReversed(c.UserContext(), req.ExternalReference, req.Reason)
	if err != nil {
		return httpx.Error(err)
	}

	ids := make([]string, 0, len(res.Reversals))
	for _, r := range res.Reversals {
		ids = append(ids, r.ID)
	}
	return c.Status(statusFor(res.Replayed)).JSON(EventResponse{
		ExternalReference: req.ExternalReference,
		TransactionIDs:    ids,
		Replayed:          res.Replayed,
	})
}

func statusFor(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
