package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type movementRequest struct {
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

type transferRequest struct {
	FromWalletID string `json:"from_wallet_id"`
	ToWalletID   string `json:"to_wallet_id"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
	Reference    string `json:"reference"`
}

type reversalRequest struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// Movement applies a movement to the wallet in the path. The body reference
// falls back to the Idempotency-Key header.
func (h *Handler) Movement(c *fiber.Ctx) error {
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Move(c.UserContext(), ledger.MovementInput{
		WalletID:    c.Params("walletId"),
		Type:        ledger.TransactionType(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		ActorID:     httpx.Actor(c),
		Reference:   reference(c, req.Reference),
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(created(res.Replayed)).JSON(httpx.Transaction(res.Transaction))
}

// Transfer moves funds between two wallets.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Transfer(c.UserContext(), ledger.TransferInput{
		FromWalletID: req.FromWalletID,
		ToWalletID:   req.ToWalletID,
		Amount:       req.Amount,
		Description:  req.Description,
		ActorID:      httpx.Actor(c),
		Reference:    reference(c, req.Reference),
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(created(res.Replayed)).JSON(fiber.Map{
		"reference":           res.Reference,
		"from_balance_before": res.FromBalanceBefore,
		"from_balance_after":  res.FromBalanceAfter,
		"to_balance_before":   res.ToBalanceBefore,
		"to_balance_after":    res.ToBalanceAfter,
		"debit":               httpx.Transaction(res.Debit),
		"credit":              httpx.Transaction(res.Credit),
		"replayed":            res.Replayed,
	})
}

// Reverse offsets the movements booked under a reference.
func (h *Handler) Reverse(c *fiber.Ctx) error {
	var req reversalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Reverse(c.UserContext(), ledger.ReverseInput{
		Reference: req.Reference,
		Reason:    req.Reason,
		ActorID:   httpx.Actor(c),
	})
	if err != nil {
		return httpx.Error(err)
	}
	out := make([]httpx.TransactionJSON, 0, len(res.Reversals))
	for _, r := range res.Reversals {
		out = append(out, httpx.Transaction(r))
	}
	return c.Status(created(res.Replayed)).JSON(fiber.Map{
		"reference": res.Reference,
		"reversals": out,
		"replayed":  res.Replayed,
	})
}

func reference(c *fiber.Ctx, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return httpx.IdempotencyKey(c)
}

func created(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
