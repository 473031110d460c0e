package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/payments"
)

// RegisterPaymentRoutes wires balance-moving endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/wallets/:walletId/movements", h.Movement)
	r.Post("/transfers", h.Transfer)
	r.Post("/reversals", h.Reverse)
}
