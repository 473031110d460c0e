package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/funding"
)

// RegisterFundingRoutes wires payment gateway callbacks.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	group := r.Group("/gateway")
	group.Post("/settlements", h.Settled)
	group.Post("/reversals", h.Reversed)
}
