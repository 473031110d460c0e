package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/allocation"
)

// RegisterAllocationRoutes wires the allocation lifecycle.
func RegisterAllocationRoutes(r fiber.Router, h *allocation.Handler) {
	group := r.Group("/allocations")
	group.Post("/", h.Allocate)
	group.Get("/:allocationId", h.Get)
	group.Post("/:allocationId/usage", h.RecordUsage)
	group.Post("/:allocationId/recall", h.Recall)
	group.Post("/:allocationId/suspend", h.Suspend)
	group.Post("/:allocationId/resume", h.Resume)
}
