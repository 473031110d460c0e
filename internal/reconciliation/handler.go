package reconciliation

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
)

// Handler exposes reconciliation endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a reconciliation handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type reconcileRequest struct {
	WalletID    string    `json:"wallet_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Reconcile runs a reconciliation for one wallet.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	var req reconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.engine.Reconcile(c.UserContext(), req.WalletID, req.PeriodStart, req.PeriodEnd, httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusCreated).JSON(httpx.Reconciliation(rec))
}
