package alerts

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// Handler exposes security alert endpoints.
type Handler struct {
	monitor *Monitor
}

// NewHandler constructs an alert handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

type raiseRequest struct {
	WalletID string `json:"wallet_id"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type resolveRequest struct {
	Note string `json:"note"`
}

// Raise records an operator-reported alert.
func (h *Handler) Raise(c *fiber.Ctx) error {
	var req raiseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	alert, err := h.monitor.Raise(c.UserContext(), RaiseInput{
		WalletID: req.WalletID,
		Type:     ledger.AlertType(req.Type),
		Severity: ledger.Severity(req.Severity),
		Message:  req.Message,
		ActorID:  httpx.Actor(c),
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusCreated).JSON(httpx.Alert(alert))
}

// Resolve marks an alert resolved.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	alert, err := h.monitor.Resolve(c.UserContext(), c.Params("alertId"), req.Note, httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(httpx.Alert(alert))
}

// Get returns one alert.
func (h *Handler) Get(c *fiber.Ctx) error {
	alert, err := h.monitor.Get(c.UserContext(), c.Params("alertId"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.Alert(alert))
}
