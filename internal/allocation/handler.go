package allocation

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// Handler exposes allocation endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler constructs an allocation handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type allocateRequest struct {
	SourceWalletID string     `json:"source_wallet_id"`
	TargetID       string     `json:"target_id"`
	Amount         int64      `json:"amount"`
	Purpose        string     `json:"purpose"`
	RequestedBy    string     `json:"requested_by"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

type usageRequest struct {
	Amount int64 `json:"amount"`
}

// Allocate reserves funds for a target.
func (h *Handler) Allocate(c *fiber.Ctx) error {
	var req allocateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	alloc, err := h.manager.Allocate(c.UserContext(), AllocateInput{
		SourceWalletID: req.SourceWalletID,
		TargetID:       req.TargetID,
		Amount:         req.Amount,
		Purpose:        req.Purpose,
		RequestedBy:    req.RequestedBy,
		ActorID:        httpx.Actor(c),
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusCreated).JSON(httpx.Allocation(alloc))
}

// RecordUsage books usage against an allocation.
func (h *Handler) RecordUsage(c *fiber.Ctx) error {
	var req usageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	alloc, err := h.manager.RecordUsage(c.UserContext(), c.Params("allocationId"), req.Amount, httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.Allocation(alloc))
}

func (h *Handler) Recall(c *fiber.Ctx) error {
	return h.respond(c, h.manager.Recall)
}

func (h *Handler) Suspend(c *fiber.Ctx) error {
	return h.respond(c, h.manager.Suspend)
}

func (h *Handler) Resume(c *fiber.Ctx) error {
	return h.respond(c, h.manager.Resume)
}

// Get returns one allocation.
func (h *Handler) Get(c *fiber.Ctx) error {
	alloc, err := h.manager.Get(c.UserContext(), c.Params("allocationId"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.Allocation(alloc))
}

func (h *Handler) respond(c *fiber.Ctx, op func(ctx context.Context, id, actor string) (ledger.Allocation, error)) error {
	alloc, err := op(c.UserContext(), c.Params("allocationId"), httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.Allocation(alloc))
}
