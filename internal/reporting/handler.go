package reporting

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// Handler exposes the reporting listings.
type Handler struct {
	service *Service
}

// NewHandler constructs a reporting handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Transactions lists ledger entries by ?wallet_id, ?reference, ?type,
// ?status and ?from/?to. A :walletId path parameter scopes the listing.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	r, err := httpx.ParseRange(c)
	if err != nil {
		return httpx.Error(err)
	}
	page := httpx.ParsePage(c)
	items, total, err := h.service.Transactions(c.UserContext(), ledger.TransactionFilter{
		WalletID:  walletScope(c),
		Reference: c.Query("reference"),
		Type:      ledger.TransactionType(c.Query("type")),
		Status:    ledger.TransactionStatus(c.Query("status")),
		Range:     r,
		Page:      page,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.NewList(items, total, page, httpx.Transaction))
}

func (h *Handler) Allocations(c *fiber.Ctx) error {
	r, err := httpx.ParseRange(c)
	if err != nil {
		return httpx.Error(err)
	}
	page := httpx.ParsePage(c)
	items, total, err := h.service.Allocations(c.UserContext(), ledger.AllocationFilter{
		SourceWalletID: walletScope(c),
		TargetID:       c.Query("target_id"),
		Status:         ledger.AllocationStatus(c.Query("status")),
		Range:          r,
		Page:           page,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.NewList(items, total, page, httpx.Allocation))
}

func (h *Handler) Reconciliations(c *fiber.Ctx) error {
	r, err := httpx.ParseRange(c)
	if err != nil {
		return httpx.Error(err)
	}
	page := httpx.ParsePage(c)
	items, total, err := h.service.Reconciliations(c.UserContext(), ledger.ReconciliationFilter{
		WalletID: walletScope(c),
		Status:   ledger.ReconciliationStatus(c.Query("status")),
		Range:    r,
		Page:     page,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.NewList(items, total, page, httpx.Reconciliation))
}

// Alerts lists alerts; ?resolved=true|false filters on resolution.
func (h *Handler) Alerts(c *fiber.Ctx) error {
	r, err := httpx.ParseRange(c)
	if err != nil {
		return httpx.Error(err)
	}
	resolved, err := httpx.ParseBool(c, "resolved")
	if err != nil {
		return httpx.Error(err)
	}
	page := httpx.ParsePage(c)
	items, total, err := h.service.Alerts(c.UserContext(), ledger.AlertFilter{
		WalletID: walletScope(c),
		Type:     ledger.AlertType(c.Query("type")),
		Severity: ledger.Severity(c.Query("severity")),
		Resolved: resolved,
		Range:    r,
		Page:     page,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.NewList(items, total, page, httpx.Alert))
}

func (h *Handler) Audit(c *fiber.Ctx) error {
	r, err := httpx.ParseRange(c)
	if err != nil {
		return httpx.Error(err)
	}
	page := httpx.ParsePage(c)
	items, total, err := h.service.Audit(c.UserContext(), ledger.AuditFilter{
		WalletID: walletScope(c),
		ActorID:  c.Query("actor_id"),
		Action:   c.Query("action"),
		Range:    r,
		Page:     page,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.NewList(items, total, page, httpx.Audit))
}

// Summary returns a wallet's opening, period and trailing net over ?from/?to.
func (h *Handler) Summary(c *fiber.Ctx) error {
	r, err := httpx.ParseRange(c)
	if err != nil {
		return httpx.Error(err)
	}
	sum, err := h.service.Summary(c.UserContext(), c.Params("walletId"), r)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(fiber.Map{
		"wallet_id":         c.Params("walletId"),
		"opening":           sum.Opening,
		"period_net":        sum.PeriodNet,
		"trailing_net":      sum.TrailingNet,
		"transaction_count": sum.Count,
		"total_debits":      sum.TotalDebits,
		"total_credits":     sum.TotalCredits,
	})
}

func walletScope(c *fiber.Ctx) string {
	if id := c.Params("walletId"); id != "" {
		return id
	}
	return c.Query("wallet_id")
}
