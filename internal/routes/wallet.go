package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/reporting"
	"github.com/congo-pay/vault_ledger/internal/wallet"
)

// RegisterWalletRoutes wires wallet provisioning and per-wallet reads.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, reports *reporting.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets", h.List)
	r.Get("/wallets/:walletId", h.Get)
	r.Get("/wallets/:walletId/balance", h.Balance)
	r.Patch("/wallets/:walletId/status", h.ChangeStatus)
	r.Patch("/wallets/:walletId/limits", h.UpdateLimits)

	r.Get("/wallets/:walletId/transactions", reports.Transactions)
	r.Get("/wallets/:walletId/allocations", reports.Allocations)
	r.Get("/wallets/:walletId/reconciliations", reports.Reconciliations)
	r.Get("/wallets/:walletId/alerts", reports.Alerts)
	r.Get("/wallets/:walletId/audit", reports.Audit)
	r.Get("/wallets/:walletId/summary", reports.Summary)
}
