package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/alerts"
	"github.com/congo-pay/vault_ledger/internal/reconciliation"
	"github.com/congo-pay/vault_ledger/internal/reporting"
)

// RegisterOversightRoutes wires reconciliation, alerting and the cross-wallet listings.
func RegisterOversightRoutes(r fiber.Router, recon *reconciliation.Handler, al *alerts.Handler, reports *reporting.Handler) {
	r.Post("/reconciliations", recon.Reconcile)
	r.Get("/reconciliations", reports.Reconciliations)

	r.Post("/alerts", al.Raise)
	r.Get("/alerts", reports.Alerts)
	r.Get("/alerts/:alertId", al.Get)
	r.Post("/alerts/:alertId/resolve", al.Resolve)

	r.Get("/transactions", reports.Transactions)
	r.Get("/allocations", reports.Allocations)
	r.Get("/audit", reports.Audit)
}
