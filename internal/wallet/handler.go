package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type limitsRequest struct {
	PerTransaction int64 `json:"per_transaction"`
	Daily          int64 `json:"daily"`
	Monthly        int64 `json:"monthly"`
}

func (l limitsRequest) limits() ledger.Limits {
	return ledger.Limits{PerTransaction: l.PerTransaction, Daily: l.Daily, Monthly: l.Monthly}
}

type createRequest struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Type           string        `json:"type"`
	Currency       string        `json:"currency"`
	SecurityLevel  string        `json:"security_level"`
	OpeningBalance string        `json:"opening_balance"`
	Limits         limitsRequest `json:"limits"`
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Create provisions a wallet. opening_balance is a decimal string in the
// wallet's currency.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var opening int64
	if req.OpeningBalance != "" {
		var err error
		if opening, err = httpx.ParseAmount(req.OpeningBalance, req.Currency); err != nil {
			return httpx.Error(err)
		}
	}
	w, err := h.service.Provision(c.UserContext(), ProvisionInput{
		ID:             req.ID,
		Name:           req.Name,
		Type:           ledger.WalletType(req.Type),
		Currency:       req.Currency,
		SecurityLevel:  ledger.SecurityLevel(req.SecurityLevel),
		Limits:         req.Limits.limits(),
		OpeningBalance: opening,
		ActorID:        httpx.Actor(c),
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusCreated).JSON(httpx.Wallet(w))
}

// Get returns one wallet.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.Wallet(w))
}

// List returns wallets filtered by ?type= and ?status=.
func (h *Handler) List(c *fiber.Ctx) error {
	page := httpx.ParsePage(c)
	items, total, err := h.service.List(c.UserContext(), ledger.WalletFilter{
		Type:   ledger.WalletType(c.Query("type")),
		Status: ledger.WalletStatus(c.Query("status")),
		Page:   page,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.NewList(items, total, page, httpx.Wallet))
}

// Balance returns the wallet balance split.
func (h *Handler) Balance(c *fiber.Ctx) error {
	b, err := h.service.Balance(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id": b.WalletID,
		"balance":   httpx.NewAmount(b.Total, b.Currency),
		"available": httpx.NewAmount(b.Available, b.Currency),
		"reserved":  httpx.NewAmount(b.Reserved, b.Currency),
		"timestamp": b.AsOf,
	})
}

// ChangeStatus transitions the wallet status.
func (h *Handler) ChangeStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.ChangeStatus(c.UserContext(), c.Params("walletId"), ledger.WalletStatus(req.Status), req.Reason, httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.Wallet(w))
}

// UpdateLimits replaces the wallet debit limits (minor units, 0 = unlimited).
func (h *Handler) UpdateLimits(c *fiber.Ctx) error {
	var req limitsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.UpdateLimits(c.UserContext(), c.Params("walletId"), req.limits(), httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(httpx.Wallet(w))
}
