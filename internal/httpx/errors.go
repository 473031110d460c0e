// Package httpx holds the HTTP edge helpers shared by every handler: error
// mapping, query parsing and JSON presenters.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/money"
)

// StatusFor maps a ledger failure kind to an HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, ledger.ErrOverUse),
		errors.Is(err, money.ErrInvalidAmount), errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, ledger.ErrAllocationNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound), errors.Is(err, ledger.ErrAlertNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrWalletNotActive), errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrWalletExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrTransientConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error converts err into a fiber error carrying the mapped status. Internal
// failures are not echoed to the client.
func Error(err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return fiber.NewError(status, "internal error")
	}
	return fiber.NewError(status, err.Error())
}

// ErrorHandler renders every error as {"error": ..., "request_id": ...}.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			logger.ErrorContext(c.UserContext(), "request failed", "path", c.Path(), "error", err)
			msg = "internal error"
		}
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(status).JSON(fiber.Map{
			"error":      msg,
			"request_id": reqID,
		})
	}
}
