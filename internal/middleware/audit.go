package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
	"github.com/congo-pay/vault_ledger/internal/logging"
)

// Audit emits structured logs for each request/response lifecycle event.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		duration := time.Since(start)
		requestID, _ := c.Locals(requestIDHeader).(string)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		}
		if actor := httpx.Actor(c); actor != "" {
			attrs = append(attrs, slog.String("actor_id", actor))
		}
		fallback := logger
		if requestID != "" {
			fallback = logger.With(slog.String("request_id", requestID))
		}
		reqLogger := logging.FromContext(c.UserContext(), fallback)
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			reqLogger.Error("request completed", attrs...)
			return err
		}

		reqLogger.Info("request completed", attrs...)
		return nil
	}
}
