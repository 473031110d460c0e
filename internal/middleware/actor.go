package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/httpx"
)

const actorHeader = "X-Actor-ID"

// Actor records the calling operator from the X-Actor-ID header. Mutating
// requests without one are refused so every audit entry names its actor.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := strings.TrimSpace(c.Get(actorHeader))
		if actor == "" {
			switch c.Method() {
			case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
				return c.Next()
			}
			return fiber.NewError(http.StatusUnauthorized, "missing "+actorHeader+" header")
		}
		c.Locals(httpx.ActorKey, actor)
		return c.Next()
	}
}
