package httpx

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/money"
)

// Locals keys set by middleware.
const (
	ActorKey          = "actor_id"
	IdempotencyKeyKey = "idempotency_key"
)

// Actor returns the caller identity placed in the context by the actor
// middleware.
func Actor(c *fiber.Ctx) string {
	actor, _ := c.Locals(ActorKey).(string)
	return actor
}

// IdempotencyKey returns the request's Idempotency-Key, if any.
func IdempotencyKey(c *fiber.Ctx) string {
	key, _ := c.Locals(IdempotencyKeyKey).(string)
	return key
}

// ParsePage reads ?limit= and ?offset=.
func ParsePage(c *fiber.Ctx) ledger.Page {
	return ledger.Page{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}.Normalize()
}

// ParseRange reads RFC 3339 ?from= and ?to= bounds.
func ParseRange(c *fiber.Ctx) (ledger.TimeRange, error) {
	var r ledger.TimeRange
	var err error
	if r.From, err = parseTime(c.Query("from")); err != nil {
		return r, err
	}
	if r.To, err = parseTime(c.Query("to")); err != nil {
		return r, err
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return r, fmt.Errorf("%w: from must be before to", ledger.ErrValidation)
	}
	return r, nil
}

// ParseBool reads an optional boolean query parameter.
func ParseBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		v := true
		return &v, nil
	case "false", "0", "no":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("%w: %s must be a boolean", ledger.ErrValidation, key)
}

// ParseAmount converts a decimal request amount to minor units of currency.
func ParseAmount(raw, currency string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: amount is required", ledger.ErrValidation)
	}
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return money.ToMinor(raw, currency)
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", ledger.ErrValidation, raw)
	}
	return t.UTC(), nil
}

// List is the envelope of every paginated response.
type List[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewList maps items through present and wraps them with paging metadata.
func NewList[S, T any](items []S, total int, page ledger.Page, present func(S) T) List[T] {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, present(item))
	}
	return List[T]{Items: out, Total: total, Limit: page.Limit, Offset: page.Offset}
}
