package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/vault_ledger/internal/httpx"
	"github.com/congo-pay/vault_ledger/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *miniredis.Miniredis, *int32) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	var calls int32
	app := fiber.New()
	logger := logging.Discard()
	app.Use(Actor())
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n, "reference": httpx.IdempotencyKey(c)})
	})
	app.Post("/fails", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return fiber.NewError(fiber.StatusBadRequest, "insufficient funds")
	})

	return app, mr, &calls
}

func post(t *testing.T, app *fiber.App, path, key, actor string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode, string(body)
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	app, _, calls := setupTestApp(t)

	for i := 0; i < 2; i++ {
		status, _ := post(t, app, "/resource", "", "teller")
		if status != fiber.StatusCreated {
			t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
		}
	}
	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, _, calls := setupTestApp(t)

	status, payload := post(t, app, "/resource", "abc123", "teller")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	// Second request should return the cached response without invoking handler again.
	status, cached := post(t, app, "/resource", "abc123", "teller")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cached != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cached)
	}
	if *calls != 1 {
		t.Fatalf("expected one handler call, got %d", *calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
	if decoded["reference"] != "abc123" {
		t.Fatalf("expected handler to see the key as reference, got %v", decoded["reference"])
	}
}

func TestIdempotencyScopesKeysByActor(t *testing.T) {
	app, _, calls := setupTestApp(t)

	post(t, app, "/resource", "shared", "teller-1")
	post(t, app, "/resource", "shared", "teller-2")
	if *calls != 2 {
		t.Fatalf("expected keys scoped per actor, handler ran %d times", *calls)
	}
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	app, mr, calls := setupTestApp(t)

	if err := mr.Set(idempotencyPrefix+"teller:POST:/resource:busy", inProgressMarker); err != nil {
		t.Fatalf("seed marker: %v", err)
	}
	status, _ := post(t, app, "/resource", "busy", "teller")
	if status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
	if *calls != 0 {
		t.Fatalf("handler must not run for in-flight duplicates")
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	app, mr, calls := setupTestApp(t)

	for i := 0; i < 2; i++ {
		status, _ := post(t, app, "/fails", "retry-me", "teller")
		if status != fiber.StatusBadRequest {
			t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
		}
	}
	if *calls != 2 {
		t.Fatalf("expected failed requests to be retried, handler ran %d times", *calls)
	}
	if mr.Exists(idempotencyPrefix + "teller:POST:/fails:retry-me") {
		t.Fatalf("failed response must not be stored")
	}
}

func TestActorRequiredForWrites(t *testing.T) {
	app, _, _ := setupTestApp(t)

	status, _ := post(t, app, "/resource", "", "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, status)
	}
}
