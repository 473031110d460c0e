package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/vault_ledger/internal/alerts"
	"github.com/congo-pay/vault_ledger/internal/allocation"
	"github.com/congo-pay/vault_ledger/internal/config"
	"github.com/congo-pay/vault_ledger/internal/funding"
	"github.com/congo-pay/vault_ledger/internal/ledger"
	"github.com/congo-pay/vault_ledger/internal/metrics"
	"github.com/congo-pay/vault_ledger/internal/middleware"
	"github.com/congo-pay/vault_ledger/internal/notification"
	"github.com/congo-pay/vault_ledger/internal/payments"
	"github.com/congo-pay/vault_ledger/internal/reconciliation"
	"github.com/congo-pay/vault_ledger/internal/reporting"
	"github.com/congo-pay/vault_ledger/internal/risk"
	"github.com/congo-pay/vault_ledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Store overrides the ledger backend. When nil it is derived from DB.
	Store ledger.Store
}

// Workers are the background loops that share the ledger wiring with the routes.
type Workers struct {
	Sweeper   *allocation.Sweeper
	Scheduler *reconciliation.Scheduler
}

// Start runs every worker until ctx is cancelled.
func (w *Workers) Start(ctx context.Context) {
	if w == nil {
		return
	}
	go w.Sweeper.Start(ctx)
	go w.Scheduler.Start(ctx)
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Workers, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() && d.Store == nil {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	store := d.Store
	if store == nil {
		if d.DB != nil {
			pg := ledger.NewPostgresStore(d.DB)
			if err := pg.Migrate(context.Background()); err != nil {
				return nil, fmt.Errorf("migrate ledger: %w", err)
			}
			store = pg
		} else {
			store = ledger.NewInMemory()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	notifiers := notification.Multi{notification.NewLoggerNotifier(d.Logger)}
	if d.Cache != nil {
		notifiers = append(notifiers, notification.NewRedisPublisher(d.Cache, ""))
	}

	monitor := alerts.NewMonitor(store, notifiers, d.Logger)
	monitor.SetMetrics(recorder)
	processor := ledger.NewProcessor(store, risk.NewScorer(),
		ledger.WithAlerts(monitor),
		ledger.WithMetrics(recorder),
		ledger.WithLogger(d.Logger),
		ledger.WithMaxRetries(d.Cfg.LedgerMaxRetries),
	)
	engine := reconciliation.NewEngine(store, monitor, d.Logger)
	engine.SetMetrics(recorder)
	manager := allocation.NewManager(processor, d.Logger)

	walletSvc := wallet.NewService(processor, d.Logger)
	paymentSvc := payments.NewService(processor, notifiers, d.Logger)
	fundingSvc, err := funding.NewService(processor, d.Logger)
	if err != nil {
		return nil, err
	}
	reportingSvc := reporting.NewService(store)

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID(d.Logger))
	app.Use(middleware.Actor())
	app.Use(recorder.Middleware())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMin))
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health and scraping
	RegisterHealthRoutes(app, d)
	app.Get("/metrics", recorder.Handler())

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	reportingHandler := reporting.NewHandler(reportingSvc)
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc), reportingHandler)
	RegisterPaymentRoutes(api, payments.NewHandler(paymentSvc))
	RegisterAllocationRoutes(api, allocation.NewHandler(manager))
	RegisterOversightRoutes(api, reconciliation.NewHandler(engine), alerts.NewHandler(monitor), reportingHandler)
	RegisterFundingRoutes(api, funding.NewHandler(fundingSvc))

	interval := d.Cfg.AllocationSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	every := d.Cfg.ReconcileInterval
	if every <= 0 {
		every = 24 * time.Hour
	}
	return &Workers{
		Sweeper:   allocation.NewSweeper(manager, interval, d.Logger),
		Scheduler: reconciliation.NewScheduler(engine, every, d.Logger),
	}, nil
}
