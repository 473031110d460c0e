package reconciliation

import (
	"context"
	"log/slog"
	"time"

	"github.com/congo-pay/vault_ledger/internal/ledger"
)

// Scheduler reconciles every active wallet once per interval, covering the
// interval that just elapsed.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs every interval.
func NewScheduler(engine *Engine, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{engine: engine, interval: interval, logger: logger}
}

// Start runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("reconciliation scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconciliation scheduler stopped")
			return
		case tick := <-ticker.C:
			s.run(ctx, tick.UTC())
		}
	}
}

func (s *Scheduler) run(ctx context.Context, end time.Time) {
	records, err := s.engine.ReconcileAll(ctx, end.Add(-s.interval), end, ledger.SystemActor)
	if err != nil {
		s.logger.Error("reconcile wallets", "error", err)
	}
	discrepancies := 0
	for _, r := range records {
		if r.Status == ledger.ReconciliationDiscrepancy {
			discrepancies++
		}
	}
	s.logger.Info("reconciliation run finished", "wallets", len(records), "discrepancies", discrepancies)
}
