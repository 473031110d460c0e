package allocation

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepBatch caps how many due allocations one sweep expires.
const DefaultSweepBatch = 100

// Sweeper periodically expires allocations past their expiry.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(manager *Manager, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{manager: manager, interval: interval, batch: DefaultSweepBatch, logger: logger}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("allocation sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("allocation sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.manager.ExpireDue(ctx, time.Now().UTC(), s.batch)
	if err != nil {
		s.logger.Error("expire allocations", "error", err, "expired", n)
		return
	}
	if n > 0 {
		s.logger.Info("allocations expired", "count", n)
	}
}
