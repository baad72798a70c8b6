package pipeline

import (
	"context"
	"log/slog"
	"time"

	"shiori/internal/config"
	"shiori/internal/logging"
)

// Daemon runs cycles on the configured interval until its context is
// cancelled. Single-instance execution is already enforced by the catalog
// store's lock file.
type Daemon struct {
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *slog.Logger
}

// NewDaemon wraps an orchestrator in an interval loop.
func NewDaemon(cfg *config.Config, orchestrator *Orchestrator, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Pipeline.CycleIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	return &Daemon{
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logging.NewComponentLogger(logger, "daemon"),
	}
}

// Run executes one cycle immediately, then one per interval. A failed cycle
// is logged and the loop continues; only cancellation stops it.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("daemon started", logging.Duration("interval", d.interval))
	d.runOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopped")
			return ctx.Err()
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := d.orchestrator.RunCycle(ctx); err != nil {
		d.logger.Error("cycle failed", logging.Error(err))
	}
}
