package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// Sweeper rebalances every active portfolio that has drifted.
type Sweeper interface {
	SweepActive(ctx context.Context) ([]domain.RebalanceResult, error)
}

// AfterSweepHook is called after each completed sweep.
type AfterSweepHook interface {
	Export(ctx context.Context, results []domain.RebalanceResult) error
}

// RebalanceWorker periodically sweeps active portfolios.
type RebalanceWorker struct {
	sweeper  Sweeper
	interval time.Duration
	hook     AfterSweepHook // optional
}

// NewRebalanceWorker creates a new RebalanceWorker with an optional post-sweep hook.
func NewRebalanceWorker(sweeper Sweeper, interval time.Duration, hook AfterSweepHook) *RebalanceWorker {
	return &RebalanceWorker{
		sweeper:  sweeper,
		interval: interval,
		hook:     hook,
	}
}

// Run starts the sweep loop. It blocks until the context is cancelled.
// The first sweep waits one interval so a restart does not trade immediately.
func (w *RebalanceWorker) Run(ctx context.Context) {
	slog.Info("RebalanceWorker: starting", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RebalanceWorker: shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RebalanceWorker) sweep(ctx context.Context) {
	results, err := w.sweeper.SweepActive(ctx)
	if err != nil {
		slog.Error("RebalanceWorker: sweep failed", "error", err)
		return
	}

	failed := lo.SumBy(results, func(r domain.RebalanceResult) uint32 { return r.TradesFailed })
	slog.Info("RebalanceWorker: sweep completed", "rebalanced", len(results), "tradesFailed", failed)

	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, results); err != nil {
		slog.Error("RebalanceWorker: export hook failed", "error", err)
	} else {
		slog.Info("RebalanceWorker: export hook completed")
	}
}
