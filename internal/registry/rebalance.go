package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/gateway"
	"github.com/mtlprog/rebalancer/internal/planner"
)

// Rebalance trades owner's portfolio back to its targets.
// Venue failures do not fail the call; they are reported in TradesFailed.
func (s *Service) Rebalance(ctx context.Context, caller, owner string) (domain.RebalanceResult, error) {
	if err := requireCaller(caller, owner); err != nil {
		return domain.RebalanceResult{}, err
	}

	unlock := s.owners.lock(owner)
	defer unlock()

	return s.rebalance(ctx, owner)
}

// rebalance runs the flow for owner. Callers hold the owner lock.
func (s *Service) rebalance(ctx context.Context, owner string) (domain.RebalanceResult, error) {
	started := time.Now()
	invokedAt := s.stamp()

	p, err := s.load(ctx, owner)
	if err != nil {
		return domain.RebalanceResult{}, err
	}
	if !p.Active {
		return domain.RebalanceResult{}, fmt.Errorf("%w: portfolio of %s is inactive", domain.ErrUnauthorized, owner)
	}

	gw, err := s.gateway(ctx)
	if err != nil {
		return domain.RebalanceResult{}, err
	}
	balances, prices, err := gateway.Snapshot(ctx, gw, p)
	if err != nil {
		return domain.RebalanceResult{}, err
	}
	intents, _, err := planner.Plan(p, balances, prices)
	if err != nil {
		return domain.RebalanceResult{}, err
	}

	// Once trading starts the run completes even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)
	exec := planner.Execute(runCtx, s.venue, owner, intents)

	p.LastRebalance = invokedAt
	if err := s.store.SavePortfolio(runCtx, p); err != nil {
		return domain.RebalanceResult{}, fmt.Errorf("recording rebalance of %s: %w", owner, err)
	}

	result := domain.RebalanceResult{
		ID:             uuid.New(),
		Owner:          owner,
		TradesPlanned:  uint32(len(intents)),
		TradesExecuted: exec.Executed,
		TradesFailed:   exec.Failed,
		Elapsed:        time.Since(started),
		Timestamp:      invokedAt,
	}

	log := slog.Info
	if exec.Failed > 0 {
		log = slog.Warn
	}
	log("portfolio rebalanced",
		"id", result.ID,
		"owner", owner,
		"planned", result.TradesPlanned,
		"executed", result.TradesExecuted,
		"failed", result.TradesFailed,
		"elapsed", result.Elapsed)

	return result, nil
}

// SweepActive rebalances every active portfolio that has drifted.
// Per-owner failures are logged and do not stop the sweep.
func (s *Service) SweepActive(ctx context.Context) ([]domain.RebalanceResult, error) {
	if _, err := s.gateway(ctx); err != nil {
		return nil, err
	}

	owners, err := s.store.ListActiveOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active portfolios: %w", err)
	}

	var results []domain.RebalanceResult
	for _, owner := range owners {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		result, err := s.sweepOne(ctx, owner)
		switch {
		case err == nil:
			results = append(results, result)
		case errors.Is(err, domain.ErrNoRebalanceNeeded), errors.Is(err, domain.ErrUnauthorized):
			slog.Debug("sweep skipped portfolio", "owner", owner, "reason", err)
		default:
			slog.Error("sweep failed to rebalance portfolio", "owner", owner, "error", err)
		}
	}

	return results, nil
}

func (s *Service) sweepOne(ctx context.Context, owner string) (domain.RebalanceResult, error) {
	unlock := s.owners.lock(owner)
	defer unlock()

	return s.rebalance(ctx, owner)
}
