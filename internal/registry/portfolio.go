package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/drift"
	"github.com/mtlprog/rebalancer/internal/gateway"
	"github.com/mtlprog/rebalancer/internal/planner"
	"github.com/mtlprog/rebalancer/internal/store"
	"github.com/mtlprog/rebalancer/internal/valuation"
)

// Create stores an active portfolio for owner, replacing any existing one.
func (s *Service) Create(ctx context.Context, caller, owner string, allocations []domain.Allocation, threshold uint32) (domain.Portfolio, error) {
	if err := requireCaller(caller, owner); err != nil {
		return domain.Portfolio{}, err
	}
	if err := domain.ValidateDriftThreshold(threshold); err != nil {
		return domain.Portfolio{}, err
	}
	if err := domain.ValidateAllocations(allocations); err != nil {
		return domain.Portfolio{}, err
	}

	unlock := s.owners.lock(owner)
	defer unlock()

	resolved, err := s.resolveAssets(ctx, allocations)
	if err != nil {
		return domain.Portfolio{}, err
	}

	p := domain.Portfolio{
		Owner:          owner,
		Allocations:    resolved,
		DriftThreshold: threshold,
		LastRebalance:  s.stamp(),
		Active:         true,
	}
	if err := s.store.SavePortfolio(ctx, p); err != nil {
		return domain.Portfolio{}, err
	}
	slog.Info("portfolio created", "owner", owner, "assets", len(resolved), "threshold", domain.FormatBps(uint64(threshold)))
	return p, nil
}

// UpdateAllocations replaces the targets of an existing portfolio.
func (s *Service) UpdateAllocations(ctx context.Context, caller, owner string, allocations []domain.Allocation) (domain.Portfolio, error) {
	return s.mutate(ctx, caller, owner, func(p *domain.Portfolio) error {
		if err := domain.ValidateAllocations(allocations); err != nil {
			return err
		}
		resolved, err := s.resolveAssets(ctx, allocations)
		if err != nil {
			return err
		}
		p.Allocations = resolved
		return nil
	})
}

// UpdateDriftThreshold changes the drift tolerance of an existing portfolio.
func (s *Service) UpdateDriftThreshold(ctx context.Context, caller, owner string, threshold uint32) (domain.Portfolio, error) {
	return s.mutate(ctx, caller, owner, func(p *domain.Portfolio) error {
		if err := domain.ValidateDriftThreshold(threshold); err != nil {
			return err
		}
		p.DriftThreshold = threshold
		return nil
	})
}

// SetActive pauses or resumes a portfolio.
func (s *Service) SetActive(ctx context.Context, caller, owner string, active bool) (domain.Portfolio, error) {
	return s.mutate(ctx, caller, owner, func(p *domain.Portfolio) error {
		p.Active = active
		return nil
	})
}

// mutate runs the owner guard, loads the portfolio under the owner lock,
// applies fn and persists the result.
func (s *Service) mutate(ctx context.Context, caller, owner string, fn func(*domain.Portfolio) error) (domain.Portfolio, error) {
	if err := requireCaller(caller, owner); err != nil {
		return domain.Portfolio{}, err
	}

	unlock := s.owners.lock(owner)
	defer unlock()

	p, err := s.load(ctx, owner)
	if err != nil {
		return domain.Portfolio{}, err
	}
	if err := fn(&p); err != nil {
		return domain.Portfolio{}, err
	}
	if err := s.store.SavePortfolio(ctx, p); err != nil {
		return domain.Portfolio{}, err
	}
	return p, nil
}

// load maps a missing portfolio to Unauthorized.
func (s *Service) load(ctx context.Context, owner string) (domain.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Portfolio{}, fmt.Errorf("%w: no portfolio for %s", domain.ErrUnauthorized, owner)
		}
		return domain.Portfolio{}, err
	}
	return p, nil
}

// Portfolio returns the stored definition of owner's portfolio.
func (s *Service) Portfolio(ctx context.Context, owner string) (domain.Portfolio, error) {
	unlock := s.owners.lock(owner)
	defer unlock()

	return s.load(ctx, owner)
}

// Status is a live view of a portfolio against current balances and prices.
type Status struct {
	Portfolio   domain.Portfolio  `json:"portfolio"`
	TotalValue  uint64            `json:"totalValue"`
	Percentages map[string]uint64 `json:"percentages"`
	Lines       []valuation.Line  `json:"lines"`
	Drift       drift.Report      `json:"drift"`
	At          time.Time         `json:"at"`
}

// Status values the portfolio and reports its per-asset shares and drift.
func (s *Service) Status(ctx context.Context, owner string) (Status, error) {
	unlock := s.owners.lock(owner)
	defer unlock()

	p, err := s.load(ctx, owner)
	if err != nil {
		return Status{}, err
	}
	gw, err := s.gateway(ctx)
	if err != nil {
		return Status{}, err
	}
	balances, prices, err := gateway.Snapshot(ctx, gw, p)
	if err != nil {
		return Status{}, err
	}
	v, err := valuation.Compute(p.Allocations, balances, prices)
	if err != nil {
		return Status{}, err
	}

	report := drift.Report{Reason: drift.ReasonInactive, Threshold: p.DriftThreshold}
	if p.Active {
		report = drift.Evaluate(v, p.DriftThreshold)
	}
	return Status{
		Portfolio:   p,
		TotalValue:  v.Total,
		Percentages: v.Percentages(),
		Lines:       v.Lines,
		Drift:       report,
		At:          s.now(),
	}, nil
}

// NeedsRebalancing reports whether the portfolio drifted past its threshold.
// Inactive portfolios are answered without touching the gateway.
func (s *Service) NeedsRebalancing(ctx context.Context, owner string) (drift.Report, error) {
	unlock := s.owners.lock(owner)
	defer unlock()

	p, err := s.load(ctx, owner)
	if err != nil {
		return drift.Report{}, err
	}
	if !p.Active {
		return drift.Check(p, nil, nil)
	}

	gw, err := s.gateway(ctx)
	if err != nil {
		return drift.Report{}, err
	}
	balances, prices, err := gateway.Snapshot(ctx, gw, p)
	if err != nil {
		return drift.Report{}, err
	}
	return drift.Check(p, balances, prices)
}

// Preview returns the trades a rebalance would submit, without submitting them.
func (s *Service) Preview(ctx context.Context, owner string) ([]domain.TradeIntent, error) {
	unlock := s.owners.lock(owner)
	defer unlock()

	p, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoRebalanceNeeded, drift.ReasonInactive)
	}
	gw, err := s.gateway(ctx)
	if err != nil {
		return nil, err
	}
	balances, prices, err := gateway.Snapshot(ctx, gw, p)
	if err != nil {
		return nil, err
	}
	intents, _, err := planner.Plan(p, balances, prices)
	return intents, err
}
