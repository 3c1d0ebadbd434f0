// Package drift decides whether a portfolio has moved far enough from its
// target weights to warrant a rebalance.
package drift

import (
	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/valuation"
)

// Violation describes the allocation that triggered a rebalance.
type Violation struct {
	Asset      domain.Asset `json:"asset"`
	CurrentBps uint64       `json:"currentBps"`
	TargetBps  uint64       `json:"targetBps"`
	DriftBps   uint64       `json:"driftBps"`
}

// Report is the outcome of a drift check.
// MaxDrift covers only the allocations evaluated before the first violation.
type Report struct {
	Needed    bool                 `json:"needed"`
	Reason    string               `json:"reason"`
	Threshold uint32               `json:"threshold"`
	MaxDrift  uint64               `json:"maxDrift"`
	Violation *Violation           `json:"violation,omitempty"`
	Valuation *valuation.Valuation `json:"-"`
}

const (
	ReasonInactive        = "inactive"
	ReasonWithinThreshold = "within threshold"
	ReasonDrifted         = "drift exceeds threshold"
)

// Check evaluates the portfolio against its drift threshold.
// Inactive portfolios never need rebalancing and are not valued.
func Check(p domain.Portfolio, balances domain.BalanceSnapshot, prices domain.PriceSet) (Report, error) {
	if !p.Active {
		return Report{Reason: ReasonInactive, Threshold: p.DriftThreshold}, nil
	}

	v, err := valuation.Compute(p.Allocations, balances, prices)
	if err != nil {
		return Report{}, err
	}

	return Evaluate(v, p.DriftThreshold), nil
}

// Evaluate applies the threshold to an existing valuation.
// The first line whose drift exceeds the threshold stops evaluation.
func Evaluate(v valuation.Valuation, threshold uint32) Report {
	report := Report{Reason: ReasonWithinThreshold, Threshold: threshold, Valuation: &v}

	for _, line := range v.Lines {
		d := domain.AbsDiff(line.CurrentBps, line.TargetBps)
		report.MaxDrift = max(report.MaxDrift, d)

		if d > uint64(threshold) {
			report.Needed = true
			report.Reason = ReasonDrifted
			report.Violation = &Violation{
				Asset:      line.Asset,
				CurrentBps: line.CurrentBps,
				TargetBps:  line.TargetBps,
				DriftBps:   d,
			}
			return report
		}
	}

	return report
}

// NeedsRebalance reports whether any allocation drifted beyond the threshold.
func NeedsRebalance(p domain.Portfolio, balances domain.BalanceSnapshot, prices domain.PriceSet) (bool, error) {
	report, err := Check(p, balances, prices)
	if err != nil {
		return false, err
	}
	return report.Needed, nil
}
