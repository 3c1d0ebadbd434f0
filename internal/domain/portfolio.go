package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// MaxDriftThreshold is the largest accepted drift threshold (50%).
const MaxDriftThreshold uint32 = 5000

// Allocation is a target weight for one asset, in basis points.
type Allocation struct {
	Asset     Asset  `json:"asset"`
	TargetBps uint32 `json:"targetBps"`
}

// Portfolio is the target-weighted asset set of a single owner.
// Allocations keep insertion order; it drives valuation and trade order.
type Portfolio struct {
	Owner          string       `json:"owner"`
	Allocations    []Allocation `json:"allocations"`
	DriftThreshold uint32       `json:"driftThreshold"`
	LastRebalance  time.Time    `json:"lastRebalance"`
	Active         bool         `json:"active"`
}

// Clone returns a copy that does not share the allocation slice.
func (p Portfolio) Clone() Portfolio {
	p.Allocations = slices.Clone(p.Allocations)
	return p
}

// Assets returns the allocated assets in allocation order.
func (p Portfolio) Assets() []Asset {
	return lo.Map(p.Allocations, func(a Allocation, _ int) Asset { return a.Asset })
}

// ValidateAllocations checks that every asset appears once and targets sum to 100%.
func ValidateAllocations(allocations []Allocation) error {
	if len(allocations) == 0 {
		return fmt.Errorf("%w: no allocations", ErrInvalidAllocation)
	}

	for _, a := range allocations {
		if a.Asset.ID == "" {
			return fmt.Errorf("%w: allocation without asset", ErrInvalidAllocation)
		}
		if uint64(a.TargetBps) > BpsDenominator {
			return fmt.Errorf("%w: %s target %d bps exceeds 10000", ErrInvalidAllocation, a.Asset.ID, a.TargetBps)
		}
	}

	if dups := lo.FindDuplicatesBy(allocations, func(a Allocation) string { return a.Asset.ID }); len(dups) > 0 {
		return fmt.Errorf("%w: asset %s allocated more than once", ErrInvalidAllocation, dups[0].Asset.ID)
	}

	total := lo.SumBy(allocations, func(a Allocation) uint64 { return uint64(a.TargetBps) })
	if total != BpsDenominator {
		return fmt.Errorf("%w: targets sum to %d bps, want 10000", ErrInvalidAllocation, total)
	}
	return nil
}

// ValidateDriftThreshold checks the threshold is within [1, 5000] bps.
func ValidateDriftThreshold(threshold uint32) error {
	if threshold == 0 || threshold > MaxDriftThreshold {
		return fmt.Errorf("%w: %d bps not in [1, %d]", ErrInvalidDriftThreshold, threshold, MaxDriftThreshold)
	}
	return nil
}
