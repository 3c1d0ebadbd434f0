// Package planner sizes the corrective trades of a drifted portfolio and
// hands them to an execution venue.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/drift"
	"github.com/mtlprog/rebalancer/internal/valuation"
)

// Venue settles a single trade and reports whether it succeeded.
type Venue interface {
	Execute(ctx context.Context, owner string, asset domain.Asset, amount uint64, isSell bool) (bool, error)
}

// Plan returns the trades that bring the portfolio back to its targets, in allocation order.
// A portfolio within its drift threshold yields domain.ErrNoRebalanceNeeded.
func Plan(p domain.Portfolio, balances domain.BalanceSnapshot, prices domain.PriceSet) ([]domain.TradeIntent, valuation.Valuation, error) {
	report, err := drift.Check(p, balances, prices)
	if err != nil {
		return nil, valuation.Valuation{}, err
	}
	if !report.Needed {
		return nil, valuation.Valuation{}, fmt.Errorf("%w: %s", domain.ErrNoRebalanceNeeded, report.Reason)
	}

	intents, err := Intents(*report.Valuation)
	if err != nil {
		return nil, valuation.Valuation{}, err
	}
	return intents, *report.Valuation, nil
}

// Intents sizes one trade per line whose value differs from its target value.
func Intents(v valuation.Valuation) ([]domain.TradeIntent, error) {
	intents := make([]domain.TradeIntent, 0, len(v.Lines))

	for _, line := range v.Lines {
		target, err := domain.MulDiv(v.Total, line.TargetBps, domain.BpsDenominator)
		if err != nil {
			return nil, err
		}
		if target == line.Value {
			continue
		}

		side := domain.SideBuy
		if line.Value > target {
			side = domain.SideSell
		}
		intents = append(intents, domain.TradeIntent{
			Asset:  line.Asset,
			Amount: domain.AbsDiff(target, line.Value),
			Side:   side,
		})
	}

	return intents, nil
}

// Failure records a trade the venue did not settle.
type Failure struct {
	Intent domain.TradeIntent `json:"intent"`
	Error  string             `json:"error,omitempty"`
}

// Execution summarizes a pass over the venue.
type Execution struct {
	Executed uint32    `json:"executed"`
	Failed   uint32    `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// Execute hands intents to the venue one at a time and counts successes.
// A failed trade is recorded and the loop continues, so a run can complete
// with most trades unsettled; callers see that only through Failed.
func Execute(ctx context.Context, venue Venue, owner string, intents []domain.TradeIntent) Execution {
	var exec Execution

	for _, intent := range intents {
		ok, err := venue.Execute(ctx, owner, intent.Asset, intent.Amount, intent.IsSell())
		if err == nil && ok {
			exec.Executed++
			continue
		}

		exec.Failed++
		f := Failure{Intent: intent}
		if err != nil {
			f.Error = err.Error()
		} else {
			f.Error = domain.ErrSwapFailed.Error()
		}
		exec.Failures = append(exec.Failures, f)

		slog.Warn("trade not settled",
			"owner", owner,
			"asset", intent.Asset.ID,
			"side", intent.Side,
			"amount", domain.FormatStroops(intent.Amount),
			"error", f.Error)
	}

	return exec
}
