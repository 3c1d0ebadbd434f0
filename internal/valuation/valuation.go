// Package valuation converts fixed-point balances and prices into portfolio
// value and per-asset percentage shares.
package valuation

import (
	"math/bits"

	"github.com/samber/lo"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// Line is the valuation of a single allocated asset.
type Line struct {
	Asset      domain.Asset `json:"asset"`
	Balance    uint64       `json:"balance"`
	Price      uint64       `json:"price"`
	Value      uint64       `json:"value"`
	CurrentBps uint64       `json:"currentBps"`
	TargetBps  uint64       `json:"targetBps"`
}

// Valuation is the valued state of a portfolio. Lines follow allocation order.
type Valuation struct {
	Total uint64 `json:"total"`
	Lines []Line `json:"lines"`
}

// Compute values every allocation of the portfolio. Only allocated assets count
// towards the total; missing balances or prices are zero.
// Returns domain.ErrZeroTotalValue when the total is zero.
func Compute(allocations []domain.Allocation, balances domain.BalanceSnapshot, prices domain.PriceSet) (Valuation, error) {
	lines := make([]Line, 0, len(allocations))
	var total uint64

	for _, a := range allocations {
		balance := balances.Of(a.Asset.ID)
		price := prices.Of(a.Asset.ID)

		value, err := AssetValue(balance, price)
		if err != nil {
			return Valuation{}, err
		}

		var carry uint64
		total, carry = bits.Add64(total, value, 0)
		if carry != 0 {
			return Valuation{}, domain.ErrOverflow
		}

		lines = append(lines, Line{
			Asset:     a.Asset,
			Balance:   balance,
			Price:     price,
			Value:     value,
			TargetBps: uint64(a.TargetBps),
		})
	}

	if total == 0 {
		return Valuation{}, domain.ErrZeroTotalValue
	}

	for i := range lines {
		pct, err := domain.MulDiv(lines[i].Value, domain.BpsDenominator, total)
		if err != nil {
			return Valuation{}, err
		}
		lines[i].CurrentBps = pct
	}

	return Valuation{Total: total, Lines: lines}, nil
}

// AssetValue returns balance*price/Scale, truncated.
func AssetValue(balance, price uint64) (uint64, error) {
	return domain.MulDiv(balance, price, domain.Scale)
}

// Percentages returns asset ID -> current share in basis points.
func (v Valuation) Percentages() map[string]uint64 {
	return lo.SliceToMap(v.Lines, func(l Line) (string, uint64) {
		return l.Asset.ID, l.CurrentBps
	})
}
