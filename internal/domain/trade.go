package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the direction of a trade intent.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeIntent is an instruction to buy or sell a value of an asset.
// Amount is denominated in valuation-currency stroops.
type TradeIntent struct {
	Asset  Asset  `json:"asset"`
	Amount uint64 `json:"amount"`
	Side   Side   `json:"side"`
}

// IsSell reports whether the intent reduces an overweight position.
func (t TradeIntent) IsSell() bool {
	return t.Side == SideSell
}

// Signed returns the value delta in units: negative for sells, positive for buys.
func (t TradeIntent) Signed() decimal.Decimal {
	v := StroopsDecimal(t.Amount)
	if t.IsSell() {
		return v.Neg()
	}
	return v
}

// RebalanceResult is returned once per completed rebalance.
// Elapsed is the resource cost of the run (wall time spent planning and executing).
type RebalanceResult struct {
	ID             uuid.UUID     `json:"id"`
	Owner          string        `json:"owner"`
	TradesPlanned  uint32        `json:"tradesPlanned"`
	TradesExecuted uint32        `json:"tradesExecuted"`
	TradesFailed   uint32        `json:"tradesFailed"`
	Elapsed        time.Duration `json:"elapsed"`
	Timestamp      time.Time     `json:"timestamp"`
}

// AdminConfig is the process-wide administrator and oracle configuration.
type AdminConfig struct {
	Admin         string `json:"admin"`
	OracleAddress string `json:"oracleAddress"`
}
