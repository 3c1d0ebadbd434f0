package domain

import "time"

// PriceQuote is an oracle price in stroops of the valuation currency per whole unit.
// Fetched per evaluation; never persisted.
type PriceQuote struct {
	Asset     Asset     `json:"asset"`
	Price     uint64    `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// BalanceSnapshot maps asset ID to balance in stroops.
type BalanceSnapshot map[string]uint64

// Of returns the balance of the asset, zero when unknown.
func (b BalanceSnapshot) Of(assetID string) uint64 {
	return b[assetID]
}

// PriceSet maps asset ID to its quote.
type PriceSet map[string]PriceQuote

// Of returns the price of the asset, zero when unknown.
func (p PriceSet) Of(assetID string) uint64 {
	return p[assetID].Price
}
