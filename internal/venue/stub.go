// Package venue contains execution venue adapters that settle trade intents.
package venue

import (
	"context"
	"sync"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// Trade is a trade the stub venue was asked to settle.
type Trade struct {
	Owner  string
	Asset  domain.Asset
	Amount uint64
	IsSell bool
}

// Stub settles nothing. It answers every trade with a fixed outcome and
// records the calls; it has no production settlement semantics.
type Stub struct {
	mu      sync.Mutex
	outcome bool
	trades  []Trade
}

// NewStub creates a stub venue that reports `outcome` for every trade.
func NewStub(outcome bool) *Stub {
	return &Stub{outcome: outcome}
}

func (s *Stub) Execute(_ context.Context, owner string, asset domain.Asset, amount uint64, isSell bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, Trade{Owner: owner, Asset: asset, Amount: amount, IsSell: isSell})
	return s.outcome, nil
}

// Trades returns a copy of the recorded trades.
func (s *Stub) Trades() []Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Trade(nil), s.trades...)
}
