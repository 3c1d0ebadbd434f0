package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// Static is a deterministic in-memory gateway returning fixed balances and quotes.
type Static struct {
	mu       sync.RWMutex
	balances map[string]map[string]uint64
	prices   map[string]uint64
	at       time.Time
}

// NewStatic creates an empty Static gateway; quotes are stamped with `at`.
func NewStatic(at time.Time) *Static {
	return &Static{
		balances: make(map[string]map[string]uint64),
		prices:   make(map[string]uint64),
		at:       at,
	}
}

// SetBalance sets the owner's balance of an asset.
func (s *Static) SetBalance(owner, assetID string, amount uint64) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[owner] == nil {
		s.balances[owner] = make(map[string]uint64)
	}
	s.balances[owner][assetID] = amount
	return s
}

// SetPrice sets the quoted price of an asset.
func (s *Static) SetPrice(assetID string, price uint64) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[assetID] = price
	return s
}

func (s *Static) Balance(_ context.Context, owner string, asset domain.Asset) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.balances[owner][asset.ID]
	if !ok {
		return 0, fmt.Errorf("%w: balance of %s for %s", ErrNotFound, asset.ID, owner)
	}
	return v, nil
}

func (s *Static) Price(_ context.Context, asset domain.Asset) (domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.prices[asset.ID]
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("%w: price of %s", ErrNotFound, asset.ID)
	}
	return domain.PriceQuote{Asset: asset, Price: v, Timestamp: s.at}, nil
}
