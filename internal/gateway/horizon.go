package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/horizon"
)

// HorizonClient defines the subset of Horizon API used by the Horizon gateway.
type HorizonClient interface {
	FetchBalance(ctx context.Context, accountID string, asset domain.Asset) (uint64, error)
	FetchBalances(ctx context.Context, accountID string) (map[string]uint64, error)
	FetchBestBid(ctx context.Context, selling, buying domain.Asset) (decimal.Decimal, error)
}

// Horizon reads balances from Stellar accounts and prices from the DEX best bid
// against the quote asset (the valuation currency).
type Horizon struct {
	client HorizonClient
	quote  domain.Asset
	cache  *quoteCache
}

// NewHorizon creates a Horizon-backed gateway valuing assets in `quote`.
func NewHorizon(client HorizonClient, quote domain.Asset) *Horizon {
	return &Horizon{
		client: client,
		quote:  quote,
		cache:  newQuoteCache(cacheTTL),
	}
}

// Balance returns the owner's balance of the asset in stroops.
func (h *Horizon) Balance(ctx context.Context, owner string, asset domain.Asset) (uint64, error) {
	if !asset.IsStellarCanonical() {
		return 0, fmt.Errorf("%w: %s is not a Stellar asset", ErrNotFound, asset.ID)
	}
	balance, err := h.client.FetchBalance(ctx, owner, asset)
	if err != nil {
		if errors.Is(err, horizon.ErrNotFound) {
			return 0, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return 0, err
	}
	return balance, nil
}

// Balances returns every balance of the owner's account from a single request.
func (h *Horizon) Balances(ctx context.Context, owner string) (domain.BalanceSnapshot, error) {
	balances, err := h.client.FetchBalances(ctx, owner)
	if err != nil {
		if errors.Is(err, horizon.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	return balances, nil
}

// Price returns the best bid of one unit of asset in the quote asset.
// The quote asset itself is priced at exactly 1.
func (h *Horizon) Price(ctx context.Context, asset domain.Asset) (domain.PriceQuote, error) {
	if asset.ID == h.quote.ID {
		return domain.PriceQuote{Asset: asset, Price: domain.Scale, Timestamp: time.Now().UTC()}, nil
	}
	if !asset.IsStellarCanonical() {
		return domain.PriceQuote{}, fmt.Errorf("%w: %s is not a Stellar asset", ErrNotFound, asset.ID)
	}
	if cached, ok := h.cache.get(asset.ID); ok {
		return cached, nil
	}

	bid, err := h.client.FetchBestBid(ctx, asset, h.quote)
	if err != nil {
		if errors.Is(err, horizon.ErrNotFound) {
			return domain.PriceQuote{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return domain.PriceQuote{}, err
	}

	price, err := domain.ParseStroops(bid.String())
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("converting bid for %s: %w", asset.ID, err)
	}

	quote := domain.PriceQuote{Asset: asset, Price: price, Timestamp: time.Now().UTC()}
	h.cache.set(quote)
	return quote, nil
}
