// Package gateway is the seam between the rebalancing engine and the
// external balance ledger and price oracle.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// ErrNotFound marks a balance or price the source does not know about.
// Snapshot treats it as zero rather than failing the evaluation.
var ErrNotFound = errors.New("gateway: entry not found")

// Gateway supplies balances and prices as fixed-point integers scaled by 10^7.
type Gateway interface {
	Balance(ctx context.Context, owner string, asset domain.Asset) (uint64, error)
	Price(ctx context.Context, asset domain.Asset) (domain.PriceQuote, error)
}

// BalanceLister is implemented by gateways that read all of an owner's
// balances in one request. Assets absent from the result are missing.
type BalanceLister interface {
	Balances(ctx context.Context, owner string) (domain.BalanceSnapshot, error)
}

// errNoBalanceList is returned by wrapping gateways whose balance source
// cannot list an owner's balances in one request.
var errNoBalanceList = errors.New("balance source cannot list balances")

// listBalances delegates Balances to inner when it supports listing.
func listBalances(ctx context.Context, inner Gateway, owner string) (domain.BalanceSnapshot, error) {
	lister, ok := inner.(BalanceLister)
	if !ok {
		return nil, errNoBalanceList
	}
	return lister.Balances(ctx, owner)
}

// balancesOf reads the owner's balances of assets, in one request when gw
// supports it. A missing owner or asset is zero.
func balancesOf(ctx context.Context, gw Gateway, owner string, assets []domain.Asset) (domain.BalanceSnapshot, error) {
	out := make(domain.BalanceSnapshot, len(assets))

	all, err := listBalances(ctx, gw, owner)
	switch {
	case errors.Is(err, errNoBalanceList):
		// fall through to per-asset reads
	case errors.Is(err, ErrNotFound):
		slog.Warn("account unknown, treating balances as zero", "owner", owner)
		for _, asset := range assets {
			out[asset.ID] = 0
		}
		return out, nil
	case err != nil:
		return nil, fmt.Errorf("%w: balances of %s: %w", domain.ErrOracle, owner, err)
	default:
		for _, asset := range assets {
			balance, ok := all[asset.ID]
			if !ok {
				slog.Warn("balance unknown, treating as zero", "owner", owner, "asset", asset.ID)
			}
			out[asset.ID] = balance
		}
		return out, nil
	}

	for _, asset := range assets {
		balance, err := gw.Balance(ctx, owner, asset)
		switch {
		case errors.Is(err, ErrNotFound):
			slog.Warn("balance unknown, treating as zero", "owner", owner, "asset", asset.ID)
			balance = 0
		case err != nil:
			return nil, fmt.Errorf("%w: balance of %s for %s: %w", domain.ErrOracle, asset.ID, owner, err)
		}
		out[asset.ID] = balance
	}
	return out, nil
}

// Snapshot fetches the owner's balance and the price of every allocated asset.
// Missing entries resolve to zero and are logged; any other failure is an OracleError.
func Snapshot(ctx context.Context, gw Gateway, p domain.Portfolio) (domain.BalanceSnapshot, domain.PriceSet, error) {
	balances, err := balancesOf(ctx, gw, p.Owner, p.Assets())
	if err != nil {
		return nil, nil, err
	}

	prices := make(domain.PriceSet, len(p.Allocations))
	for _, asset := range p.Assets() {
		quote, err := gw.Price(ctx, asset)
		switch {
		case errors.Is(err, ErrNotFound):
			slog.Warn("price unknown, treating as zero", "asset", asset.ID)
			quote = domain.PriceQuote{Asset: asset}
		case err != nil:
			return nil, nil, fmt.Errorf("%w: price of %s: %w", domain.ErrOracle, asset.ID, err)
		}
		prices[asset.ID] = quote
	}

	return balances, prices, nil
}
