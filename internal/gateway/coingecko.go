package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/external"
)

// CoinGeckoAddress selects CoinGecko prices over Horizon balances.
const CoinGeckoAddress = "coingecko"

// referenceCurrency is the CoinGecko vs_currency both legs of a cross rate are fetched in.
const referenceCurrency = "usd"

// PriceFeed fetches reference-currency prices by CoinGecko coin ID.
type PriceFeed interface {
	FetchPrices(ctx context.Context, ids []string, vsCurrency string) (map[string]decimal.Decimal, error)
}

// CoinGecko prices assets by symbol through CoinGecko, crossed into the quote
// asset, and delegates balances to another gateway.
type CoinGecko struct {
	feed     PriceFeed
	balances Gateway
	quote    domain.Asset
	cache    *quoteCache
}

// NewCoinGecko creates a CoinGecko-priced gateway valuing assets in `quote`.
func NewCoinGecko(feed PriceFeed, balances Gateway, quote domain.Asset) *CoinGecko {
	return &CoinGecko{
		feed:     feed,
		balances: balances,
		quote:    quote,
		cache:    newQuoteCache(cacheTTL),
	}
}

func (g *CoinGecko) Balance(ctx context.Context, owner string, asset domain.Asset) (uint64, error) {
	return g.balances.Balance(ctx, owner, asset)
}

func (g *CoinGecko) Balances(ctx context.Context, owner string) (domain.BalanceSnapshot, error) {
	return listBalances(ctx, g.balances, owner)
}

// Price returns usd(asset) / usd(quote) in stroops. Symbols without a
// CoinGecko mapping are reported as not found.
func (g *CoinGecko) Price(ctx context.Context, asset domain.Asset) (domain.PriceQuote, error) {
	if asset.ID == g.quote.ID {
		return domain.PriceQuote{Asset: asset, Price: domain.Scale, Timestamp: time.Now().UTC()}, nil
	}
	if cached, ok := g.cache.get(asset.ID); ok {
		return cached, nil
	}

	assetID, ok := external.CoinID(asset.Symbol)
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("%w: no CoinGecko mapping for %s", ErrNotFound, asset.Symbol)
	}
	quoteID, ok := external.CoinID(g.quote.Symbol)
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("no CoinGecko mapping for quote asset %s", g.quote.Symbol)
	}

	prices, err := g.feed.FetchPrices(ctx, []string{assetID, quoteID}, referenceCurrency)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	quoteUSD, ok := prices[quoteID]
	if !ok || !quoteUSD.IsPositive() {
		return domain.PriceQuote{}, fmt.Errorf("CoinGecko has no usable price for quote asset %s", g.quote.Symbol)
	}
	assetUSD, ok := prices[assetID]
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("%w: CoinGecko has no price for %s", ErrNotFound, assetID)
	}

	price, err := domain.ParseStroops(assetUSD.Div(quoteUSD).String())
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("converting CoinGecko price for %s: %w", asset.ID, err)
	}

	quote := domain.PriceQuote{Asset: asset, Price: price, Timestamp: time.Now().UTC()}
	g.cache.set(quote)
	return quote, nil
}

// errNoPriceFeed is returned when "coingecko" is dialed without a configured feed.
var errNoPriceFeed = errors.New("no CoinGecko price feed configured")
