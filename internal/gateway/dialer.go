package gateway

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/horizon"
)

// FallbackAddress selects fixed demo prices over Horizon balances.
const FallbackAddress = "fallback"

// Dialer resolves the administrator-configured oracle address into a Gateway.
type Dialer interface {
	Dial(address string) (Gateway, error)
}

// HorizonDialer builds Horizon gateways: an http(s) address is used as the
// Horizon base URL, "fallback" and "coingecko" replace prices over balances
// read from the default Horizon URL. Gateways are cached per address.
type HorizonDialer struct {
	defaultURL string
	quote      domain.Asset
	retryMax   int
	retryDelay time.Duration
	feed       PriceFeed

	mu       sync.Mutex
	gateways map[string]Gateway
}

// NewHorizonDialer creates a dialer whose gateways value assets in `quote`.
func NewHorizonDialer(defaultURL string, quote domain.Asset, retryMax int, retryDelay time.Duration) *HorizonDialer {
	return &HorizonDialer{
		defaultURL: defaultURL,
		quote:      quote,
		retryMax:   retryMax,
		retryDelay: retryDelay,
		gateways:   make(map[string]Gateway),
	}
}

// WithPriceFeed enables the "coingecko" oracle address.
func (d *HorizonDialer) WithPriceFeed(feed PriceFeed) *HorizonDialer {
	d.feed = feed
	return d
}

func (d *HorizonDialer) Dial(address string) (Gateway, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gw, ok := d.gateways[address]; ok {
		return gw, nil
	}

	var gw Gateway
	switch {
	case address == FallbackAddress:
		gw = NewFallback(d.defaultHorizon())
	case address == CoinGeckoAddress:
		if d.feed == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrOracle, errNoPriceFeed)
		}
		gw = NewCoinGecko(d.feed, d.defaultHorizon(), d.quote)
	case strings.HasPrefix(address, "https://"), strings.HasPrefix(address, "http://"):
		gw = NewHorizon(horizon.NewClient(strings.TrimRight(address, "/"), d.retryMax, d.retryDelay), d.quote)
	default:
		return nil, fmt.Errorf("%w: unsupported oracle address %q", domain.ErrOracle, address)
	}

	d.gateways[address] = gw
	return gw, nil
}

func (d *HorizonDialer) defaultHorizon() *Horizon {
	return NewHorizon(horizon.NewClient(d.defaultURL, d.retryMax, d.retryDelay), d.quote)
}

// Fixed dials the same gateway for every address.
type Fixed struct {
	Gateway Gateway
}

func (f Fixed) Dial(string) (Gateway, error) {
	return f.Gateway, nil
}
