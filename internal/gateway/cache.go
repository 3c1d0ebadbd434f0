package gateway

import (
	"sync"
	"time"

	"github.com/mtlprog/rebalancer/internal/domain"
)

const cacheTTL = 30 * time.Second

type cacheEntry struct {
	quote     domain.PriceQuote
	expiresAt time.Time
}

type quoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *quoteCache) get(assetID string) (domain.PriceQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[assetID]
	if !ok || time.Now().After(entry.expiresAt) {
		return domain.PriceQuote{}, false
	}
	return entry.quote, true
}

func (c *quoteCache) set(quote domain.PriceQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[quote.Asset.ID] = cacheEntry{
		quote:     quote,
		expiresAt: time.Now().Add(c.ttl),
	}
}
