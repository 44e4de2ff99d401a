package service

import (
	"sync"
	"time"

	"fx-wallet-service/internal/domain"

	"github.com/shopspring/decimal"
)

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// RateCache holds recently fetched quotes keyed FROM_TO. Entries older than
// the TTL are treated as missing.
type RateCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedRate
}

func NewRateCache(ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RateCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedRate),
	}
}

func (c *RateCache) Get(from, to domain.Currency) (decimal.Decimal, bool) {
	c.mu.RLock()
	e, ok := c.entries[domain.PairKey(from, to)]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return decimal.Zero, false
	}
	return e.rate, true
}

func (c *RateCache) Set(from, to domain.Currency, rate decimal.Decimal) {
	c.mu.Lock()
	c.entries[domain.PairKey(from, to)] = cachedRate{rate: rate, fetchedAt: c.now()}
	c.mu.Unlock()
}

// SetPair stores both directions.
func (c *RateCache) SetPair(from, to domain.Currency, rate, inverse decimal.Decimal) {
	now := c.now()
	c.mu.Lock()
	c.entries[domain.PairKey(from, to)] = cachedRate{rate: rate, fetchedAt: now}
	c.entries[domain.PairKey(to, from)] = cachedRate{rate: inverse, fetchedAt: now}
	c.mu.Unlock()
}
