package application

import (
	"sync"
	"time"

	"github.com/veil-network/veil-daemon/internal/core/domain"
)

// BalanceKey identifies a cached balance.
type BalanceKey struct {
	Address string
	Mint    string
}

type cacheEntry struct {
	balance   domain.Balance
	timestamp time.Time
}

// CacheService is the process-wide balance cache. It is constructed once and
// passed by reference to every consumer, so all components observe the same
// view of an address. Entries are overwritten on refresh and cleared
// wholesale when a shield or unshield lands.
type CacheService struct {
	mtx     sync.RWMutex
	entries map[BalanceKey]cacheEntry
	ttl     time.Duration
	clock   func() time.Time
}

// NewCacheService returns a cache with the given TTL. A nil clock defaults to
// time.Now.
func NewCacheService(ttl time.Duration, clock func() time.Time) *CacheService {
	if clock == nil {
		clock = time.Now
	}
	return &CacheService{
		entries: map[BalanceKey]cacheEntry{},
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached balance and whether it is still fresh.
func (c *CacheService) Get(key BalanceKey) (domain.Balance, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	entry, found := c.entries[key]
	if !found {
		return domain.Balance{}, false
	}
	if c.clock().Sub(entry.timestamp) > c.ttl {
		return domain.Balance{}, false
	}
	return entry.balance, true
}

// Put stores a freshly fetched balance.
func (c *CacheService) Put(key BalanceKey, balance domain.Balance) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.entries[key] = cacheEntry{balance: balance, timestamp: c.clock()}
}

// Invalidate drops all entries of the given address across mints.
func (c *CacheService) Invalidate(address string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for key := range c.entries {
		if key.Address == address {
			delete(c.entries, key)
		}
	}
}

// InvalidateAll drops every entry. Called after a successful shield or
// unshield, whose effects can touch several addresses at once.
func (c *CacheService) InvalidateAll() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.entries = map[BalanceKey]cacheEntry{}
}
