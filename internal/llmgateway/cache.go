package llmgateway

import (
	"context"
	"sync"
	"time"
)

// CachedResponse is the subset of a completion persisted under a cache key.
type CachedResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	Model            string
}

// DurableStore is the optional second tier behind the in-process cache
// (§4.A Cache: "bounded LRU... layered over an optional durable store").
// plugins/cache/badger implements this against an embedded badger.DB.
type DurableStore interface {
	Get(ctx context.Context, key string) (CachedResponse, bool, error)
	Set(ctx context.Context, key string, value CachedResponse, ttl time.Duration) error
}

type lruEntry struct {
	value      CachedResponse
	storedAt   time.Time
	lastAccess time.Time
}

// Cache is a bounded-by-age in-process LRU, optionally backed by a
// DurableStore that's consulted on a local miss and repopulated on a
// durable hit.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]*lruEntry
	order       []string
	maxEntries  int
	ttl         time.Duration
	durable     DurableStore
	hits        int64
	misses      int64
	durableHits int64
}

// NewCache builds an in-process LRU of at most maxEntries live for ttl,
// optionally chained to a DurableStore for cross-restart hits.
func NewCache(maxEntries int, ttl time.Duration, durable DurableStore) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Cache{
		entries:    make(map[string]*lruEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		durable:    durable,
	}
}

// Get returns the cached response for key, checking the in-process tier
// first and falling back to the durable tier, repopulating the in-process
// tier on a durable hit.
func (c *Cache) Get(ctx context.Context, key string) (CachedResponse, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.expired(entry) {
		c.removeLocked(key)
		ok = false
	}
	if ok {
		entry.lastAccess = time.Now()
		c.touchLocked(key)
		c.hits++
		value := entry.value
		c.mu.Unlock()
		return value, true
	}
	c.misses++
	c.mu.Unlock()

	if c.durable == nil {
		return CachedResponse{}, false
	}
	value, found, err := c.durable.Get(ctx, key)
	if err != nil || !found {
		return CachedResponse{}, false
	}
	c.mu.Lock()
	c.durableHits++
	c.mu.Unlock()
	c.setLocal(key, value)
	return value, true
}

// Set stores value in both tiers. The durable tier is written
// synchronously and its error is discarded.
func (c *Cache) Set(ctx context.Context, key string, value CachedResponse) {
	c.setLocal(key, value)
	if c.durable != nil {
		_ = c.durable.Set(ctx, key, value, c.ttl)
	}
}

func (c *Cache) setLocal(key string, value CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	now := time.Now()
	c.entries[key] = &lruEntry{value: value, storedAt: now, lastAccess: now}
	c.touchLocked(key)
}

func (c *Cache) expired(entry *lruEntry) bool {
	return c.ttl > 0 && time.Since(entry.storedAt) > c.ttl
}

// touchLocked moves key to the most-recently-used end of the order slice.
func (c *Cache) touchLocked(key string) {
	c.removeFromOrderLocked(key)
	c.order = append(c.order, key)
}

func (c *Cache) removeFromOrderLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	c.removeFromOrderLocked(key)
}

// evictOldestLocked drops the least-recently-used entry, by age (§4.A
// Cache: "bounded LRU (by age)").
func (c *Cache) evictOldestLocked() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

// Stats reports hit/miss counters for observability.
type Stats struct {
	Hits        int64
	Misses      int64
	DurableHits int64
	Size        int
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, DurableHits: c.durableHits, Size: len(c.entries)}
}

// Clear empties the in-process tier. The durable tier is left untouched;
// callers that need a full reset should also clear their DurableStore.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*lruEntry)
	c.order = nil
}
