package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/metrics"
	"github.com/doclens/doclens/internal/models"
)

// evictBatchSize bounds how many entries a single write may evict once the
// cache is full. Evicting in small batches keeps the request path's latency
// flat under sustained load; a full sweep of the excess would stall writers.
const evictBatchSize = 32

type memoryEntry struct {
	answer   *models.Answer
	cachedAt time.Time
}

// MemoryCache is a bounded in-process answer cache. TTL is checked lazily on
// read; a reader racing an expiring entry just sees a miss.
type MemoryCache struct {
	ttl        time.Duration
	maxEntries int
	log        *logrus.Logger

	mu      sync.RWMutex
	entries map[string]memoryEntry

	now func() time.Time // injectable for tests
}

// NewMemoryCache creates a MemoryCache with the given TTL and capacity.
func NewMemoryCache(ttl time.Duration, maxEntries int, log *logrus.Logger) *MemoryCache {
	return &MemoryCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		log:        log,
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
	}
}

// Get returns the cached answer for key, or ok=false on miss or expiry.
// Expired entries are removed on read.
func (c *MemoryCache) Get(_ context.Context, key string) (*models.Answer, bool) {
	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		metrics.CacheMisses.Inc()
		return nil, false
	}

	if c.now().Sub(entry.cachedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; another writer may have replaced
		// the entry since the read.
		if cur, still := c.entries[key]; still && cur.cachedAt.Equal(entry.cachedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		metrics.CacheMisses.Inc()
		return nil, false
	}

	metrics.CacheHits.Inc()

	return entry.answer, true
}

// Set stores an answer under key, evicting expired entries and then at most
// evictBatchSize arbitrary entries if the cache is still at capacity.
// Last write wins on concurrent writes to the same key.
func (c *MemoryCache) Set(_ context.Context, key string, answer *models.Answer) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		removed := 0
		for k, v := range c.entries {
			if now.Sub(v.cachedAt) > c.ttl {
				delete(c.entries, k)
				removed++
				if removed >= evictBatchSize {
					break
				}
			}
		}

		for k := range c.entries {
			if len(c.entries) < c.maxEntries || removed >= evictBatchSize {
				break
			}
			delete(c.entries, k)
			removed++
		}

		if removed > 0 {
			metrics.CacheEvictions.Add(float64(removed))
		}
	}

	c.entries[key] = memoryEntry{answer: answer, cachedAt: now}
}

// Len returns the current number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
