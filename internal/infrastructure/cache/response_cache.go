package cache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

type entry struct {
	result    *domain.RetrievalResult
	expiresAt time.Time
}

// ResponseCache is an LRU map from retrieval cache keys to finished results,
// each entry carrying its own TTL. Expired entries are deleted lazily on
// lookup. Safe for concurrent use.
type ResponseCache struct {
	entries    *lru.Cache[string, entry]
	defaultTTL time.Duration
	now        func() time.Time

	hits        atomic.Int64
	misses      atomic.Int64
	removals    atomic.Int64
	expirations atomic.Int64
}

func NewResponseCache(maxSize int, defaultTTL time.Duration) (*ResponseCache, error) {
	c := &ResponseCache{
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	// The callback fires for capacity evictions and explicit removes alike;
	// Stats subtracts the expiry removes so Evictions counts capacity only.
	entries, err := lru.NewWithEvict[string, entry](maxSize, func(string, entry) {
		c.removals.Add(1)
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// Get returns the cached result and moves the entry to most-recently-used
// position. An expired entry is removed and reported as a miss.
func (c *ResponseCache) Get(key string) (*domain.RetrievalResult, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.expirations.Add(1)
		c.entries.Remove(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.result, true
}

// Set stores the result under the key. A non-positive ttl falls back to the
// default. When at capacity the least-recently-used entry is evicted first.
func (c *ResponseCache) Set(key string, value *domain.RetrievalResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.entries.Add(key, entry{
		result:    value,
		expiresAt: c.now().Add(ttl),
	})
}

// Stats is a point-in-time counter snapshot. Evictions counts entries pushed
// out by capacity pressure; Expirations counts entries removed because their
// TTL elapsed.
type Stats struct {
	Size        int
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	HitRate     float64
}

func (c *ResponseCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	rate := 0.0
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	expirations := c.expirations.Load()
	evictions := c.removals.Load() - expirations
	if evictions < 0 {
		evictions = 0
	}
	return Stats{
		Size:        c.entries.Len(),
		Hits:        hits,
		Misses:      misses,
		Evictions:   evictions,
		Expirations: expirations,
		HitRate:     rate,
	}
}
