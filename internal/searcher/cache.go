package searcher

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/recallkit/recallkit/pkg/types"
)

const (
	// DefaultCacheCapacity bounds the number of live cache entries
	DefaultCacheCapacity = 1000
	// DefaultCacheTTL is how long a cached result stays servable
	DefaultCacheTTL = 5 * time.Minute
)

// cacheEntry represents a cached search result with expiration time
type cacheEntry struct {
	result    *types.SearchResult
	expiresAt time.Time
}

// ResultCache memoizes search results under plain-text keys so writes can
// invalidate by substring match. Eviction follows the LRU's access order,
// which degenerates to insertion order under an insert-only workload.
type ResultCache struct {
	mu      sync.RWMutex
	entries *lru.Cache[string, *cacheEntry]
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time

	onEvict func()
}

// NewResultCache creates a cache with the given capacity and TTL. onEvict,
// if non-nil, is called once per capacity eviction.
func NewResultCache(capacity int, ttl time.Duration, onEvict func()) (*ResultCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &ResultCache{
		ttl:     ttl,
		now:     time.Now,
		onEvict: onEvict,
	}
	entries, err := lru.NewWithEvict[string, *cacheEntry](capacity, func(string, *cacheEntry) {
		if c.onEvict != nil {
			c.onEvict()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Key builds the normalized cache key for a query and its options. Keys are
// kept human-readable so Invalidate can match on query substrings.
func Key(strategy types.SearchStrategy, query string, opts Options) string {
	fields := make([]string, 0, len(opts.Fields))
	for _, f := range opts.Fields {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s|%s|%d|%.3f|%s",
		strategy, strings.ToLower(strings.TrimSpace(query)),
		opts.Limit, opts.MinImportance, strings.Join(fields, ","))
}

// Get returns the cached result for key if present and unexpired. An expired
// entry is removed and reported as a miss.
func (c *ResultCache) Get(key string) (*types.SearchResult, bool) {
	c.mu.RLock()
	entry, found := c.entries.Get(key)
	c.mu.RUnlock()
	if !found {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		c.entries.Remove(key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.result, true
}

// Put stores a result under key with the cache TTL.
func (c *ResultCache) Put(key string, result *types.SearchResult) {
	c.mu.Lock()
	c.entries.Add(key, &cacheEntry{
		result:    result,
		expiresAt: c.now().Add(c.ttl),
	})
	c.mu.Unlock()
}

// flightOutcome carries a computed result together with whether it came from
// the cache rather than a fresh computation.
type flightOutcome struct {
	result    *types.SearchResult
	fromCache bool
}

// GetOrCompute returns the cached result for key, or runs compute and caches
// its result. Concurrent callers with the same key share one computation.
// The returned bool reports whether the result was served from the cache.
func (c *ResultCache) GetOrCompute(key string, compute func() (*types.SearchResult, error)) (*types.SearchResult, bool, error) {
	if result, ok := c.Get(key); ok {
		return result, true, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.lookupOrCompute(key, compute)
	})
	if err != nil {
		return nil, false, err
	}
	out := v.(flightOutcome)
	return out.result, out.fromCache, nil
}

// lookupOrCompute is the singleflight body. It re-checks the cache before
// computing: a racing flight may have populated the key between the caller's
// initial miss and this flight starting, and that still counts as a hit.
func (c *ResultCache) lookupOrCompute(key string, compute func() (*types.SearchResult, error)) (flightOutcome, error) {
	if result, ok := c.Get(key); ok {
		return flightOutcome{result: result, fromCache: true}, nil
	}
	result, err := compute()
	if err != nil {
		return flightOutcome{}, err
	}
	c.Put(key, result)
	return flightOutcome{result: result}, nil
}

// Invalidate removes every entry whose key contains any of the given
// substrings. Called after writes that may change index contents.
func (c *ResultCache) Invalidate(patterns []string) int {
	if len(patterns) == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.entries.Keys() {
		for _, pattern := range patterns {
			if pattern != "" && strings.Contains(key, pattern) {
				c.entries.Remove(key)
				removed++
				break
			}
		}
	}
	return removed
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	c.entries.Purge()
	c.mu.Unlock()
}

// Len returns the number of live entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}
