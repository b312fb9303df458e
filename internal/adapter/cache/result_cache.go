package cache

import (
	"sync"
	"time"

	"evfmap/internal/domain"
	"evfmap/internal/port"
)

// ResultCache is an in-memory LRU of mapped listings with a time to live.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	result    *domain.MapResult
	timestamp time.Time
}

func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResultCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func (c *ResultCache) Get(key string) (*domain.MapResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses++
		return nil, false
	}

	c.moveToEnd(key)
	c.hits++
	return entry.result, true
}

func (c *ResultCache) Put(key string, result *domain.MapResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{result: result, timestamp: time.Now()}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops every entry. Counters are kept.
func (c *ResultCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *ResultCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports cache occupancy and hit counters.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

func (c *ResultCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

func (c *ResultCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *ResultCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *ResultCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedMapper serves repeated listings from a ResultCache.
type CachedMapper struct {
	mapper port.Mapper
	cache  *ResultCache
	key    func(string) string
}

// NewCachedMapper wraps mapper. key derives the cache key from listing text.
func NewCachedMapper(mapper port.Mapper, cache *ResultCache, key func(string) string) *CachedMapper {
	return &CachedMapper{
		mapper: mapper,
		cache:  cache,
		key:    key,
	}
}

func (m *CachedMapper) Map(text string) (*domain.MapResult, error) {
	key := m.key(text)
	if result, hit := m.cache.Get(key); hit {
		return result, nil
	}

	result, err := m.mapper.Map(text)
	if err != nil {
		return nil, err
	}

	m.cache.Put(key, result)
	return result, nil
}
