package marketdata

import (
	"sync"
	"time"

	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/pkg/logger"
)

// MemoryCache is the in-process frame cache used when Redis is disabled
// ⭐ SSOT: 프로세스 내 프레임 캐시는 이 구조체에서만
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]cacheEntry
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

type cacheEntry struct {
	frame    *contracts.Frame
	storedAt time.Time
}

// NewMemoryCache creates a new frame cache
func NewMemoryCache(ttl time.Duration, log *logger.Logger) *MemoryCache {
	if log == nil {
		log = logger.Nop()
	}
	return &MemoryCache{
		items:  make(map[string]cacheEntry),
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

// Get returns a fresh frame; expired entries are reported as misses
func (c *MemoryCache) Get(key string) (*contracts.Frame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.now().Sub(e.storedAt) > c.ttl {
		return nil, false
	}
	return e.frame, true
}

// Set stores a frame
func (c *MemoryCache) Set(key string, frame *contracts.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheEntry{frame: frame, storedAt: c.now()}
}

// Delete removes a frame from cache
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear clears all frames
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheEntry)
	c.logger.Info("Cleared frame cache")
}

// Len returns the number of entries (fresh or stale)
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// CleanStale removes expired frames
func (c *MemoryCache) CleanStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, e := range c.items {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.items, key)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Info("Cleaned stale frames from cache")
	}

	return count
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{TotalCount: len(c.items)}
	now := c.now()
	for _, e := range c.items {
		if now.Sub(e.storedAt) > c.ttl {
			stats.StaleCount++
		}
		stats.BarCount += e.frame.Len()
	}
	stats.FreshCount = stats.TotalCount - stats.StaleCount

	return stats
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalCount int `json:"total_count"`
	FreshCount int `json:"fresh_count"`
	StaleCount int `json:"stale_count"`
	BarCount   int `json:"bar_count"`
}
