package cache

import (
	"sync"
	"time"
)

// HourlyCache keeps values until the wall-clock hour changes. Schema and
// user lookups against the remote trackers change rarely, so an hour of
// staleness is acceptable and saves one round trip per ticket.
type HourlyCache struct {
	mu      sync.RWMutex
	maxSize int
	entries map[string]entry
}

type entry struct {
	value any
	hour  string
}

func NewHourlyCache(maxSize int) *HourlyCache {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &HourlyCache{
		maxSize: maxSize,
		entries: make(map[string]entry),
	}
}

func currentHour() string {
	return time.Now().Format("2006-01-02T15")
}

// Get returns the cached value if it was stored within the current hour.
func (c *HourlyCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.hour != currentHour() {
		return nil, false
	}
	return e.value, true
}

// Set stores a value under the current hour. When full, stale entries are
// dropped first; if everything is fresh the cache is cleared outright
// rather than tracking recency.
func (c *HourlyCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hour := currentHour()
	if len(c.entries) >= c.maxSize {
		for k, e := range c.entries {
			if e.hour != hour {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= c.maxSize {
			c.entries = make(map[string]entry)
		}
	}
	c.entries[key] = entry{value: value, hour: hour}
}

// Len reports the number of stored entries, stale ones included.
func (c *HourlyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
