package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache. Values are stored JSON-encoded so that
// Get behaves exactly like the file cache, including type conversion.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry), now: time.Now}
}

func (c *MemoryCache) Get(key string, value interface{}) error {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && entry.IsExpiredAt(c.now()) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(entry.Data, value); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	entry, err := newEntry(value, ttl, c.now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len returns the number of stored entries, expired or not
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	return nil
}
