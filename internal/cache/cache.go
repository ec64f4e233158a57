package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Common cache errors
var (
	ErrCacheMiss = errors.New("cache miss")
)

// Cache defines the interface for all cache implementations
type Cache interface {
	// Get retrieves a value from the cache
	Get(key string, value interface{}) error

	// Set stores a value in the cache with an optional TTL
	Set(key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error

	// Close cleans up the cache resources
	Close() error
}

// Entry represents a cached entry with metadata
type Entry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsExpiredAt checks if the cache entry has expired at the given instant
func (e *Entry) IsExpiredAt(now time.Time) bool {
	if e.ExpiresAt == nil {
		return false
	}
	return now.After(*e.ExpiresAt)
}

func newEntry(value interface{}, ttl time.Duration, now time.Time) (Entry, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal value: %w", err)
	}

	entry := Entry{
		Data:      data,
		CreatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		entry.ExpiresAt = &expiresAt
	}
	return entry, nil
}

// CacheKeyBuilder helps build consistent cache keys
type CacheKeyBuilder struct {
	prefix string
}

func NewCacheKeyBuilder(prefix string) *CacheKeyBuilder {
	return &CacheKeyBuilder{prefix: prefix}
}

func (b *CacheKeyBuilder) PRKey(owner, repo string, prNumber int) string {
	return b.buildKey("pr", owner, repo, prNumber)
}

func (b *CacheKeyBuilder) PRReviewsKey(owner, repo string, prNumber int) string {
	return b.buildKey("pr_reviews", owner, repo, prNumber)
}

func (b *CacheKeyBuilder) PREventsKey(owner, repo string, prNumber int) string {
	return b.buildKey("pr_events", owner, repo, prNumber)
}

func (b *CacheKeyBuilder) PRsListKey(owner, repo string, startDate, endDate time.Time) string {
	start := startDate.Format("2006-01-02")
	end := endDate.Format("2006-01-02")
	return b.buildKey("prs_list", owner, repo, start, end)
}

// TransactionsKey identifies the full transaction log of one revision
func (b *CacheKeyBuilder) TransactionsKey(revisionPHID string) string {
	return b.buildKey("transactions", revisionPHID)
}

func (b *CacheKeyBuilder) buildKey(parts ...interface{}) string {
	key := b.prefix
	for _, part := range parts {
		key += ":" + toString(part)
	}
	return key
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// AppName is the directory name used under the OS cache directory
const AppName = "review-latency"

// NewDefaultCache creates the file cache, in dir if set, otherwise in the OS cache directory
func NewDefaultCache(dir string) (*FileCache, error) {
	if dir != "" {
		return NewFileCacheWithDir(dir)
	}
	return NewFileCache(AppName)
}
