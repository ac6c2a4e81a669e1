package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when caching is disabled or Redis is unavailable: all operations
// succeed but nothing is stored (always cache miss).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetExplanation always returns nil (cache miss)
func (c *NoOpCache) GetExplanation(ctx context.Context, key string) (*Entry, error) {
	return nil, nil
}

// SetExplanation does nothing and always succeeds
func (c *NoOpCache) SetExplanation(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
