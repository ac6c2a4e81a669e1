package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores generated explanation text.
type Cache interface {
	// GetExplanation retrieves a cached explanation by key
	// Returns nil if not found
	GetExplanation(ctx context.Context, key string) (*Entry, error)

	// SetExplanation stores an explanation with TTL
	SetExplanation(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Entry is a cached generator response.
type Entry struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateCacheKey hashes parts into a stable hex key.
func GenerateCacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
