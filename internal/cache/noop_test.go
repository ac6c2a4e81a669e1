package cache

import (
	"context"
	"testing"
	"time"
)

// TestNoOpCache verifies that NoOpCache never stores anything
func TestNoOpCache(t *testing.T) {
	cache := NewNoOpCache()
	ctx := context.Background()

	entry, err := cache.GetExplanation(ctx, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if entry != nil {
		t.Errorf("Expected nil entry (cache miss), got %v", entry)
	}

	err = cache.SetExplanation(ctx, "test-key", &Entry{Text: "explanation"}, 1*time.Hour)
	if err != nil {
		t.Errorf("Expected no error on SetExplanation, got %v", err)
	}

	// Still a miss
	entry, err = cache.GetExplanation(ctx, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if entry != nil {
		t.Errorf("Expected nil entry (no-op cache doesn't store), got %v", entry)
	}

	if err := cache.Close(); err != nil {
		t.Errorf("Expected no error on Close, got %v", err)
	}
}

func TestGenerateCacheKey(t *testing.T) {
	a := GenerateCacheKey("gpt-4o-mini", "prompt")
	if a != GenerateCacheKey("gpt-4o-mini", "prompt") {
		t.Error("expected identical parts to produce identical keys")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	// Part boundaries matter
	if GenerateCacheKey("ab", "c") == GenerateCacheKey("a", "bc") {
		t.Error("expected different keys for different part boundaries")
	}
}
