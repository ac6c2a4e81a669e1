package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"influence-explainer/internal/cache"
	"influence-explainer/internal/retry"
)

// WithRetry calls gen up to attempts times, sleeping with exponential
// backoff between failures. The last error is returned unchanged, or
// wrapped together with ctx.Err() when ctx ends during backoff.
func WithRetry(gen GenerateFunc, attempts int, base time.Duration) GenerateFunc {
	if attempts <= 1 {
		return gen
	}
	return func(ctx context.Context, prompt string) (string, error) {
		var err error
		for attempt := 0; attempt < attempts; attempt++ {
			var text string
			if text, err = gen(ctx, prompt); err == nil {
				return text, nil
			}
			if attempt == attempts-1 {
				break
			}
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w after attempt %d: %w", ctx.Err(), attempt+1, err)
			case <-time.After(retry.ExponentialBackoff(attempt, base)):
			}
		}
		return "", err
	}
}

// WithCache memoizes gen by prompt. namespace separates models so a cached
// answer from one model is never served for another. Cache failures are
// logged and never fail the call.
func WithCache(gen GenerateFunc, c cache.Cache, namespace string, ttl time.Duration, log *slog.Logger) GenerateFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		key := cache.GenerateCacheKey(namespace, prompt)
		if cached, err := c.GetExplanation(ctx, key); err != nil {
			log.Warn("cache read failed", "err", err)
		} else if cached != nil {
			log.Debug("cache hit", "key", key)
			return cached.Text, nil
		}

		text, err := gen(ctx, prompt)
		if err != nil {
			return "", err
		}
		if err := c.SetExplanation(ctx, key, &cache.Entry{Text: text, CreatedAt: time.Now().UTC()}, ttl); err != nil {
			log.Warn("failed to cache explanation", "err", err)
		}
		return text, nil
	}
}
