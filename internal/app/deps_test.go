package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"influence-explainer/internal/cache"
	"influence-explainer/internal/config"
	"influence-explainer/internal/llm"
	"influence-explainer/internal/queue"
	"influence-explainer/internal/store"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuildLLM(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"stub", config.Config{LLMProvider: "stub"}, false},
		{"openai without key", config.Config{LLMProvider: "openai"}, true},
		{"openai with key", config.Config{LLMProvider: "openai", OpenAIKey: "sk-test", LLMModel: "gpt-4o-mini"}, false},
		{"gemini without key", config.Config{LLMProvider: "gemini"}, true},
		{"compatible without base url", config.Config{LLMProvider: "compatible", LLMModel: "llama3"}, true},
		{"compatible", config.Config{LLMProvider: "compatible", LLMBaseURL: "http://localhost:11434/v1", LLMModel: "llama3"}, false},
		{"unknown", config.Config{LLMProvider: "nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := buildLLM(context.Background(), tt.cfg, discardLog)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestBuildCacheFallsBackToNoOp(t *testing.T) {
	c := buildCache(config.Config{CacheProvider: "none"}, discardLog)
	assert.IsType(t, &cache.NoOpCache{}, c)

	c = buildCache(config.Config{CacheProvider: "redis", RedisAddr: "127.0.0.1:1"}, discardLog)
	assert.IsType(t, &cache.NoOpCache{}, c)
}

func TestBuildStoreAndQueueRequireURLs(t *testing.T) {
	_, err := buildStore(config.Config{StoreProvider: "postgres"}, discardLog)
	assert.Error(t, err)
	_, err = buildStore(config.Config{StoreProvider: "sqlite"}, discardLog)
	assert.Error(t, err)
	_, err = buildQueue(config.Config{QueueProvider: "nats"}, discardLog)
	assert.Error(t, err)
}

func TestGeneratorRetriesThenCaches(t *testing.T) {
	cfg := config.Config{
		LLMProvider:        "stub",
		LLMModel:           "m",
		GenerationAttempts: 2,
		GenerationBackoff:  1,
		CacheTTL:           60,
	}
	m := new(llm.MockClient)
	m.On("Complete", mock.Anything, "p").Return("", assert.AnError).Once()
	m.On("Complete", mock.Anything, "p").Return("answer", nil).Once()

	c := new(cache.MockCache)
	key := cache.GenerateCacheKey("stub/m", "p")
	c.On("GetExplanation", mock.Anything, key).Return(nil, nil).Once()
	c.On("SetExplanation", mock.Anything, key, mock.Anything, time.Minute).Return(nil).Once()

	got, err := generator(cfg, discardLog, m, c)(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	m.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestGeneratorSingleAttemptDoesNotRetry(t *testing.T) {
	cfg := config.Config{LLMProvider: "stub", LLMModel: "m", GenerationBackoff: 1}
	WithGenerationAttempts(1)(&cfg)
	assert.Equal(t, 1, cfg.GenerationAttempts)

	m := new(llm.MockClient)
	m.On("Complete", mock.Anything, "p").Return("", assert.AnError).Once()

	_, err := generator(cfg, discardLog, m, cache.NewNoOpCache())(context.Background(), "p")
	assert.ErrorIs(t, err, assert.AnError)
	m.AssertNumberOfCalls(t, "Complete", 1)
}

func TestDepsClose(t *testing.T) {
	t.Run("closes every component", func(t *testing.T) {
		q := new(queue.MockQueue)
		q.On("Close").Return(nil).Once()
		st := new(store.MockStore)
		st.On("Close").Return(nil).Once()
		c := new(cache.MockCache)
		c.On("Close").Return(nil).Once()

		require.NoError(t, Deps{Queue: q, Store: st, Cache: c}.Close())
		q.AssertExpectations(t)
		st.AssertExpectations(t)
		c.AssertExpectations(t)
	})

	t.Run("joins errors and keeps closing", func(t *testing.T) {
		q := new(queue.MockQueue)
		q.On("Close").Return(assert.AnError).Once()
		st := new(store.MockStore)
		st.On("Close").Return(nil).Once()

		err := Deps{Queue: q, Store: st}.Close()
		assert.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "close queue")
		st.AssertExpectations(t)
	})

	t.Run("skips unset components", func(t *testing.T) {
		assert.NoError(t, Deps{}.Close())
	})
}
