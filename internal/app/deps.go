package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"influence-explainer/internal/cache"
	"influence-explainer/internal/config"
	"influence-explainer/internal/definition"
	"influence-explainer/internal/explainer"
	"influence-explainer/internal/llm"
	"influence-explainer/internal/logger"
	"influence-explainer/internal/metrics"
	"influence-explainer/internal/queue"
	"influence-explainer/internal/store"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Explainer *explainer.Explainer
	Store     store.Store
	Queue     queue.Queue
	Cache     cache.Cache
	Metrics   *metrics.Metrics
}

// Option adjusts the loaded configuration before components are built.
type Option func(*config.Config)

// WithGenerationAttempts overrides GENERATION_ATTEMPTS. Workers pass 1 and
// leave retries to queue redelivery.
func WithGenerationAttempts(n int) Option {
	return func(cfg *config.Config) {
		cfg.GenerationAttempts = n
	}
}

// Build loads env, config, and shared components.
func Build(ctx context.Context, opts ...Option) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logger.New(cfg.LogLevel)

	d := Deps{Config: cfg, Log: log, Metrics: metrics.New()}
	d.Cache = buildCache(cfg, log)
	var err error
	if d.Explainer, err = buildExplainer(ctx, cfg, log, d.Cache); err != nil {
		_ = d.Close()
		return Deps{}, fmt.Errorf("failed to initialize explainer: %w", err)
	}
	if d.Store, err = buildStore(cfg, log); err != nil {
		_ = d.Close()
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	if d.Queue, err = buildQueue(cfg, log); err != nil {
		_ = d.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	return d, nil
}

// Close drains the queue connection, then closes the store and the cache.
// Unset components are skipped.
func (d Deps) Close() error {
	var errs []error
	if d.Queue != nil {
		if err := d.Queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close queue: %w", err))
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildExplainer(ctx context.Context, cfg config.Config, log *slog.Logger, c cache.Cache) (*explainer.Explainer, error) {
	def, err := definition.Load(cfg.ExplainerFile)
	if err != nil {
		return nil, err
	}
	client, err := buildLLM(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	gen := generator(cfg, log, client, c)
	exp, err := explainer.New(def.Config(explainer.GenerateFunc(gen), cfg.AnswerLanguage))
	if err != nil {
		return nil, err
	}
	log.Info("explainer ready", "file", cfg.ExplainerFile, "predictors", len(def.Predictors), "language", exp.AnswerLanguage())
	return exp, nil
}

// generator wraps the client with retries, then with the cache.
func generator(cfg config.Config, log *slog.Logger, client llm.Client, c cache.Cache) llm.GenerateFunc {
	gen := llm.WithRetry(client.Complete, cfg.GenerationAttempts, cfg.BackoffBase())
	return llm.WithCache(gen, c, cfg.LLMProvider+"/"+cfg.LLMModel, cfg.CacheTTLDuration(), log)
}

func buildLLM(ctx context.Context, cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel), cfg.LLMTimeout(), cfg.LLMTemperature)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel)
		return client, nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiKey, cfg.LLMModel, cfg.LLMTimeout(), cfg.LLMTemperature)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		log.Info("using Gemini LLM client", "model", cfg.LLMModel)
		return client, nil
	case "compatible":
		client, err := llm.NewCompatibleClient(cfg.LLMBaseURL, cfg.OpenAIKey, cfg.LLMModel, cfg.LLMTimeout(), cfg.LLMTemperature)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize compatible client: %w", err)
		}
		log.Info("using OpenAI-compatible LLM client", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
		return client, nil
	case "stub":
		log.Warn("using stub LLM client; explanations are placeholders")
		return llm.StubClient{}, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, gemini, compatible, stub)", cfg.LLMProvider)
	}
}

// buildCache falls back to a no-op cache when Redis is unreachable.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache()
		}
		log.Info("using Redis cache", "addr", cfg.RedisAddr, "ttl_seconds", cfg.CacheTTL)
		return c
	default:
		return cache.NewNoOpCache()
	}
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid option: postgres)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("influence-explainer"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}
