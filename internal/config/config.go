package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the explainer services.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Explainer
	ExplainerFile  string `env:"EXPLAINER_FILE" envDefault:"explainer.yaml"`
	AnswerLanguage string `env:"ANSWER_LANGUAGE"` // overrides the definition's language when set

	// LLM
	LLMProvider        string  `env:"LLM_PROVIDER" envDefault:"openai"` // "openai", "gemini", "compatible" or "stub"
	OpenAIKey          string  `env:"OPENAI_API_KEY"`
	GeminiKey          string  `env:"GEMINI_API_KEY"`
	LLMModel           string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMBaseURL         string  `env:"LLM_BASE_URL"` // required for "compatible"
	LLMTimeoutSeconds  int     `env:"LLM_TIMEOUT_SECONDS" envDefault:"30"`
	LLMTemperature     float64 `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	GenerationAttempts int     `env:"GENERATION_ATTEMPTS" envDefault:"3"`
	GenerationBackoff  int     `env:"GENERATION_BACKOFF_MS" envDefault:"200"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "redis" or "none"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"`
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider   string `env:"QUEUE_PROVIDER" envDefault:"nats"`
	QueueURL        string `env:"QUEUE_URL"`
	TaskMaxAttempts int    `env:"TASK_MAX_ATTEMPTS" envDefault:"3"` // deliveries per async explanation
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.GenerationBackoff) * time.Millisecond
}

func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}
