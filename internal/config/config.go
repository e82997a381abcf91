package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	CRAPIKey     string `env:"CR_API_KEY"`
	CRAPIBaseURL string `env:"CR_API_BASE_URL" envDefault:"https://api.clashroyale.com/v1"`

	DBPath     string `env:"DB_PATH" envDefault:"royale.db"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Outbound pacing for the Clash Royale API, shared by all scrape workers.
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" envDefault:"0.5"`

	MaxRetries  int           `env:"MAX_RETRIES" envDefault:"5"`
	BaseBackoff time.Duration `env:"BASE_BACKOFF" envDefault:"1s"`

	// Target wall-clock duration of one full scrape cycle; a cycle that
	// finishes early sleeps out the remainder.
	CycleDuration time.Duration `env:"CYCLE_DURATION" envDefault:"15m"`

	ScrapeEnabled bool `env:"SCRAPE_ENABLED" envDefault:"true"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.CRAPIKey == "" {
		return nil, fmt.Errorf("CR_API_KEY is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("REQUESTS_PER_SECOND must be positive, got %v", cfg.RequestsPerSecond)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("redis_addr", cfg.RedisAddr).
		Float64("requests_per_second", cfg.RequestsPerSecond).
		Int("max_retries", cfg.MaxRetries).
		Dur("base_backoff", cfg.BaseBackoff).
		Dur("cycle_duration", cfg.CycleDuration).
		Bool("scrape_enabled", cfg.ScrapeEnabled).
		Msg("configuration loaded")

	return cfg, nil
}
