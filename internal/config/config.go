package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	Port        string
	LogLevel    string
	LogFormat   string
	DatabaseURL string
	RedisURL    string

	// Source API (scraper) settings
	SourceBaseURL     string
	SourceCookiesFile string
	SourceRateLimit   int // requests per minute
	SourceTimeout     time.Duration

	// Classifier settings
	ClassifierProvider string // "vader" or "remote"
	ClassifierEndpoint string
	ClassifierTimeout  time.Duration

	// Analysis defaults
	DefaultItemCount int
	MaxItemCount     int
	RepliesPerPost   int
	TopN             int

	TimelineCacheTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		SourceBaseURL:      getEnv("SOURCE_BASE_URL", ""),
		SourceCookiesFile:  getEnv("SOURCE_COOKIES_FILE", "cookies.json"),
		ClassifierProvider: getEnv("CLASSIFIER_PROVIDER", "vader"),
		ClassifierEndpoint: getEnv("CLASSIFIER_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.SourceBaseURL == "" {
		return nil, fmt.Errorf("SOURCE_BASE_URL is required")
	}

	switch cfg.ClassifierProvider {
	case "vader":
	case "remote":
		if cfg.ClassifierEndpoint == "" {
			return nil, fmt.Errorf("CLASSIFIER_ENDPOINT is required when CLASSIFIER_PROVIDER is remote")
		}
	default:
		return nil, fmt.Errorf("CLASSIFIER_PROVIDER must be vader or remote, got %q", cfg.ClassifierProvider)
	}

	var err error
	if cfg.SourceRateLimit, err = getEnvInt("SOURCE_RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.DefaultItemCount, err = getEnvInt("DEFAULT_ITEM_COUNT", 50); err != nil {
		return nil, err
	}
	if cfg.MaxItemCount, err = getEnvInt("MAX_ITEM_COUNT", 200); err != nil {
		return nil, err
	}
	if cfg.RepliesPerPost, err = getEnvInt("REPLIES_PER_POST", 30); err != nil {
		return nil, err
	}
	if cfg.TopN, err = getEnvInt("TOP_N", 5); err != nil {
		return nil, err
	}
	if cfg.DefaultItemCount > cfg.MaxItemCount {
		return nil, fmt.Errorf("DEFAULT_ITEM_COUNT (%d) exceeds MAX_ITEM_COUNT (%d)",
			cfg.DefaultItemCount, cfg.MaxItemCount)
	}

	if cfg.SourceTimeout, err = getEnvDuration("SOURCE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ClassifierTimeout, err = getEnvDuration("CLASSIFIER_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.TimelineCacheTTL, err = getEnvDuration("TIMELINE_CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 5m: %w", key, err)
	}
	return d, nil
}
