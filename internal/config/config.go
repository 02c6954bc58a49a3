package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/joho/godotenv"
)

type Config struct {
	YouTube   YouTubeConfig
	Redis     RedisConfig
	Server    ServerConfig
	Analysis  AnalysisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type YouTubeConfig struct {
	APIKey          string
	CredentialsFile string
	TokenFile       string
	Endpoint        string
	RequestTimeout  time.Duration
	DailyQuota      int
}

// HasCredentials reports whether either an API key or an OAuth token pair is configured.
func (c YouTubeConfig) HasCredentials() bool {
	return c.APIKey != "" || (c.CredentialsFile != "" && c.TokenFile != "")
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type ServerConfig struct {
	Addr string
}

type AnalysisConfig struct {
	TotalTimeout    time.Duration
	CacheTTL        time.Duration
	DegradedTTL     time.Duration
	RankCap         int
	StatsBatchLimit int
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		YouTube: YouTubeConfig{
			APIKey:          getEnv("YOUTUBE_API_KEY", ""),
			CredentialsFile: getEnv("YOUTUBE_CREDENTIALS_FILE", ""),
			TokenFile:       getEnv("YOUTUBE_TOKEN_FILE", ""),
			Endpoint:        getEnv("YOUTUBE_ENDPOINT", ""),
			RequestTimeout:  time.Duration(getEnvInt("YOUTUBE_REQUEST_TIMEOUT_MS", int(constants.TimeoutConfig.UpstreamRequest/time.Millisecond))) * time.Millisecond,
			DailyQuota:      getEnvInt("YOUTUBE_DAILY_QUOTA", constants.QuotaConfig.DailyLimit),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Analysis: AnalysisConfig{
			TotalTimeout:    time.Duration(getEnvInt("ANALYSIS_TIMEOUT_SECONDS", int(constants.TimeoutConfig.TotalAnalysis/time.Second))) * time.Second,
			CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_SECONDS", int(constants.CacheTTL.FullResult/time.Second))) * time.Second,
			DegradedTTL:     time.Duration(getEnvInt("CACHE_DEGRADED_TTL_SECONDS", int(constants.CacheTTL.DegradedResult/time.Second))) * time.Second,
			RankCap:         getEnvInt("RANK_CAP", constants.IngestionConfig.RankCap),
			StatsBatchLimit: getEnvInt("STATS_CONCURRENCY", constants.BatchConfig.Concurrency),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getEnvInt("RATE_LIMIT_MAX", constants.RateLimitConfig.MaxRequests),
			Window:      time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", int(constants.RateLimitConfig.Window/time.Second))) * time.Second,
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks structural settings only. Missing YouTube credentials are
// reported per request as missing_api_key so the server can still start.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.Analysis.TotalTimeout <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT_SECONDS must be positive")
	}
	if c.YouTube.RequestTimeout <= 0 {
		return fmt.Errorf("YOUTUBE_REQUEST_TIMEOUT_MS must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	if c.Analysis.CacheTTL <= 0 || c.Analysis.DegradedTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Analysis.RankCap <= 0 {
		return fmt.Errorf("RANK_CAP must be positive")
	}
	if c.Analysis.StatsBatchLimit <= 0 {
		return fmt.Errorf("STATS_CONCURRENCY must be positive")
	}
	if (c.YouTube.CredentialsFile == "") != (c.YouTube.TokenFile == "") {
		return fmt.Errorf("YOUTUBE_CREDENTIALS_FILE and YOUTUBE_TOKEN_FILE must be set together")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
