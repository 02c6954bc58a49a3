package app

import (
	"context"
	"fmt"

	"github.com/enzo-prism/density/internal/config"
	"github.com/enzo-prism/density/internal/server"
	"github.com/enzo-prism/density/internal/service/analysis"
	"github.com/enzo-prism/density/internal/service/cache"
	"github.com/enzo-prism/density/internal/service/coordinator"
	"github.com/enzo-prism/density/internal/service/ratelimit"
	"github.com/enzo-prism/density/internal/service/youtube"
	"go.uber.org/zap"
)

// Container bundles assembled services for constructing runtime components
// like the HTTP server.
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Coordinator *coordinator.Coordinator

	closers []func()
}

// NewServer wires the HTTP delivery layer onto the coordinator.
func (c *Container) NewServer() (*server.Server, error) {
	if c == nil || c.Coordinator == nil {
		return nil, fmt.Errorf("coordinator not initialized")
	}
	return server.New(c.Coordinator, c.Config.Server.Addr, c.Logger), nil
}

// Close releases infrastructure in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles all infrastructure services. Redis is optional: without it
// the cache and rate limiter stay in process.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Upstream
	var api youtube.API
	if cfg.YouTube.HasCredentials() {
		client, clientErr := youtube.NewClient(ctx, youtube.ClientConfig{
			APIKey:          cfg.YouTube.APIKey,
			CredentialsFile: cfg.YouTube.CredentialsFile,
			TokenFile:       cfg.YouTube.TokenFile,
			Endpoint:        cfg.YouTube.Endpoint,
			RequestTimeout:  cfg.YouTube.RequestTimeout,
			DailyQuota:      cfg.YouTube.DailyQuota,
		}, logger)
		if clientErr != nil {
			return nil, fmt.Errorf("failed to create youtube client: %w", clientErr)
		}
		api = client
	} else {
		logger.Warn("No YouTube credentials configured, analyze requests will fail with missing_api_key")
	}

	youtubeSvc := youtube.NewService(api, logger, cfg.Analysis.StatsBatchLimit)
	analyzer := analysis.NewAnalyzer(youtubeSvc, logger, cfg.Analysis.RankCap)

	// Cache and rate limiting
	var (
		store   cache.Store
		limiter ratelimit.Limiter
	)
	if cfg.Redis.Enabled {
		client, redisErr := cache.NewRedisClient(ctx, cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if redisErr != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", redisErr)
		}
		closers = append(closers, func() {
			_ = client.Close()
		})

		store = cache.NewRedisStore(client, logger)
		limiter = ratelimit.NewRedisLimiter(client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger)
	} else {
		store = cache.NewMemoryStore()
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		logger.Info("Using in-process cache and rate limiter")
	}

	coord := coordinator.New(youtubeSvc, analyzer, store, limiter, coordinator.Options{
		TotalTimeout:   cfg.Analysis.TotalTimeout,
		CacheTTL:       cfg.Analysis.CacheTTL,
		DegradedTTL:    cfg.Analysis.DegradedTTL,
		HasCredentials: cfg.YouTube.HasCredentials(),
	}, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Coordinator: coord,
		closers:     closers,
	}, nil
}
