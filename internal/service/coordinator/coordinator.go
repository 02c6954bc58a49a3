package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/service/cache"
	"github.com/enzo-prism/density/internal/service/ratelimit"
	"github.com/enzo-prism/density/internal/service/youtube"
	"github.com/enzo-prism/density/internal/util"
	"github.com/enzo-prism/density/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	rateLimitedMessage     = "Too many requests. Please wait a minute and try again."
	channelRequiredMessage = "Channel input is required."
)

type Resolver interface {
	ResolveChannel(ctx context.Context, lookup domain.ChannelLookup) (*domain.ResolvedChannel, error)
}

type Runner interface {
	Analyze(ctx context.Context, req domain.AnalyzeRequest, resolved *domain.ResolvedChannel) (*domain.AnalyzeResponse, error)
}

type Options struct {
	TotalTimeout time.Duration
	CacheTTL     time.Duration
	DegradedTTL  time.Duration
	// HasCredentials is false when no YouTube credentials are configured;
	// requests then fail after input validation.
	HasCredentials bool
}

// Coordinator validates requests, enforces the per-client rate limit and
// memoizes analyses per (channel, timezone, window). Identical concurrent
// requests share one computation.
type Coordinator struct {
	resolver Resolver
	runner   Runner
	store    cache.Store
	limiter  ratelimit.Limiter
	group    singleflight.Group
	opts     Options
	logger   *zap.Logger
}

func New(resolver Resolver, runner Runner, store cache.Store, limiter ratelimit.Limiter, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TotalTimeout <= 0 {
		opts.TotalTimeout = constants.TimeoutConfig.TotalAnalysis
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = constants.CacheTTL.FullResult
	}
	if opts.DegradedTTL <= 0 {
		opts.DegradedTTL = constants.CacheTTL.DegradedResult
	}
	return &Coordinator{
		resolver: resolver,
		runner:   runner,
		store:    store,
		limiter:  limiter,
		opts:     opts,
		logger:   logger,
	}
}

// CacheKey identifies a memoized analysis.
func CacheKey(channelID string, req domain.AnalyzeRequest) string {
	return fmt.Sprintf("%s:%s:%s", channelID, req.Timezone, req.WindowKey())
}

func (c *Coordinator) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	if err := c.checkRateLimit(ctx, req.ClientID); err != nil {
		return nil, err
	}

	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Range != domain.RangeLifetime {
		req.Range = domain.RangeDays
		days := req.Days
		if days == 0 {
			req.Days = util.ClampWindow(nil)
		} else {
			req.Days = util.ClampWindow(&days)
		}
	}

	if strings.TrimSpace(req.ChannelReference) == "" {
		return nil, errors.NewValidationError(channelRequiredMessage, "channel", req.ChannelReference)
	}
	if _, err := util.LoadTimezone(req.Timezone); err != nil {
		return nil, err
	}
	if !c.opts.HasCredentials {
		return nil, errors.NewConfigError("Server misconfigured: missing YOUTUBE_API_KEY.", "YOUTUBE_API_KEY")
	}
	lookup, err := youtube.ParseChannelReference(req.ChannelReference)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.opts.TotalTimeout)
	resolveCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	resolved, err := c.resolver.ResolveChannel(resolveCtx, lookup)
	if err != nil {
		return nil, err
	}

	key := CacheKey(resolved.Channel.ID, req)
	var cached domain.AnalyzeResponse
	hit, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("Cache read failed, recomputing", zap.String("key", key), zap.Error(err))
	}
	if hit {
		c.logger.Debug("Cache hit", zap.String("key", key))
		return &cached, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// Detached from the first caller so its cancellation does not fail
		// the other callers waiting on the same key.
		runCtx, cancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)
		defer cancel()
		return c.compute(runCtx, key, req, resolved)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("Joined in-flight analysis", zap.String("key", key))
		}
		return res.Val.(*domain.AnalyzeResponse), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) compute(ctx context.Context, key string, req domain.AnalyzeRequest, resolved *domain.ResolvedChannel) (*domain.AnalyzeResponse, error) {
	start := time.Now()
	resp, err := c.runner.Analyze(ctx, req, resolved)
	if err != nil {
		c.logger.Warn("Analysis failed",
			zap.String("key", key),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	ttl := c.opts.CacheTTL
	if resp.Degraded() {
		ttl = c.opts.DegradedTTL
	}
	if err := c.store.Set(context.WithoutCancel(ctx), key, resp, ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}

	c.logger.Info("Analysis cached",
		zap.String("key", key),
		zap.Duration("ttl", ttl),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func (c *Coordinator) checkRateLimit(ctx context.Context, clientID string) error {
	if c.limiter == nil {
		return nil
	}
	if clientID == "" {
		clientID = "unknown"
	}

	decision, err := c.limiter.Allow(ctx, clientID)
	if err != nil {
		c.logger.Warn("Rate limiter unavailable, allowing request", zap.String("client", clientID), zap.Error(err))
		return nil
	}
	if !decision.Allowed {
		return errors.NewRateLimitError(rateLimitedMessage, decision.RetryAfter)
	}
	return nil
}
