package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per client in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, clientID string) (Decision, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter held in process. A window starts
// with the first request from a client and lasts for the configured period.
type MemoryLimiter struct {
	max     int
	period  time.Duration
	windows map[string]*window
	now     func() time.Time
	mu      sync.Mutex
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = constants.RateLimitConfig.MaxRequests
	}
	if period <= 0 {
		period = constants.RateLimitConfig.Window
	}
	return &MemoryLimiter{
		max:     limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, clientID string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[clientID]
	if !ok || !now.Before(w.resetAt) {
		l.windows[clientID] = &window{count: 1, resetAt: now.Add(l.period)}
		return Decision{Allowed: true, Remaining: l.max - 1}, nil
	}

	if w.count >= l.max {
		return Decision{Allowed: false, RetryAfter: w.resetAt.Sub(now)}, nil
	}

	w.count++
	return Decision{Allowed: true, Remaining: l.max - w.count}, nil
}

var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares fixed windows across instances using INCR and PEXPIRE
// in a single script.
type RedisLimiter struct {
	client redis.UniversalClient
	max    int
	period time.Duration
	prefix string
	logger *zap.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client redis.UniversalClient, limit int, period time.Duration, logger *zap.Logger) *RedisLimiter {
	if limit <= 0 {
		limit = constants.RateLimitConfig.MaxRequests
	}
	if period <= 0 {
		period = constants.RateLimitConfig.Window
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		client: client,
		max:    limit,
		period: period,
		prefix: constants.RedisConfig.KeyPrefix + "ratelimit:",
		logger: logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	key := l.prefix + clientID
	values, err := fixedWindowScript.Run(ctx, l.client, []string{key}, l.period.Milliseconds()).Int64Slice()
	if err != nil {
		l.logger.Error("Rate limit check failed", zap.String("client", clientID), zap.Error(err))
		return Decision{}, errors.NewCacheError("rate limit check failed", "incr", key, err)
	}
	if len(values) != 2 {
		return Decision{}, errors.NewCacheError("unexpected rate limit reply", "incr", key, fmt.Errorf("got %d values", len(values)))
	}

	count, ttl := int(values[0]), time.Duration(values[1])*time.Millisecond
	if count > l.max {
		return Decision{Allowed: false, RetryAfter: max(ttl, time.Millisecond)}, nil
	}
	return Decision{Allowed: true, Remaining: l.max - count}, nil
}
