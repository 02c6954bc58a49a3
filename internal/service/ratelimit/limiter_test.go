package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter(3, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "1.2.3.4")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d should pass: %+v %v", i+1, d, err)
		}
		if d.Remaining != 2-i {
			t.Fatalf("unexpected remaining %d", d.Remaining)
		}
		now = now.Add(10 * time.Second)
	}

	d, _ := limiter.Allow(ctx, "1.2.3.4")
	if d.Allowed {
		t.Fatalf("4th request in the window must be rejected")
	}
	if d.RetryAfter != 30*time.Second {
		t.Fatalf("expected 30s retry-after, got %v", d.RetryAfter)
	}

	other, _ := limiter.Allow(ctx, "5.6.7.8")
	if !other.Allowed {
		t.Fatalf("other clients have their own window")
	}

	now = now.Add(30 * time.Second)
	d, _ = limiter.Allow(ctx, "1.2.3.4")
	if !d.Allowed {
		t.Fatalf("first request of the next window must pass")
	}
}

func TestMemoryLimiterDefaults(t *testing.T) {
	limiter := NewMemoryLimiter(0, 0)
	if limiter.max != 30 || limiter.period != time.Minute {
		t.Fatalf("unexpected defaults %d %v", limiter.max, limiter.period)
	}
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	addr := os.Getenv("DENSITY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DENSITY_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	limiter := NewRedisLimiter(client, 2, 300*time.Millisecond, zap.NewNop())
	clientID := uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, limiter.prefix+clientID) })

	for i := 0; i < 2; i++ {
		if d, err := limiter.Allow(ctx, clientID); err != nil || !d.Allowed {
			t.Fatalf("request %d should pass: %+v %v", i+1, d, err)
		}
	}

	d, err := limiter.Allow(ctx, clientID)
	if err != nil || d.Allowed || d.RetryAfter <= 0 {
		t.Fatalf("expected rejection with retry-after, got %+v %v", d, err)
	}

	time.Sleep(d.RetryAfter + 50*time.Millisecond)
	if d, err := limiter.Allow(ctx, clientID); err != nil || !d.Allowed {
		t.Fatalf("next window should pass: %+v %v", d, err)
	}
}
