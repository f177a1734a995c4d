package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewLimiter_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewLimiter should panic with nil redis client")
		}
	}()
	NewLimiter(nil, DefaultConfig())
}

func TestAllow_WithinBudget(t *testing.T) {
	limiter := NewLimiter(setupTestRedis(t), Config{
		Budget:    3,
		Window:    time.Hour, // no rollover during the test
		KeyPrefix: "test:rate_limit",
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("Request %d should be within budget", i+1)
		}
	}

	allowed, retryIn, err := limiter.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Error("Request beyond budget should be denied")
	}
	if retryIn <= 0 || retryIn > time.Hour {
		t.Errorf("Unexpected retry hint: %v", retryIn)
	}
}

func TestWait_BlocksUntilNextWindow(t *testing.T) {
	limiter := NewLimiter(setupTestRedis(t), Config{
		Budget:    1,
		Window:    200 * time.Millisecond,
		KeyPrefix: "test:rate_limit",
	})
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("First Wait failed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Second Wait failed: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Wait took too long: %v", time.Since(start))
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	limiter := NewLimiter(setupTestRedis(t), Config{
		Budget:    1,
		Window:    time.Hour,
		KeyPrefix: "test:rate_limit",
	})

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("First Wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Wait should fail when the context expires before the window rolls over")
	}
}
