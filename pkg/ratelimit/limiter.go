// Package ratelimit paces outgoing requests to the upstream API with a
// fixed per-window budget. The window counter lives in Redis, so the
// budget is shared across every process using the same cache store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for request pacing.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_rate_limit_waits_total",
		Help: "Total number of requests delayed by the upstream request budget",
	})

	rateLimitWindowUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokeapi_rate_limit_window_usage",
		Help: "Requests consumed in the current rate limit window",
	})
)

// Config holds the limiter configuration.
type Config struct {
	// Budget is the number of upstream requests allowed per window.
	Budget int

	// Window is the budget window length.
	Window time.Duration

	// KeyPrefix namespaces the Redis counters.
	KeyPrefix string
}

// DefaultConfig returns a conservative default: the public PokeAPI asks
// clients to stay well below abusive request rates.
func DefaultConfig() Config {
	return Config{
		Budget:    100,
		Window:    time.Minute,
		KeyPrefix: "pokeapi:rate_limit",
	}
}

// Limiter gates upstream requests against the shared window budget.
// It satisfies the upstream fetcher's Pacer interface.
type Limiter struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// NewLimiter creates a new limiter over the given Redis client.
func NewLimiter(redisClient *redis.Client, cfg Config) *Limiter {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "pokeapi:rate_limit"
	}

	return &Limiter{
		redis:  redisClient,
		config: cfg,
		logger: log.With().Str("component", "ratelimit").Logger(),
	}
}

// windowKey returns the Redis counter key for the current window.
func (l *Limiter) windowKey(now time.Time) string {
	return fmt.Sprintf("%s:%d", l.config.KeyPrefix, now.UnixNano()/int64(l.config.Window))
}

// Allow consumes one slot from the current window. When the budget is
// spent it reports false together with the time until the window rolls
// over.
func (l *Limiter) Allow(ctx context.Context) (bool, time.Duration, error) {
	now := time.Now()
	key := l.windowKey(now)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		// First hit in this window; expire the counter shortly after the
		// window ends so stale windows clean themselves up.
		if err := l.redis.Expire(ctx, key, l.config.Window*2).Err(); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("Failed to set window expiry")
		}
	}

	rateLimitWindowUsage.Set(float64(count))

	if count > int64(l.config.Budget) {
		elapsed := now.UnixNano() % int64(l.config.Window)
		retryIn := l.config.Window - time.Duration(elapsed)
		return false, retryIn, nil
	}

	return true, 0, nil
}

// Wait blocks until a request slot is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		allowed, retryIn, err := l.Allow(ctx)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		rateLimitWaitsTotal.Inc()
		l.logger.Debug().
			Dur("retry_in", retryIn).
			Int("budget", l.config.Budget).
			Msg("Upstream request budget spent, waiting for next window")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryIn):
		}
	}
}
