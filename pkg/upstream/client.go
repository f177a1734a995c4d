// Package upstream provides the HTTP fetcher for the PokeAPI with bounded
// retry, linear backoff and request pacing.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream fetch operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_requests_total",
		Help: "Total PokeAPI requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokeapi_request_duration_seconds",
		Help:    "PokeAPI request duration in seconds (all attempts included)",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	upstreamRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_retries_total",
		Help: "Total number of retry attempts against the PokeAPI",
	})

	upstreamRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_retry_exhausted_total",
		Help: "Total number of requests that exhausted all retry attempts",
	})
)

// Pacer gates outgoing upstream requests. Implementations may block until
// a request slot is available or fail fast when the budget is spent.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Config holds the fetcher configuration.
type Config struct {
	// MaxAttempts is the total number of attempts per request (including the first).
	MaxAttempts int

	// BackoffBase is the base delay between attempts. The wait before
	// attempt n+1 is BackoffBase * n: linear, not exponential, so the
	// worst-case latency stays bounded and predictable.
	BackoffBase time.Duration

	// Timeout is the per-attempt request timeout.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// Pacer, if set, is consulted before every attempt.
	Pacer Pacer
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BackoffBase: 500 * time.Millisecond,
		Timeout:     10 * time.Second,
		UserAgent:   "pokeapi-cache/0.1.0",
	}
}

// Client fetches JSON documents from the upstream API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new upstream client.
func New(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{},
		config:     cfg,
		logger:     log.With().Str("component", "upstream").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetJSON fetches url and decodes the response body into v.
// A non-2xx status, a transport failure or an undecodable body counts as a
// failed attempt; after MaxAttempts failures an *UpstreamError carrying the
// last cause is returned.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	var lastErr error

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if c.config.Pacer != nil {
			if err := c.config.Pacer.Wait(ctx); err != nil {
				return fmt.Errorf("request pacing: %w", err)
			}
		}

		body, err := c.fetchOnce(ctx, url)
		if err == nil {
			err = json.Unmarshal(body, v)
			if err == nil {
				if attempt > 1 {
					c.logger.Info().
						Str("url", url).
						Int("attempt", attempt).
						Msg("Request succeeded after retry")
				}
				return nil
			}
			// A 2xx response with a body that does not decode is treated
			// the same as any other failed attempt: a later try may get a
			// well-formed document.
			err = fmt.Errorf("decode %s: %w", url, err)
		}

		lastErr = err
		c.logger.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Msg("Upstream request failed")

		if attempt >= c.config.MaxAttempts {
			break
		}

		upstreamRetriesTotal.Inc()

		// Linear backoff: base * attempt number.
		backoff := c.config.BackoffBase * time.Duration(attempt)
		select {
		case <-ctx.Done():
			return &UpstreamError{URL: url, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}

	upstreamRetryExhaustedTotal.Inc()
	c.logger.Error().
		Err(lastErr).
		Str("url", url).
		Int("max_attempts", c.config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return &UpstreamError{URL: url, Attempts: c.config.MaxAttempts, Err: fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)}
}

// fetchOnce performs a single GET attempt with the per-attempt timeout.
func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d GET %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}
