// Package metrics provides the centralized Prometheus metrics registry for
// the pokeapi-cache service. Metrics are defined in their respective
// packages (upstream, cache, ratelimit, cmd) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Upstream Metrics (pkg/upstream):
//   - pokeapi_requests_total{status} (Counter): Upstream requests by HTTP status or "network_error"
//   - pokeapi_request_duration_seconds (Histogram): Upstream request duration, all attempts included
//   - pokeapi_retries_total (Counter): Retry attempts against the upstream API
//   - pokeapi_retry_exhausted_total (Counter): Requests that exhausted all retry attempts
//
// Cache Metrics (pkg/cache):
//   - pokeapi_cache_hits_total{scope} (Counter): Cache hits by key scope (light, full, list)
//   - pokeapi_cache_misses_total{scope} (Counter): Cache misses by key scope
//   - pokeapi_cache_errors_total{operation} (Counter): Redis operation errors (get, set, batch_get)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - pokeapi_rate_limit_waits_total (Counter): Requests delayed by the upstream request budget
//   - pokeapi_rate_limit_window_usage (Gauge): Requests consumed in the current window
//
// HTTP Metrics (cmd/pokedex-api):
//   - http_requests_total{method, endpoint, status} (Counter): Inbound requests
//   - http_request_duration_seconds{method, endpoint} (Histogram): Inbound request latency
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(pokeapi_cache_hits_total[5m])) /
//   (sum(rate(pokeapi_cache_hits_total[5m])) + sum(rate(pokeapi_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   rate(pokeapi_retry_exhausted_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket[5m]))
//
//   # Inbound P95 Latency per Endpoint
//   histogram_quantile(0.95, sum by (le, endpoint) (rate(http_request_duration_seconds_bucket[5m])))
