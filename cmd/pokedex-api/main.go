package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pokedexlab/pokeapi-cache/pkg/cache"
	"github.com/pokedexlab/pokeapi-cache/pkg/logging"
	"github.com/pokedexlab/pokeapi-cache/pkg/pokemon"
	"github.com/pokedexlab/pokeapi-cache/pkg/ratelimit"
	"github.com/pokedexlab/pokeapi-cache/pkg/search"
	"github.com/pokedexlab/pokeapi-cache/pkg/upstream"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total inbound HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Inbound HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
)

// firstPageKey caches the fixed /pokemons response separately from the
// parameterized list tier.
const firstPageKey = "pokemons"

type server struct {
	service  *pokemon.Service
	searcher *search.Searcher
	store    *cache.Store
	logger   zerolog.Logger
}

func main() {
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	baseURL := getEnv("POKEAPI_BASE_URL", pokemon.DefaultBaseURL)
	logLevel := getEnv("LOG_LEVEL", "info")
	userAgent := getEnv("USER_AGENT", "pokeapi-cache/0.1.0")

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(logLevel)
	logCfg.Pretty = getEnv("LOG_PRETTY", "") != ""
	logger := logging.Setup(logCfg)

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("redis_url", redisURL).Msg("Connected to Redis")

	store := cache.NewStore(redisClient)
	limiter := ratelimit.NewLimiter(redisClient, ratelimit.DefaultConfig())

	upstreamCfg := upstream.DefaultConfig()
	upstreamCfg.UserAgent = userAgent
	upstreamCfg.Pacer = limiter
	fetcher := upstream.New(upstreamCfg)

	service, err := pokemon.NewService(pokemon.Config{
		BaseURL:  baseURL,
		Upstream: fetcher,
		Store:    store,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create pokemon service")
	}

	index, err := search.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load search index")
	}
	searcher := search.NewSearcher(index, service, baseURL)

	srv := &server{
		service:  service,
		searcher: searcher,
		store:    store,
		logger:   logger,
	}

	addr := ":" + port
	logger.Info().Str("addr", addr).Str("base_url", baseURL).Msg("Starting pokedex API server")

	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("GET /metrics", s.instrument("/metrics", promhttp.Handler().ServeHTTP))
	mux.HandleFunc("GET /pokemons", s.instrument("/pokemons", s.handlePokemons))
	mux.HandleFunc("GET /getListPokemon", s.instrument("/getListPokemon", s.handleListPokemon))
	mux.HandleFunc("GET /getPokemon/{id}", s.instrument("/getPokemon", s.handleGetPokemon))
	mux.HandleFunc("GET /searchPokemon/{name}", s.instrument("/searchPokemon", s.handleSearchPokemon))
	mux.HandleFunc("GET /cache-test", s.instrument("/cache-test", s.handleCacheTest))
	return mux
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with request count and latency metrics.
// The endpoint label is the route pattern, not the raw path, to keep
// metric cardinality bounded.
func (s *server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handlePokemons serves the fixed first page (limit 20, offset 0) under
// its own short-lived cache key.
func (s *server) handlePokemons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cached []pokemon.Light
	err := s.store.GetJSON(ctx, firstPageKey, &cached)
	if err == nil {
		writeSourced(w, "cache", cached)
		return
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.writeError(w, r, err)
		return
	}

	lights, err := s.service.BasicList(ctx, 20, 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetJSON(ctx, firstPageKey, lights, cache.ListTTL); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cache first page")
	}
	writeSourced(w, "api", lights)
}

func (s *server) handleListPokemon(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
		return
	}

	lights, fromCache, err := s.service.CachedList(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	source := "api"
	if fromCache {
		source = "cache"
	}
	writeSourced(w, source, lights)
}

func (s *server) handleGetPokemon(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ctx := r.Context()

	// Source reporting reflects whether the full tier was already warm
	// before this request.
	source := "api"
	if _, err := s.store.Get(ctx, cache.FullKey(id)); err == nil {
		source = "cache"
	}

	full, err := s.service.FullByID(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSourced(w, source, full)
}

func (s *server) handleSearchPokemon(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid name"})
		return
	}

	results, err := s.searcher.Search(r.Context(), name, search.DefaultLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(results) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "pokemon not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": results})
}

// handleCacheTest performs a Redis round-trip probe.
func (s *server) handleCacheTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.store.Set(ctx, "test_key", "Hello, Redis!", time.Minute); err != nil {
		s.writeError(w, r, err)
		return
	}
	value, err := s.store.Get(ctx, "test_key")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Cache is not working!"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache is working!", "value": value})
}

// writeError maps service errors to HTTP status codes: validation
// failures are client errors, upstream exhaustion is a bad gateway and
// everything else is internal.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case pokemon.IsValidationError(err):
		status = http.StatusBadRequest
	case upstream.IsUpstreamError(err):
		status = http.StatusBadGateway
	}

	s.logger.Error().
		Err(err).
		Str("path", r.URL.Path).
		Int("status_code", status).
		Msg("Request failed")

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeSourced(w http.ResponseWriter, source string, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"source": source, "data": data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
