// Package cache provides the Redis-backed cache store adapter.
//
// The store exposes three string-keyed primitives (get, set-with-TTL,
// positional batch-get) plus thin JSON helpers on top of them. Each call is
// independently atomic at the Redis level only; no transaction spans
// multiple keys, and a cache entry is always a full overwrite.
//
// Key namespace (see key.go):
//
//	pokemon:{id}:light            serialized light projection, TTL 1h
//	pokemon:{id}:full             serialized full aggregate, TTL 1h
//	pokemon:list:{limit}:{offset} serialized light list page, TTL 5m
//
// A missing key is reported as ErrCacheMiss. Callers on the read path treat
// it as "no value", not as a failure.
//
// # Basic Usage
//
//	store := cache.NewStore(redisClient)
//
//	var light pokemon.Light
//	err := store.GetJSON(ctx, cache.LightKey(25), &light)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch upstream, then:
//		_ = store.SetJSON(ctx, cache.LightKey(25), light, cache.EntityTTL)
//	}
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - pokeapi_cache_hits_total{scope} - cache hits by key scope
//   - pokeapi_cache_misses_total{scope} - cache misses by key scope
//   - pokeapi_cache_errors_total{operation} - Redis operation errors
package cache
