package cache

import (
	"fmt"
	"strings"
	"time"
)

// TTLs for the cache tiers. The list TTL is deliberately short: upstream
// pagination may grow over time, so list pages go stale faster than the
// per-pokemon entries they point at.
const (
	// EntityTTL applies to light and full pokemon entries.
	EntityTTL = time.Hour

	// ListTTL applies to paginated list entries.
	ListTTL = 5 * time.Minute
)

// LightKey returns the cache key for the light projection of a pokemon.
func LightKey(id int) string {
	return fmt.Sprintf("pokemon:%d:light", id)
}

// FullKey returns the cache key for the full aggregate of a pokemon.
func FullKey(id int) string {
	return fmt.Sprintf("pokemon:%d:full", id)
}

// ListKey returns the cache key for one page of the pokemon list.
func ListKey(limit, offset int) string {
	return fmt.Sprintf("pokemon:list:%d:%d", limit, offset)
}

// keyScope extracts the scope label (light/full/list) from a cache key for
// metrics. Unknown shapes are reported as "other".
func keyScope(key string) string {
	if strings.HasPrefix(key, "pokemon:list:") {
		return "list"
	}
	switch {
	case strings.HasSuffix(key, ":light"):
		return "light"
	case strings.HasSuffix(key, ":full"):
		return "full"
	default:
		return "other"
	}
}
