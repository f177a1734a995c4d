package pokemon

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/pokedexlab/pokeapi-cache/pkg/cache"
	"github.com/pokedexlab/pokeapi-cache/pkg/upstream"
)

// DefaultBaseURL is the public PokeAPI base URL.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Config holds the service configuration.
type Config struct {
	// BaseURL of the upstream API (DefaultBaseURL when empty).
	BaseURL string

	// Upstream is the fetcher used on cache misses.
	Upstream *upstream.Client

	// Store is the cache store for all tiers.
	Store *cache.Store
}

// Service aggregates pokemon data from the upstream API and the cache
// store. All dependencies are injected; there is no shared global state.
type Service struct {
	upstream *upstream.Client
	store    *cache.Store
	baseURL  string
	logger   zerolog.Logger

	// group coalesces concurrent cache misses for the same key into a
	// single upstream fetch.
	group singleflight.Group
}

// NewService creates a new aggregation service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Upstream == nil {
		return nil, fmt.Errorf("upstream client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Service{
		upstream: cfg.Upstream,
		store:    cfg.Store,
		baseURL:  baseURL,
		logger:   log.With().Str("component", "pokemon-service").Logger(),
	}, nil
}

// pokemonURL synthesizes the canonical detail URL for id.
func (s *Service) pokemonURL(id int) string {
	return fmt.Sprintf("%s/pokemon/%d", s.baseURL, id)
}

// idFromURL extracts the numeric identifier from the trailing path segment
// of an upstream resource URL.
func idFromURL(rawURL string) (int, error) {
	trimmed := strings.TrimRight(rawURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0, fmt.Errorf("no path segments in %q", rawURL)
	}
	id, err := strconv.Atoi(trimmed[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("non-numeric trailing segment in %q", rawURL)
	}
	return id, nil
}

// lightFromDetail derives the light projection from a detail document.
func (s *Service) lightFromDetail(d *detailDoc) Light {
	return Light{
		ID:              d.ID,
		Name:            d.Name,
		URL:             s.pokemonURL(d.ID),
		Icon:            d.Sprites.FrontDefault,
		OfficialArtwork: d.Sprites.Other.OfficialArtwork.FrontDefault,
	}
}

// LightByID resolves the light projection for id, cache first.
func (s *Service) LightByID(ctx context.Context, id int) (Light, error) {
	if id < 1 {
		return Light{}, &ValidationError{Reason: "id must be positive"}
	}

	key := cache.LightKey(id)

	var cached Light
	err := s.store.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("Cache get error")
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		var detail detailDoc
		if err := s.upstream.GetJSON(ctx, s.pokemonURL(id), &detail); err != nil {
			return nil, err
		}

		light := s.lightFromDetail(&detail)
		if err := s.store.SetJSON(ctx, key, light, cache.EntityTTL); err != nil {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("Cache write failed")
		}
		return light, nil
	})
	if err != nil {
		return Light{}, err
	}

	return v.(Light), nil
}

// LightsByIDs resolves light projections for ids, preserving input order.
// The cache is consulted first in a single batch read; misses are resolved
// individually upstream. Identifiers that cannot be resolved are dropped.
func (s *Service) LightsByIDs(ctx context.Context, ids []int) ([]Light, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{Reason: "empty id list"}
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.LightKey(id)
	}

	resolved := make(map[int]Light, len(ids))

	values, err := s.store.BatchGet(ctx, keys)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Batch cache read failed, resolving all ids upstream")
		values = make([]*string, len(ids))
	}

	var missing []int
	for i, value := range values {
		if value == nil {
			missing = append(missing, ids[i])
			continue
		}
		var light Light
		if err := unmarshalLight(*value, &light); err != nil {
			s.logger.Warn().Err(err).Str("cache_key", keys[i]).Msg("Corrupt cache entry, refetching")
			missing = append(missing, ids[i])
			continue
		}
		resolved[light.ID] = light
	}

	for _, id := range missing {
		light, err := s.LightByID(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Int("pokemon_id", id).Msg("Dropping unresolvable id")
			continue
		}
		resolved[light.ID] = light
	}

	// Reassemble in the exact input order.
	out := make([]Light, 0, len(ids))
	for _, id := range ids {
		if light, ok := resolved[id]; ok {
			out = append(out, light)
		}
	}
	return out, nil
}

// FullByURL resolves the full aggregate for an upstream detail URL,
// cache first. On a miss it assembles the aggregate from the detail,
// species and evolution chain documents, caches it, and also backfills
// the light projection from the same detail document if absent.
func (s *Service) FullByURL(ctx context.Context, rawURL string) (Full, error) {
	prefix := s.baseURL + "/pokemon/"
	if !strings.HasPrefix(rawURL, prefix) {
		return Full{}, &ValidationError{Reason: "not a pokemon detail URL"}
	}
	id, err := idFromURL(rawURL)
	if err != nil {
		return Full{}, &ValidationError{Reason: "cannot extract id from URL"}
	}

	fullKey := cache.FullKey(id)

	var cached Full
	err = s.store.GetJSON(ctx, fullKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("cache_key", fullKey).Msg("Cache get error")
	}

	v, err, _ := s.group.Do(fullKey, func() (any, error) {
		return s.assembleFull(ctx, id, rawURL)
	})
	if err != nil {
		return Full{}, err
	}

	return v.(Full), nil
}

// FullByID resolves the full aggregate via the canonical detail URL.
func (s *Service) FullByID(ctx context.Context, id int) (Full, error) {
	if id < 1 {
		return Full{}, &ValidationError{Reason: "id must be positive"}
	}
	return s.FullByURL(ctx, s.pokemonURL(id))
}

// assembleFull performs the upstream aggregation for one pokemon:
// detail, then species (egg groups + evolution chain URL), then the
// flattened evolution chain.
func (s *Service) assembleFull(ctx context.Context, id int, rawURL string) (Full, error) {
	var detail detailDoc
	if err := s.upstream.GetJSON(ctx, rawURL, &detail); err != nil {
		return Full{}, err
	}

	var species speciesDoc
	if err := s.upstream.GetJSON(ctx, detail.Species.URL, &species); err != nil {
		return Full{}, err
	}

	eggGroups := make([]string, 0, len(species.EggGroups))
	for _, g := range species.EggGroups {
		eggGroups = append(eggGroups, g.Name)
	}

	evolutions, err := s.evolutionChain(ctx, species.EvolutionChain.URL)
	if err != nil {
		return Full{}, err
	}

	abilities := make([]string, 0, len(detail.Abilities))
	for _, a := range detail.Abilities {
		abilities = append(abilities, a.Ability.Name)
	}

	typeNames := make([]string, 0, len(detail.Types))
	for _, t := range detail.Types {
		typeNames = append(typeNames, t.Type.Name)
	}

	full := Full{
		Light: Light{
			ID:              detail.ID,
			Name:            detail.Name,
			URL:             rawURL,
			Icon:            detail.Sprites.FrontDefault,
			OfficialArtwork: detail.Sprites.Other.OfficialArtwork.FrontDefault,
		},
		Height:     detail.Height,
		Weight:     detail.Weight,
		Species:    detail.Species,
		EggGroups:  eggGroups,
		Abilities:  abilities,
		Types:      strings.Join(typeNames, ","),
		Evolutions: evolutions,
	}

	if err := s.store.SetJSON(ctx, cache.FullKey(id), full, cache.EntityTTL); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", cache.FullKey(id)).Msg("Cache write failed")
	}

	// Backfill the light tier from the detail document already in hand,
	// saving a second upstream call.
	lightKey := cache.LightKey(id)
	var existing Light
	if err := s.store.GetJSON(ctx, lightKey, &existing); errors.Is(err, cache.ErrCacheMiss) {
		light := s.lightFromDetail(&detail)
		if err := s.store.SetJSON(ctx, lightKey, light, cache.EntityTTL); err != nil {
			s.logger.Warn().Err(err).Str("cache_key", lightKey).Msg("Cache write failed")
		}
	}

	return full, nil
}

// BasicList fetches one upstream list page and resolves a light projection
// per entry (cache-or-fetch). Entries whose id cannot be parsed from their
// detail URL are skipped. The raw upstream page itself is not cached.
func (s *Service) BasicList(ctx context.Context, limit, offset int) ([]Light, error) {
	url := fmt.Sprintf("%s/pokemon?limit=%d&offset=%d", s.baseURL, limit, offset)

	var page listDoc
	if err := s.upstream.GetJSON(ctx, url, &page); err != nil {
		return nil, err
	}

	lights := make([]Light, 0, len(page.Results))
	for _, item := range page.Results {
		id, err := idFromURL(item.URL)
		if err != nil {
			s.logger.Debug().Str("url", item.URL).Msg("Skipping list entry with unparsable id")
			continue
		}
		light, err := s.LightByID(ctx, id)
		if err != nil {
			return nil, err
		}
		lights = append(lights, light)
	}
	return lights, nil
}

// CachedList is the list-tier cache-aside wrapper around BasicList.
// The second return value reports whether the page came from cache.
func (s *Service) CachedList(ctx context.Context, limit, offset int) ([]Light, bool, error) {
	if limit < 1 || offset < 0 {
		return nil, false, &ValidationError{Reason: "invalid limit/offset"}
	}

	key := cache.ListKey(limit, offset)

	var cached []Light
	err := s.store.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, true, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("Cache get error")
	}

	lights, err := s.BasicList(ctx, limit, offset)
	if err != nil {
		return nil, false, err
	}

	if err := s.store.SetJSON(ctx, key, lights, cache.ListTTL); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("Cache write failed")
	}
	return lights, false, nil
}

// CachedLights is the legacy cache-only bulk read over the id range
// [offset, offset+limit). Unlike every other read path it treats a missing
// key as a failure: it returns an error wrapping cache.ErrCacheMiss naming
// the first absent key, and never touches the upstream API.
func (s *Service) CachedLights(ctx context.Context, limit, offset int) ([]Light, error) {
	if limit < 1 || offset < 0 {
		return nil, &ValidationError{Reason: "invalid limit/offset"}
	}

	keys := make([]string, 0, limit)
	for id := offset; id < offset+limit; id++ {
		keys = append(keys, cache.LightKey(id))
	}

	values, err := s.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	lights := make([]Light, 0, len(values))
	for i, value := range values {
		if value == nil {
			return nil, fmt.Errorf("%w: missing %s", cache.ErrCacheMiss, keys[i])
		}
		var light Light
		if err := unmarshalLight(*value, &light); err != nil {
			return nil, err
		}
		lights = append(lights, light)
	}
	return lights, nil
}
