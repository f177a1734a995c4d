package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pokedexlab/pokeapi-cache/pkg/pokemon"
)

// DefaultLimit is the result count used when the caller passes limit <= 0.
const DefaultLimit = 10

// Scoring weights of the composite relevance heuristic. The prefix and
// substring bonuses are mutually exclusive: the substring bonus fires only
// when the candidate does NOT start with the query. The exact bonus stacks
// with the prefix bonus (an exact match is its own prefix).
const (
	exactBonus        = 1000.0
	prefixWeight      = 800.0
	substringBase     = 600.0
	substringPenalty  = 5.0
	substringFloor    = 100.0
	tokenWeight       = 400.0
	similarityWeight  = 300.0
	lengthRatioWeight = 50.0
)

// Resolver hydrates a ranked identifier into a light projection
// (cache-or-fetch). *pokemon.Service satisfies it.
type Resolver interface {
	LightByID(ctx context.Context, id int) (pokemon.Light, error)
}

// Searcher ranks index entries against a query and hydrates the top
// results.
type Searcher struct {
	index    Index
	resolver Resolver
	baseURL  string
	logger   zerolog.Logger
}

// NewSearcher creates a searcher over the given index. baseURL is used to
// synthesize detail URLs for stub results (DefaultBaseURL when empty).
func NewSearcher(index Index, resolver Resolver, baseURL string) *Searcher {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = pokemon.DefaultBaseURL
	}
	return &Searcher{
		index:    index,
		resolver: resolver,
		baseURL:  baseURL,
		logger:   log.With().Str("component", "search").Logger(),
	}
}

type candidate struct {
	score float64
	name  string
	id    int
}

// Search ranks every index entry against query and returns the top limit
// results as light projections, relevance descending. An empty (or
// whitespace-only) query yields an empty result, not an error. Upstream
// failures during hydration are downgraded to minimal stub entries so one
// flaky fetch cannot fail the whole search.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]pokemon.Light, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []pokemon.Light{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryNorm := Normalize(query)

	scored := make([]candidate, 0, len(s.index))
	for name, id := range s.index {
		score := Score(queryNorm, Normalize(name))
		if score > 0 {
			scored = append(scored, candidate{score: score, name: name, id: id})
		}
	}
	if len(scored) == 0 {
		return []pokemon.Light{}, nil
	}

	// Score descending, name ascending on ties: the ordering must be
	// identical across runs and input orderings.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].name < scored[j].name
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]pokemon.Light, 0, len(scored))
	for _, c := range scored {
		light, err := s.resolver.LightByID(ctx, c.id)
		if err != nil {
			// Availability over completeness: serve what the index
			// already knows instead of failing the search.
			s.logger.Warn().
				Err(err).
				Int("pokemon_id", c.id).
				Str("query", queryNorm).
				Msg("Hydration failed, substituting stub entry")
			light = pokemon.Light{
				ID:   c.id,
				Name: c.name,
				URL:  fmt.Sprintf("%s/pokemon/%d", s.baseURL, c.id),
			}
		}
		results = append(results, light)
	}
	return results, nil
}

// Score computes the composite relevance of a normalized candidate against
// a normalized query. 0 means "no match".
func Score(queryNorm, candidateNorm string) float64 {
	if candidateNorm == "" {
		return 0
	}

	qLen := utf8.RuneCountInString(queryNorm)
	cLen := utf8.RuneCountInString(candidateNorm)

	score := 0.0

	if candidateNorm == queryNorm {
		score += exactBonus
	}

	if strings.HasPrefix(candidateNorm, queryNorm) {
		score += prefixWeight * float64(qLen) / float64(max(cLen, 1))
	} else if pos := strings.Index(candidateNorm, queryNorm); pos >= 0 {
		runePos := utf8.RuneCountInString(candidateNorm[:pos])
		bonus := substringBase - substringPenalty*float64(runePos)
		if bonus < substringFloor {
			bonus = substringFloor
		}
		score += bonus
	}

	qTokens := Tokens(queryNorm)
	if len(qTokens) > 0 {
		cTokens := make(map[string]bool)
		for _, tok := range Tokens(candidateNorm) {
			cTokens[tok] = true
		}
		overlap := 0
		seen := make(map[string]bool, len(qTokens))
		for _, tok := range qTokens {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			if cTokens[tok] {
				overlap++
			}
		}
		score += tokenWeight * float64(overlap) / float64(len(seen))
	}

	score += similarityWeight * Similarity(queryNorm, candidateNorm)

	minLen, maxLen := qLen, cLen
	if minLen > maxLen {
		minLen, maxLen = maxLen, minLen
	}
	if maxLen > 0 {
		score += lengthRatioWeight * float64(minLen) / float64(maxLen)
	}

	return score
}
