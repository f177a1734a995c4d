// Package pokemon implements the aggregation core: cache-aside resolution
// of pokemon entities from the upstream API and evolution chain flattening.
package pokemon

import (
	"encoding/json"
	"fmt"
)

// Light is the minimal cached projection of a pokemon, derived from the
// upstream detail document.
type Light struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	Icon            string `json:"icon"`
	OfficialArtwork string `json:"officialArtwork"`
}

// SpeciesRef identifies the taxonomic grouping of a pokemon. The species
// document is the road to egg groups and the evolution chain.
type SpeciesRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Full is the complete aggregated record for a pokemon.
type Full struct {
	Light
	Height     int        `json:"height"`
	Weight     int        `json:"weight"`
	Species    SpeciesRef `json:"species"`
	EggGroups  []string   `json:"eggGroups"`
	Abilities  []string   `json:"abilities"`
	Types      string     `json:"types"`
	Evolutions []Light    `json:"evolutions"`
}

// unmarshalLight decodes a cached light entry.
func unmarshalLight(data string, v *Light) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("unmarshal light entry: %w", err)
	}
	return nil
}

// Upstream document shapes. Only the consumed fields are declared.

type detailDoc struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Height  int    `json:"height"`
	Weight  int    `json:"weight"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		Other        struct {
			OfficialArtwork struct {
				FrontDefault string `json:"front_default"`
			} `json:"official-artwork"`
		} `json:"other"`
	} `json:"sprites"`
	Types []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Abilities []struct {
		Ability struct {
			Name string `json:"name"`
		} `json:"ability"`
	} `json:"abilities"`
	Species SpeciesRef `json:"species"`
}

type speciesDoc struct {
	EggGroups []struct {
		Name string `json:"name"`
	} `json:"egg_groups"`
	EvolutionChain struct {
		URL string `json:"url"`
	} `json:"evolution_chain"`
}

type chainDoc struct {
	Chain chainNode `json:"chain"`
}

type chainNode struct {
	Species   SpeciesRef  `json:"species"`
	EvolvesTo []chainNode `json:"evolves_to"`
}

type listDoc struct {
	Results []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"results"`
}
