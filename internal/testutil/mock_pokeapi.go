// Package testutil provides testing utilities for the pokeapi-cache service.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockPokeAPI is a configurable mock upstream server for testing.
// It serves detail, species, evolution chain and list documents from
// in-memory fixtures and tracks request counts per path.
type MockPokeAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
}

// NewMockPokeAPI creates a new mock upstream server.
func NewMockPokeAPI() *MockPokeAPI {
	mock := &MockPokeAPI{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.hits[r.URL.Path]++
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Hits returns the number of requests seen for path.
func (m *MockPokeAPI) Hits(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits[path]
}

// TotalHits returns the number of requests seen across all paths.
func (m *MockPokeAPI) TotalHits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.hits {
		total += n
	}
	return total
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPokeAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetJSON serves a fixed JSON document for a path.
func (m *MockPokeAPI) SetJSON(path string, doc any) {
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal fixture for %s: %v", path, err))
	}
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(data)
	})
}

// SetStatus serves a fixed status code for a path.
func (m *MockPokeAPI) SetStatus(path string, status int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// AddPokemon registers detail, species and evolution chain fixtures for a
// pokemon. The species and chain ids mirror the pokemon id, matching the
// upstream convention for single-stage chains; multi-stage chains can be
// registered directly with SetJSON.
func (m *MockPokeAPI) AddPokemon(id int, name string, types []string, abilities []string, eggGroups []string) {
	m.SetJSON(fmt.Sprintf("/pokemon/%d", id), DetailDoc(m.URL(), id, name, types, abilities))
	m.SetJSON(fmt.Sprintf("/pokemon-species/%d", id), SpeciesDoc(m.URL(), id, eggGroups))
	m.SetJSON(fmt.Sprintf("/evolution-chain/%d", id), ChainDoc(ChainNode(m.URL(), id, name)))
}

// DetailDoc builds an upstream detail document fixture.
func DetailDoc(baseURL string, id int, name string, types []string, abilities []string) map[string]any {
	typeEntries := make([]map[string]any, 0, len(types))
	for _, t := range types {
		typeEntries = append(typeEntries, map[string]any{"type": map[string]any{"name": t}})
	}
	abilityEntries := make([]map[string]any, 0, len(abilities))
	for _, a := range abilities {
		abilityEntries = append(abilityEntries, map[string]any{"ability": map[string]any{"name": a}})
	}

	return map[string]any{
		"id":     id,
		"name":   name,
		"height": 7,
		"weight": 69,
		"sprites": map[string]any{
			"front_default": fmt.Sprintf("%s/sprites/%d.png", baseURL, id),
			"other": map[string]any{
				"official-artwork": map[string]any{
					"front_default": fmt.Sprintf("%s/artwork/%d.png", baseURL, id),
				},
			},
		},
		"types":     typeEntries,
		"abilities": abilityEntries,
		"species": map[string]any{
			"name": name,
			"url":  fmt.Sprintf("%s/pokemon-species/%d", baseURL, id),
		},
	}
}

// SpeciesDoc builds an upstream species document fixture.
func SpeciesDoc(baseURL string, id int, eggGroups []string) map[string]any {
	groups := make([]map[string]any, 0, len(eggGroups))
	for _, g := range eggGroups {
		groups = append(groups, map[string]any{"name": g})
	}
	return map[string]any{
		"egg_groups": groups,
		"evolution_chain": map[string]any{
			"url": fmt.Sprintf("%s/evolution-chain/%d", baseURL, id),
		},
	}
}

// ChainNode builds one node of an evolution chain fixture.
func ChainNode(baseURL string, id int, name string, evolvesTo ...map[string]any) map[string]any {
	if evolvesTo == nil {
		evolvesTo = []map[string]any{}
	}
	return map[string]any{
		"species": map[string]any{
			"name": name,
			"url":  fmt.Sprintf("%s/pokemon-species/%d", baseURL, id),
		},
		"evolves_to": evolvesTo,
	}
}

// ChainDoc wraps a root node into an evolution chain document fixture.
func ChainDoc(root map[string]any) map[string]any {
	return map[string]any{"chain": root}
}

// ListDoc builds an upstream paginated list document fixture from
// id/name pairs.
func ListDoc(baseURL string, entries map[int]string, order []int) map[string]any {
	results := make([]map[string]any, 0, len(order))
	for _, id := range order {
		results = append(results, map[string]any{
			"name": entries[id],
			"url":  fmt.Sprintf("%s/pokemon/%d", baseURL, id),
		})
	}
	return map[string]any{"results": results}
}
