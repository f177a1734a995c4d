// Package search provides approximate text search over pokemon names,
// ranking candidates with a composite heuristic built on a pruned
// Levenshtein distance.
package search

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

//go:embed search_pokemons.json
var bundledIndex []byte

// Index is the immutable name → identifier mapping the ranker scores
// against. It is read-only after construction.
type Index map[string]int

// Process-wide index state: initialized exactly once from the bundled data
// file, replaced only by an explicit Reload.
var (
	indexMu      sync.RWMutex
	currentIndex Index
	loadOnce     sync.Once
	loadErr      error
)

// Load returns the process-wide index, parsing the bundled data file on
// first use. Subsequent calls reuse the loaded mapping.
func Load() (Index, error) {
	loadOnce.Do(func() {
		idx, err := parseIndex(bundledIndex)
		if err != nil {
			loadErr = err
			return
		}
		indexMu.Lock()
		currentIndex = idx
		indexMu.Unlock()
	})
	if loadErr != nil {
		return nil, loadErr
	}

	indexMu.RLock()
	defer indexMu.RUnlock()
	return currentIndex, nil
}

// Reload replaces the process-wide index with the mapping read from r.
// The previous mapping stays active if parsing fails.
func Reload(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	idx, err := parseIndex(data)
	if err != nil {
		return err
	}

	// Ensure Load's once-init has run so it cannot clobber the reload.
	if _, err := Load(); err != nil {
		return err
	}

	indexMu.Lock()
	currentIndex = idx
	indexMu.Unlock()
	return nil
}

// FromMap builds an Index from an in-memory mapping (for tests and custom
// deployments).
func FromMap(m map[string]int) Index {
	idx := make(Index, len(m))
	for name, id := range m {
		idx[name] = id
	}
	return idx
}

func parseIndex(data []byte) (Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse search index: %w", err)
	}
	return idx, nil
}
