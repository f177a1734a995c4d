package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/pokedexlab/pokeapi-cache/pkg/pokemon"
)

// fakeResolver hydrates from an in-memory table and fails for ids listed
// in failing.
type fakeResolver struct {
	lights  map[int]pokemon.Light
	failing map[int]bool
	calls   int
}

func (f *fakeResolver) LightByID(ctx context.Context, id int) (pokemon.Light, error) {
	f.calls++
	if f.failing[id] {
		return pokemon.Light{}, errors.New("upstream down")
	}
	if l, ok := f.lights[id]; ok {
		return l, nil
	}
	return pokemon.Light{
		ID:   id,
		Name: fmt.Sprintf("pokemon-%d", id),
		URL:  fmt.Sprintf("https://pokeapi.co/api/v2/pokemon/%d", id),
		Icon: fmt.Sprintf("https://img/%d.png", id),
	}, nil
}

func newTestSearcher(index map[string]int) (*Searcher, *fakeResolver) {
	resolver := &fakeResolver{
		lights:  make(map[int]pokemon.Light),
		failing: make(map[int]bool),
	}
	return NewSearcher(FromMap(index), resolver, ""), resolver
}

func TestSearch_EmptyQuery(t *testing.T) {
	s, resolver := newTestSearcher(map[string]int{"pikachu": 25})

	for _, query := range []string{"", "   ", "\t\n"} {
		results, err := s.Search(context.Background(), query, 10)
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", query, err)
		}
		if len(results) != 0 {
			t.Errorf("Search(%q) should return empty result, got %d", query, len(results))
		}
	}
	if resolver.calls != 0 {
		t.Error("Empty query should not hydrate anything")
	}
}

func TestSearch_ExactMatchDominance(t *testing.T) {
	s, _ := newTestSearcher(map[string]int{
		"mew":      151,
		"mewtwo":   150,
		"meowth":   52,
		"smeargle": 235,
	})

	results, err := s.Search(context.Background(), "mew", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected results")
	}
	if results[0].ID != 151 {
		t.Errorf("Exact match should rank first, got id %d", results[0].ID)
	}
	if len(results) < 2 || results[1].ID != 150 {
		t.Errorf("Prefix match should rank second, got %+v", results)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	// Two distinct names that normalize identically score identically
	// against any query; the tie must always break by name ascending.
	index := map[string]int{
		"nidoran-f": 29,
		"nidoran.f": 9029,
		"nidoking":  34,
	}

	var first []int
	for run := 0; run < 10; run++ {
		s, _ := newTestSearcher(index)
		results, err := s.Search(context.Background(), "nidoran", 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		ids := make([]int, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		if run == 0 {
			first = ids
			// "nidoran-f" < "nidoran.f" in byte order.
			if len(ids) < 2 || ids[0] != 29 || ids[1] != 9029 {
				t.Fatalf("Tie not broken by name ascending: %v", ids)
			}
			continue
		}
		for i := range ids {
			if ids[i] != first[i] {
				t.Fatalf("Run %d ordering differs: %v vs %v", run, ids, first)
			}
		}
	}
}

func TestSearch_LimitApplied(t *testing.T) {
	index := make(map[string]int)
	for i := 0; i < 30; i++ {
		index[fmt.Sprintf("candidate%02d", i)] = i + 1
	}
	s, _ := newTestSearcher(index)

	results, err := s.Search(context.Background(), "candidate", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("Expected 5 results, got %d", len(results))
	}

	// limit <= 0 falls back to the default.
	results, err = s.Search(context.Background(), "candidate", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != DefaultLimit {
		t.Errorf("Expected %d results for default limit, got %d", DefaultLimit, len(results))
	}
}

func TestSearch_StubFallback(t *testing.T) {
	s, resolver := newTestSearcher(map[string]int{
		"pikachu": 25,
		"pichu":   172,
	})
	resolver.failing[172] = true

	results, err := s.Search(context.Background(), "pi", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	var stub *pokemon.Light
	for i := range results {
		if results[i].ID == 172 {
			stub = &results[i]
		}
	}
	if stub == nil {
		t.Fatal("Failed hydration should yield a stub, not drop the result")
	}
	if stub.Name != "pichu" {
		t.Errorf("Stub name = %q, want %q", stub.Name, "pichu")
	}
	if stub.URL != "https://pokeapi.co/api/v2/pokemon/172" {
		t.Errorf("Stub URL = %q", stub.URL)
	}
	if stub.Icon != "" || stub.OfficialArtwork != "" {
		t.Errorf("Stub sprite fields should be empty: %+v", stub)
	}
}

func TestScore_Components(t *testing.T) {
	const eps = 1e-9

	// Exact match: every additive signal fires at full strength.
	want := 1000.0 + 800.0 + 400.0 + 300.0 + 50.0
	if got := Score("mew", "mew"); math.Abs(got-want) > eps {
		t.Errorf("Score(mew, mew) = %v, want %v", got, want)
	}

	// Prefix: 800*4/7 prefix + 300*(4/7) similarity + 50*(4/7) ratio,
	// no substring bonus per the mutual exclusivity rule.
	want = (800.0 + 300.0 + 50.0) * 4.0 / 7.0
	if got := Score("pika", "pikachu"); math.Abs(got-want) > eps {
		t.Errorf("Score(pika, pikachu) = %v, want %v", got, want)
	}

	// Substring at position 4: 600-5*4 = 580, plus 300*(3/7) similarity
	// and 50*(3/7) ratio.
	want = 580.0 + (300.0+50.0)*3.0/7.0
	if got := Score("chu", "pikachu"); math.Abs(got-want) > eps {
		t.Errorf("Score(chu, pikachu) = %v, want %v", got, want)
	}

	// Deep substring position bottoms out at the floor of 100.
	deep := strings.Repeat("a", 102)
	got := Score("zz", deep+"zz")
	floorPart := 100.0
	simPart := 300.0 * Similarity("zz", deep+"zz")
	ratioPart := 50.0 * 2.0 / 104.0
	want = floorPart + simPart + ratioPart
	if math.Abs(got-want) > eps {
		t.Errorf("Score deep substring = %v, want %v", got, want)
	}

	// No relation at all still earns similarity/ratio only.
	if got := Score("abc", ""); got != 0 {
		t.Errorf("Empty candidate should score 0, got %v", got)
	}
}

func TestScore_TokenOverlap(t *testing.T) {
	const eps = 1e-9

	// "mr mime" vs "mime jr": one of two query tokens overlaps.
	got := Score("mr mime", "mime jr")
	tokenPart := 400.0 * 1.0 / 2.0
	simPart := 300.0 * Similarity("mr mime", "mime jr")
	ratioPart := 50.0 // equal lengths
	want := tokenPart + simPart + ratioPart
	if math.Abs(got-want) > eps {
		t.Errorf("Score(mr mime, mime jr) = %v, want %v", got, want)
	}
}

func TestIndex_LoadAndReload(t *testing.T) {
	idx, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(idx) == 0 {
		t.Fatal("Bundled index should not be empty")
	}
	if idx["pikachu"] != 25 {
		t.Errorf("Bundled index pikachu = %d, want 25", idx["pikachu"])
	}

	// Reload swaps the process-wide mapping.
	if err := Reload(bytes.NewReader([]byte(`{"togepi": 175}`))); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	idx, err = Load()
	if err != nil {
		t.Fatalf("Load after Reload failed: %v", err)
	}
	if len(idx) != 1 || idx["togepi"] != 175 {
		t.Errorf("Reloaded index = %v", idx)
	}

	// A bad payload leaves the active mapping untouched.
	if err := Reload(bytes.NewReader([]byte(`not json`))); err == nil {
		t.Error("Reload should reject invalid JSON")
	}
	idx, _ = Load()
	if idx["togepi"] != 175 {
		t.Error("Failed reload must not clobber the active index")
	}

	// Restore the bundled mapping for any later test in this process.
	if err := Reload(bytes.NewReader(bundledIndex)); err != nil {
		t.Fatalf("Restore reload failed: %v", err)
	}
}
