package pokemon

import (
	"context"
)

// evolutionChain fetches the evolution chain document and flattens it into
// light projections.
func (s *Service) evolutionChain(ctx context.Context, chainURL string) ([]Light, error) {
	var doc chainDoc
	if err := s.upstream.GetJSON(ctx, chainURL, &doc); err != nil {
		return nil, err
	}
	return s.flattenChain(ctx, &doc.Chain)
}

// flattenChain walks the evolution tree depth-first in pre-order using an
// explicit stack, resolving each node's species to a light projection.
// Nodes whose species id cannot be parsed are skipped, but their children
// are still visited. The result is deduplicated by id, keeping the first
// occurrence in traversal order.
func (s *Service) flattenChain(ctx context.Context, root *chainNode) ([]Light, error) {
	var evolutions []Light

	stack := []*chainNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}

		if id, err := idFromURL(node.Species.URL); err == nil {
			light, err := s.LightByID(ctx, id)
			if err != nil {
				return nil, err
			}
			evolutions = append(evolutions, light)
		} else {
			s.logger.Debug().
				Str("species", node.Species.Name).
				Str("url", node.Species.URL).
				Msg("Skipping chain node with unparsable species id")
		}

		// Children pushed in reverse so the leftmost child is processed
		// next, preserving pre-order.
		for i := len(node.EvolvesTo) - 1; i >= 0; i-- {
			stack = append(stack, &node.EvolvesTo[i])
		}
	}

	return dedupeByID(evolutions), nil
}

// dedupeByID removes duplicate ids, keeping the first occurrence.
func dedupeByID(lights []Light) []Light {
	seen := make(map[int]bool, len(lights))
	unique := make([]Light, 0, len(lights))
	for _, l := range lights {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		unique = append(unique, l)
	}
	return unique
}
