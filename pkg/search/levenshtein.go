package search

// NoLimit disables pruning in EditDistance.
const NoLimit = -1

// EditDistance computes the Levenshtein distance between a and b using two
// rolling rows, with the shorter string as the inner dimension.
//
// When maxDistance >= 0 the computation is pruned: as soon as every cell of
// a row exceeds maxDistance, the walk aborts and maxDistance+1 is returned
// as a "too far to matter" sentinel. Pass NoLimit for the exact distance.
func EditDistance(a, b string, maxDistance int) int {
	if a == b {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	if la > lb {
		ra, rb = rb, ra
		la, lb = lb, la
	}

	prev := make([]int, la+1)
	cur := make([]int, la+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= lb; j++ {
		cur[0] = j
		bj := rb[j-1]

		rowMin := cur[0] + la // above any reachable cell value
		for i := 1; i <= la; i++ {
			cost := 1
			if ra[i-1] == bj {
				cost = 0
			}

			d := prev[i] + 1 // deletion
			if ins := cur[i-1] + 1; ins < d { // insertion
				d = ins
			}
			if sub := prev[i-1] + cost; sub < d { // substitution
				d = sub
			}

			cur[i] = d
			if d < rowMin {
				rowMin = d
			}
		}

		if maxDistance >= 0 && rowMin > maxDistance {
			return maxDistance + 1
		}

		prev, cur = cur, prev
	}

	return prev[la]
}

// Similarity is the normalized edit-distance similarity in [0, 1].
// Empty input on either side yields 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}

	dist := EditDistance(a, b, maxLen)
	return 1 - float64(dist)/float64(maxLen)
}
