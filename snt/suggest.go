package snt

import "sort"

// Suggest returns up to max registered names (entries and aliases) close to
// the given name by Damerau-Levenshtein distance. The distance cutoff grows
// with the name length so long names tolerate more edits.
func (t *Table) Suggest(name string, max int) []string {
	t.mu.RLock()
	candidates := make([]string, 0, len(t.entries)+len(t.aliases))
	for n := range t.entries {
		candidates = append(candidates, n)
	}
	for n := range t.aliases {
		candidates = append(candidates, n)
	}
	t.mu.RUnlock()

	cutoff := 2 + len(name)/8

	type scored struct {
		name string
		dist int
	}
	var hits []scored
	for _, candidate := range candidates {
		d := damerauLevenshtein(name, candidate)
		if d <= cutoff {
			hits = append(hits, scored{candidate, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].name < hits[j].name
	})

	if len(hits) > max {
		hits = hits[:max]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

// damerauLevenshtein computes the optimal string alignment distance:
// insertions, deletions, substitutions and adjacent transpositions.
func damerauLevenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if t := prev2[j-2] + 1; t < cur[j] {
					cur[j] = t
				}
			}
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
