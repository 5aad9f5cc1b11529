package errors

import (
	"sort"
	"strings"
)

// maxSuggestions bounds the candidates returned by Suggest.
const maxSuggestions = 3

// Suggest returns up to three candidates that look like a misspelling of
// name, closest first. A candidate qualifies when one name contains the other
// case-insensitively or when their edit distance is at most a third of the
// longer name.
func Suggest(name string, candidates []string) []string {
	type scored struct {
		name     string
		distance int
	}

	lower := strings.ToLower(name)
	var matches []scored
	for _, c := range candidates {
		if c == name {
			continue
		}
		lc := strings.ToLower(c)
		d := levenshtein(lower, lc)
		limit := max(len(lower), len(lc)) / 3
		if d <= limit || (lc != "" && lower != "" && (strings.Contains(lc, lower) || strings.Contains(lower, lc))) {
			matches = append(matches, scored{name: c, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].name < matches[j].name
	})

	var out []string
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		out = append(out, matches[i].name)
	}
	return out
}

// WithSuggestions records candidates similar to name in the error context.
func (e *TmplcError) WithSuggestions(name string, candidates []string) *TmplcError {
	if s := Suggest(name, candidates); len(s) > 0 {
		e.WithContext("suggestions", s)
	}
	return e
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
