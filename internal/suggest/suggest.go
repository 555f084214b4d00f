// Package suggest finds near matches for mistyped names, such as a schema
// filter that matches nothing or an unknown source.
package suggest

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// MaxSuggestions caps the number of names Similar returns.
const MaxSuggestions = 3

// candidates adapts a lowercased name list to fuzzy.Source.
type candidates []string

func (c candidates) String(i int) string { return c[i] }
func (c candidates) Len() int            { return len(c) }

type scored struct {
	name  string
	score int
}

// Similar returns up to MaxSuggestions names from names that look like
// name, best match first. Matching is case-insensitive. Fuzzy subsequence
// matches rank first; names within a small edit distance follow, which
// catches transpositions such as "slaes" for "sales".
func Similar(name string, names []string) []string {
	if name == "" || len(names) == 0 {
		return nil
	}
	lower := strings.ToLower(name)
	lowered := make(candidates, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	seen := make(map[int]bool)
	var out []scored

	for _, m := range fuzzy.FindFrom(lower, lowered) {
		if lowered[m.Index] == lower {
			continue
		}
		seen[m.Index] = true
		out = append(out, scored{names[m.Index], m.Score + 1000})
	}

	limit := max(1, len(lower)/3)
	for i, n := range lowered {
		if seen[i] || n == lower {
			continue
		}
		if d := distance(lower, n); d <= limit {
			out = append(out, scored{names[i], -d})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].name < out[j].name
	})
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	result := make([]string, len(out))
	for i, s := range out {
		result[i] = s.name
	}
	return result
}

// Hint returns " (did you mean a, b?)" for the suggestions of name, or ""
// when there are none. It is meant to be appended to an error message.
func Hint(name string, names []string) string {
	s := Similar(name, names)
	if len(s) == 0 {
		return ""
	}
	return " (did you mean " + strings.Join(s, ", ") + "?)"
}

// Missing returns the entries of wanted that are not in have, in the order
// given.
func Missing(wanted, have []string) []string {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	var out []string
	for _, w := range wanted {
		if !set[w] {
			out = append(out, w)
		}
	}
	return out
}

// distance is the optimal string alignment distance between a and b:
// Levenshtein plus adjacent transpositions.
func distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev2 := make([]int, len(rb)+1)
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
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				cur[j] = min(cur[j], prev2[j-2]+1)
			}
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(rb)]
}
