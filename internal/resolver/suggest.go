package resolver

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxSuggestions = 5

// suggest scores every admin key against the failed query and returns the
// top candidates with positive score.
//
// Scoring: +10 substring containment, +5 suffix match, +3 per shared token,
// −0.5 per rune of length difference.
func suggest(t *Tables, q query) []string {
	type scored struct {
		key   string
		score float64
	}

	qLen := utf8.RuneCountInString(q.norm)
	normTokens := make([]string, len(q.tokens))
	for i, tok := range q.tokens {
		normTokens[i] = normalize(tok)
	}

	candidates := make([]scored, 0, len(t.adminKeys))
	for i, k := range t.adminKeys {
		nk := t.adminKeysNorm[i]

		var score float64
		if strings.Contains(nk, q.norm) {
			score += 10
		}
		if strings.HasSuffix(nk, q.norm) {
			score += 5
		}
		keyTokens := strings.Fields(k)
		for _, tok := range normTokens {
			for _, kt := range keyTokens {
				if strings.Contains(normalize(kt), tok) {
					score += 3
					break
				}
			}
		}
		score -= 0.5 * math.Abs(float64(utf8.RuneCountInString(nk)-qLen))

		if score > 0 {
			candidates = append(candidates, scored{key: k, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	n := min(len(candidates), maxSuggestions)
	out := make([]string, n)
	for i := range n {
		out[i] = candidates[i].key
	}
	return out
}
