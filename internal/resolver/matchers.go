package resolver

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

// matcher is one resolution tier. Tiers run in a fixed order and
// short-circuit at the first success; each is independently testable and can
// be reordered without touching the others.
type matcher interface {
	match(t *Tables, q query) (domain.ResolveResult, bool)
}

// maxNumberedVariant bounds numbered-subdistrict expansion; real numbered
// subdivisions top out well below 20.
const maxNumberedVariant = 20

func resolved(cell domain.GridCell, key string, method domain.MatchMethod, confidence float64) domain.ResolveResult {
	return domain.ResolveResult{
		Resolved:   true,
		Cell:       cell,
		AdminKey:   key,
		Method:     method,
		Confidence: confidence,
	}
}

// adminExact matches the whole query against a canonical administrative key
// under normalization.
type adminExact struct{}

func (adminExact) match(t *Tables, q query) (domain.ResolveResult, bool) {
	key, ok := t.adminNorm[q.norm]
	if !ok {
		return domain.ResolveResult{}, false
	}
	cell, ok := t.GridFor(key)
	if !ok {
		return domain.ResolveResult{}, false
	}
	return resolved(cell, key, domain.MatchAdminExact, 1.0), true
}

// crosswalk treats the query as a legal (cadastral) key and maps it to an
// administrative key via the crosswalk table. A match requires exactly one
// administrative key with a grid cell; ambiguity falls through to later
// tiers rather than guessing.
type crosswalk struct{}

func (crosswalk) match(t *Tables, q query) (domain.ResolveResult, bool) {
	if q.subdistrict == "" {
		return domain.ResolveResult{}, false
	}

	// Full legal key, with numbered-suffix expansion as a second attempt.
	if q.province != "" && q.district != "" {
		cityKey := q.province + " " + q.district
		admins := adminsWithGrid(t, cityKey+" "+q.subdistrict)
		if len(admins) == 0 {
			for _, variant := range numberedVariants(q) {
				admins = append(admins, adminsWithGrid(t, cityKey+" "+variant)...)
			}
			admins = dedupe(admins)
		}
		if len(admins) == 1 {
			cell, _ := t.GridFor(admins[0])
			return resolved(cell, admins[0], domain.MatchCrosswalk, 0.95), true
		}
		return domain.ResolveResult{}, false
	}

	// Province without district: expand over every district in the province
	// and accept only an unambiguous hit.
	if q.province != "" {
		return crosswalkOverCities(t, q, func(city string) bool {
			return strings.HasPrefix(city, q.province+" ")
		})
	}

	// District without province: the district stem narrows the city index
	// from the other end.
	if q.district != "" {
		return crosswalkOverCities(t, q, func(city string) bool {
			return city == q.district || strings.HasSuffix(city, " "+q.district)
		})
	}

	return domain.ResolveResult{}, false
}

func crosswalkOverCities(t *Tables, q query, include func(string) bool) (domain.ResolveResult, bool) {
	var admins []string
	for _, city := range t.cityKeys {
		if !include(city) {
			continue
		}
		admins = append(admins, adminsWithGrid(t, city+" "+q.subdistrict)...)
	}
	admins = dedupe(admins)
	if len(admins) != 1 {
		return domain.ResolveResult{}, false
	}
	cell, _ := t.GridFor(admins[0])
	return resolved(cell, admins[0], domain.MatchCrosswalk, 0.95), true
}

// adminsWithGrid resolves a legal key to the administrative keys that have a
// grid cell.
func adminsWithGrid(t *Tables, legalKey string) []string {
	canonical, ok := t.legalNorm[normalize(legalKey)]
	if !ok {
		return nil
	}
	var out []string
	for _, admin := range t.legalToAdmin[canonical] {
		if _, ok := t.GridFor(admin); ok {
			out = append(out, admin)
		}
	}
	return out
}

// numberedSuffix expands a digitless subdistrict ("역삼동") into its
// numbered variants ("역삼1동".."역삼20동") and matches those against the
// admin table. When the variants land on different grid cells the modal cell
// wins (first-seen on ties) and every matching key is surfaced as a
// suggestion. Known accuracy limitation: distinct numbered subdistricts can
// legitimately sit in different cells, and the mode may pick the wrong one.
type numberedSuffix struct{}

func (numberedSuffix) match(t *Tables, q query) (domain.ResolveResult, bool) {
	variants := numberedVariants(q)
	if len(variants) == 0 {
		return domain.ResolveResult{}, false
	}

	var hits []string
	for _, variant := range variants {
		nv := normalize(variant)
		for i, nk := range t.adminKeysNorm {
			if q.province != "" && !strings.HasPrefix(t.adminKeys[i], q.province) {
				continue
			}
			if strings.HasSuffix(nk, nv) {
				hits = append(hits, t.adminKeys[i])
			}
		}
		if q.province != "" && q.district != "" {
			hits = append(hits, adminsWithGrid(t, q.province+" "+q.district+" "+variant)...)
		}
	}
	hits = dedupe(hits)
	if len(hits) == 0 {
		return domain.ResolveResult{}, false
	}

	modalKey, cell := modalCell(t, hits)

	res := resolved(cell, modalKey, domain.MatchNumberedSuffix, 0.8)
	if len(hits) > 1 {
		if len(hits) > 5 {
			hits = hits[:5]
		}
		res.Suggestions = hits
	}
	return res, true
}

// numberedVariants generates the numbered forms of a digitless subdistrict
// token, or nil when expansion does not apply.
func numberedVariants(q query) []string {
	stem, suffix, ok := q.bareSubdistrictStem()
	if !ok {
		return nil
	}
	variants := make([]string, 0, maxNumberedVariant)
	for i := 1; i <= maxNumberedVariant; i++ {
		variants = append(variants, stem+strconv.Itoa(i)+suffix)
	}
	return variants
}

// modalCell picks the grid cell occurring most often among the hit keys,
// breaking ties by first occurrence, and returns the first hit carrying it.
func modalCell(t *Tables, hits []string) (string, domain.GridCell) {
	counts := make(map[domain.GridCell]int, len(hits))
	order := make([]domain.GridCell, 0, len(hits))
	cells := make([]domain.GridCell, len(hits))
	for i, k := range hits {
		cell, _ := t.GridFor(k)
		cells[i] = cell
		if counts[cell] == 0 {
			order = append(order, cell)
		}
		counts[cell]++
	}

	best := order[0]
	for _, cell := range order[1:] {
		if counts[cell] > counts[best] {
			best = cell
		}
	}
	for i, cell := range cells {
		if cell == best {
			return hits[i], best
		}
	}
	return hits[0], best // unreachable
}

// substring matches keys containing the whole normalized query, longest key
// first.
type substring struct{}

func (substring) match(t *Tables, q query) (domain.ResolveResult, bool) {
	if q.norm == "" {
		return domain.ResolveResult{}, false
	}
	for i, nk := range t.adminKeysNorm {
		if strings.Contains(nk, q.norm) {
			cell, _ := t.GridFor(t.adminKeys[i])
			return resolved(cell, t.adminKeys[i], domain.MatchSubstring, 0.7), true
		}
	}
	return domain.ResolveResult{}, false
}

// tokenSet matches keys containing every user-supplied token, longest key
// first.
type tokenSet struct{}

func (tokenSet) match(t *Tables, q query) (domain.ResolveResult, bool) {
	if len(q.tokens) == 0 {
		return domain.ResolveResult{}, false
	}
	tokens := make([]string, len(q.tokens))
	for i, tok := range q.tokens {
		tokens[i] = normalize(tok)
	}

	for i, nk := range t.adminKeysNorm {
		all := true
		for _, tok := range tokens {
			if !strings.Contains(nk, tok) {
				all = false
				break
			}
		}
		if all {
			cell, _ := t.GridFor(t.adminKeys[i])
			return resolved(cell, t.adminKeys[i], domain.MatchTokenSet, 0.6), true
		}
	}
	return domain.ResolveResult{}, false
}

// suffix restores abbreviated queries ("역삼1동" → "서울특별시 강남구
// 역삼1동"). Among several suffix hits the shortest key wins: shorter names
// are the more general subdivisions.
type suffix struct{}

func (suffix) match(t *Tables, q query) (domain.ResolveResult, bool) {
	if q.norm == "" {
		return domain.ResolveResult{}, false
	}
	best := ""
	for i, nk := range t.adminKeysNorm {
		if !strings.HasSuffix(nk, q.norm) {
			continue
		}
		k := t.adminKeys[i]
		if best == "" || len(k) < len(best) || (len(k) == len(best) && k < best) {
			best = k
		}
	}
	if best == "" {
		return domain.ResolveResult{}, false
	}
	cell, _ := t.GridFor(best)
	return resolved(cell, best, domain.MatchSuffix, 0.5), true
}

// autoCorrect fixes single-typo queries by edit distance, but only when the
// correction is unambiguous.
type autoCorrect struct{}

func (autoCorrect) match(t *Tables, q query) (domain.ResolveResult, bool) {
	if q.norm == "" {
		return domain.ResolveResult{}, false
	}

	maxDist := 1
	if utf8.RuneCountInString(q.norm) >= 6 {
		maxDist = 2
	}

	bestDist := maxDist + 1
	var bestKeys []string
	for i, nk := range t.adminKeysNorm {
		d := levenshtein.ComputeDistance(q.norm, nk)
		switch {
		case d < bestDist:
			bestDist = d
			bestKeys = bestKeys[:0]
			bestKeys = append(bestKeys, t.adminKeys[i])
		case d == bestDist:
			bestKeys = append(bestKeys, t.adminKeys[i])
		}
	}

	if bestDist > maxDist || len(bestKeys) != 1 {
		return domain.ResolveResult{}, false
	}
	cell, _ := t.GridFor(bestKeys[0])
	return resolved(cell, bestKeys[0], domain.MatchAutoCorrect, 0.4), true
}

func dedupe(keys []string) []string {
	if len(keys) < 2 {
		return keys
	}
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
