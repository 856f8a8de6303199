package resolver

import (
	"regexp"
	"strings"
)

// provinceAliases expands the common one-word metropolitan-city short forms.
var provinceAliases = map[string]string{
	"서울": "서울특별시",
	"부산": "부산광역시",
	"대구": "대구광역시",
	"인천": "인천광역시",
	"광주": "광주광역시",
	"대전": "대전광역시",
	"울산": "울산광역시",
	"세종": "세종특별자치시",
}

var (
	// "제1동" and "1동" name the same subdivision; drop the 제 marker so
	// both normalize identically.
	jeMarker = regexp.MustCompile(`제(\d+동)`)

	provinceSuffix    = regexp.MustCompile(`(특별시|광역시|특별자치시|특별자치도|도)$`)
	subdistrictSuffix = regexp.MustCompile(`[동가리]$`)
	hasDigit          = regexp.MustCompile(`\d`)
)

// normalize produces the comparison form of a key or query: whitespace
// stripped, 제-markers dropped, case folded for any latin content.
func normalize(s string) string {
	s = strings.Join(strings.Fields(s), "")
	s = jeMarker.ReplaceAllString(s, "$1")
	return strings.ToLower(s)
}

// query is a parsed place-name request. Tokens are positional: up to three
// whitespace-separated components read as province / district / subdistrict,
// with suffix heuristics covering partial forms.
type query struct {
	raw    string // as received
	pre    string // after alias substitution, whitespace collapsed
	norm   string // normalize(pre)
	tokens []string

	province    string // canonical long form when recognized
	district    string
	subdistrict string
}

// parseQuery splits pre into positional components.
//
// Heuristics for two-token input: a leading token ending in 구/군 is a
// district ("대덕구 와동"); a leading token that is a province short form or
// carries a province suffix is a province ("대전 와동"); any other leading
// token ending in 시 is a district-level city ("수원시 정자동").
func parseQuery(pre string) query {
	q := query{pre: pre, norm: normalize(pre)}
	q.tokens = strings.Fields(pre)

	expand := func(s string) string {
		if full, ok := provinceAliases[s]; ok {
			return full
		}
		return s
	}

	switch len(q.tokens) {
	case 0:
	case 1:
		q.subdistrict = q.tokens[0]
	case 2:
		first := q.tokens[0]
		switch {
		case strings.HasSuffix(first, "구") || strings.HasSuffix(first, "군"):
			q.district = first
		case provinceAliases[first] != "" || provinceSuffix.MatchString(first):
			q.province = expand(first)
		case strings.HasSuffix(first, "시"):
			q.district = first
		default:
			q.province = expand(first)
		}
		q.subdistrict = q.tokens[1]
	default:
		q.province = expand(q.tokens[0])
		q.district = q.tokens[1]
		q.subdistrict = q.tokens[2]
	}

	return q
}

// hasSubdistrictToken reports whether any token looks like a subdistrict
// name (동/가/리 suffix). Drives the NO_SUBDISTRICT failure reason.
func (q query) hasSubdistrictToken() bool {
	for _, tok := range q.tokens {
		if subdistrictSuffix.MatchString(tok) {
			return true
		}
	}
	return false
}

// bareSubdistrictStem returns the stem of a digitless subdistrict token
// ("역삼동" → "역삼", true) or false when the token carries a number or a
// different suffix.
func (q query) bareSubdistrictStem() (stem, suffix string, ok bool) {
	s := q.subdistrict
	if s == "" || !subdistrictSuffix.MatchString(s) || hasDigit.MatchString(s) {
		return "", "", false
	}
	r := []rune(s)
	return string(r[:len(r)-1]), string(r[len(r)-1]), true
}
