package resolver

import (
	"testing"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seoulGangnam = domain.GridCell{NX: 61, NY: 126}
	seoulJongno  = domain.GridCell{NX: 60, NY: 127}
	daejeonGrid  = domain.GridCell{NX: 68, NY: 101}
	busanA       = domain.GridCell{NX: 96, NY: 76}
	busanB       = domain.GridCell{NX: 97, NY: 76}
)

func testTables() *Tables {
	return NewTables(
		map[string]domain.GridCell{
			"서울특별시 강남구 역삼1동": seoulGangnam,
			"서울특별시 강남구 역삼2동": seoulGangnam,
			"서울특별시 종로구 종로1가": seoulJongno,
			"대전광역시 대덕구 회덕동": daejeonGrid,
			"부산광역시 부산진구 개금1동": busanA,
			"부산광역시 부산진구 개금2동": busanA,
			"부산광역시 부산진구 개금3동": busanB,
		},
		map[string][]string{
			"대전광역시 대덕구 와동": {"대전광역시 대덕구 회덕동"},
		},
		map[string][]string{
			"서울특별시 강남구": {"역삼동"},
			"대전광역시 대덕구": {"와동", "송촌동"},
			"부산광역시 부산진구": {"개금동"},
		},
		map[string]string{
			"한밭":   "대전 와동",
			"옛서울": "한밭", // chain: must not be followed past one hop
		},
		map[string]string{
			"서울시": "서울특별시",
		},
	)
}

func newTestResolver() *Resolver {
	return New(testTables())
}

// Every key present in the admin table must round-trip to its own cell.
func TestResolve_AdminKeyRoundTrip(t *testing.T) {
	tables := testTables()
	r := New(tables)

	for key, cell := range tables.adminToGrid {
		res := r.Resolve(key)
		require.True(t, res.Resolved, "key %s", key)
		assert.Equal(t, domain.MatchAdminExact, res.Method, "key %s", key)
		assert.Equal(t, cell, res.Cell, "key %s", key)
		assert.Equal(t, key, res.AdminKey)
	}
}

func TestResolve_AdminExact(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name  string
		query string
	}{
		{"canonical form", "서울특별시 강남구 역삼1동"},
		{"province short form", "서울 강남구 역삼1동"},
		{"je marker variant", "서울특별시 강남구 역삼제1동"},
		{"irregular whitespace", "  서울특별시   강남구 역삼1동 "},
		{"prefix alias", "서울시 강남구 역삼1동"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.query)
			require.True(t, res.Resolved)
			assert.Equal(t, domain.MatchAdminExact, res.Method)
			assert.Equal(t, seoulGangnam, res.Cell)
			assert.Equal(t, 1.0, res.Confidence)
		})
	}
}

func TestResolve_CrosswalkFullLegalKey(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("대전광역시 대덕구 와동")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchCrosswalk, res.Method)
	assert.Equal(t, "대전광역시 대덕구 회덕동", res.AdminKey)
	assert.Equal(t, daejeonGrid, res.Cell)
}

func TestResolve_CrosswalkProvinceOnly(t *testing.T) {
	r := newTestResolver()

	// Province short form plus a legal subdistrict: the resolver must expand
	// over the province's districts via the city index.
	res := r.Resolve("대전 와동")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchCrosswalk, res.Method)
	assert.Equal(t, daejeonGrid, res.Cell)
}

func TestResolve_CrosswalkDistrictOnly(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("대덕구 와동")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchCrosswalk, res.Method)
	assert.Equal(t, "대전광역시 대덕구 회덕동", res.AdminKey)
}

func TestResolve_NumberedSuffixExpansion(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("역삼동")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchNumberedSuffix, res.Method)
	assert.Equal(t, seoulGangnam, res.Cell)
	assert.ElementsMatch(t,
		[]string{"서울특별시 강남구 역삼1동", "서울특별시 강남구 역삼2동"},
		res.Suggestions,
		"numbered variants must be surfaced even though a cell was returned")
}

// When the numbered variants disagree on the grid cell, the modal cell wins;
// see the numberedSuffix doc for the limitation this implies.
func TestResolve_NumberedSuffixModeSelection(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("부산 개금동")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchNumberedSuffix, res.Method)
	assert.Equal(t, busanA, res.Cell, "two of three variants share this cell")
	assert.Len(t, res.Suggestions, 3)
}

func TestResolve_SubstringFallback(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("회덕")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchSubstring, res.Method)
	assert.Equal(t, daejeonGrid, res.Cell)
}

func TestResolve_TokenSetFallback(t *testing.T) {
	r := newTestResolver()

	// Tokens are present in a key but not contiguously.
	res := r.Resolve("서울특별시 역삼1동")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchTokenSet, res.Method)
	assert.Equal(t, seoulGangnam, res.Cell)
}

func TestResolve_AutoCorrect(t *testing.T) {
	r := newTestResolver()

	// One-rune typo in the final token.
	res := r.Resolve("서울특별시 강남구 역삼1농")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchAutoCorrect, res.Method)
	assert.Equal(t, "서울특별시 강남구 역삼1동", res.AdminKey)
}

func TestResolve_NotFoundWithSuggestions(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("서울특별시 강남구 없는동")
	require.False(t, res.Resolved)
	assert.Equal(t, domain.ReasonNotFound, res.Reason)
	require.NotEmpty(t, res.Suggestions)
	assert.LessOrEqual(t, len(res.Suggestions), 5)
	// Shared province+district tokens should rank Gangnam keys first.
	assert.Contains(t, res.Suggestions[0], "강남구")
}

func TestResolve_NoSubdistrict(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no subdistrict-like token", "부천"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.query)
			require.False(t, res.Resolved)
			assert.Equal(t, domain.ReasonNoSubdistrict, res.Reason)
		})
	}
}

func TestResolve_AliasRedirect(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("한밭")
	require.True(t, res.Resolved)
	assert.Equal(t, domain.MatchCrosswalk, res.Method)
	assert.Equal(t, daejeonGrid, res.Cell)
}

func TestResolve_AliasChainNotFollowed(t *testing.T) {
	r := newTestResolver()

	// "옛서울" redirects to "한밭", itself a redirect key. Only one hop is
	// taken, so the query must fail instead of chaining to 대전.
	res := r.Resolve("옛서울")
	assert.False(t, res.Resolved)
}

func TestResolve_Deterministic(t *testing.T) {
	r := newTestResolver()

	first := r.Resolve("역삼동")
	for range 20 {
		assert.Equal(t, first, r.Resolve("역삼동"))
	}
}

// --- individual tier tests ---

func TestSuffixMatcherPrefersShortestKey(t *testing.T) {
	tables := NewTables(
		map[string]domain.GridCell{
			"서울특별시 강남구 역삼1동":    seoulGangnam,
			"어딘가아주긴이름 강남구 역삼1동": seoulJongno,
		},
		nil, nil, nil, nil,
	)

	res, ok := suffix{}.match(tables, parseQuery("강남구 역삼1동"))
	require.True(t, ok)
	assert.Equal(t, "서울특별시 강남구 역삼1동", res.AdminKey)
}

func TestAutoCorrectRequiresUniqueCandidate(t *testing.T) {
	tables := NewTables(
		map[string]domain.GridCell{
			"가나다라마바1동": seoulGangnam,
			"가나다라마바2동": seoulJongno,
		},
		nil, nil, nil, nil,
	)

	// Equidistant from both keys: no correction.
	_, ok := autoCorrect{}.match(tables, parseQuery("가나다라마바9동"))
	assert.False(t, ok)
}

func TestSubstringMatcherPrefersLongestKey(t *testing.T) {
	tables := NewTables(
		map[string]domain.GridCell{
			"대전광역시 대덕구 회덕동":     daejeonGrid,
			"아주아주긴도시이름 대덕구 회덕동": seoulJongno,
		},
		nil, nil, nil, nil,
	)

	res, ok := substring{}.match(tables, parseQuery("회덕동"))
	require.True(t, ok)
	assert.Equal(t, "아주아주긴도시이름 대덕구 회덕동", res.AdminKey)
}
