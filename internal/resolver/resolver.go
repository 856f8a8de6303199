// Package resolver translates free-text Korean place names into KMA forecast
// grid cells.
//
// Resolution runs an ordered list of matcher strategies over immutable
// reference tables: alias redirect, exact administrative match, the
// legal→administrative crosswalk, numbered-subdistrict expansion, then
// progressively looser string matching, ending in edit-distance
// auto-correction. The first tier to succeed wins; on total failure the
// caller gets a ranked suggestion list instead of a grid cell. Resolution is
// read-only and deterministic for a given table set.
package resolver

import (
	"strings"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

// matchers in strict tier order.
var matchers = []matcher{
	adminExact{},
	crosswalk{},
	numberedSuffix{},
	substring{},
	tokenSet{},
	suffix{},
	autoCorrect{},
}

// Resolver resolves place-name queries against one immutable table set.
// Safe for concurrent use.
type Resolver struct {
	tables *Tables
}

// New creates a Resolver over the given tables.
func New(tables *Tables) *Resolver {
	return &Resolver{tables: tables}
}

// Resolve maps a raw place-name query to a grid cell, or to a ranked
// suggestion list when no tier matches. It never fails on malformed text.
func (r *Resolver) Resolve(rawQuery string) domain.ResolveResult {
	trimmed := strings.TrimSpace(rawQuery)
	if trimmed == "" {
		return domain.ResolveResult{Reason: domain.ReasonNoSubdistrict}
	}

	q := parseQuery(r.applyAliases(trimmed))
	q.raw = rawQuery

	for _, m := range matchers {
		if res, ok := m.match(r.tables, q); ok {
			return res
		}
	}

	reason := domain.ReasonNotFound
	if !q.hasSubdistrictToken() {
		reason = domain.ReasonNoSubdistrict
	}
	return domain.ResolveResult{
		Reason:      reason,
		Suggestions: suggest(r.tables, q),
	}
}

// applyAliases rewrites the query through the alias table. A whole-string
// redirect is applied exactly once and its target is never looked up again,
// so alias chains cannot loop. A prefix alias rewrites only the leading
// token.
func (r *Resolver) applyAliases(s string) string {
	if target, ok := r.tables.redirect[s]; ok {
		s = target
	} else if fields := strings.Fields(s); len(fields) > 0 {
		if repl, ok := r.tables.prefixAlias[fields[0]]; ok {
			fields[0] = repl
			s = strings.Join(fields, " ")
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
