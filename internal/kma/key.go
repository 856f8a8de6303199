package kma

import (
	"net/url"
	"regexp"
	"strings"
)

// percentEscape matches a %XX escape, the tell that a key was issued in its
// URL-encoded form.
var percentEscape = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

// NormalizeServiceKey prepares a KMA service key for direct interpolation
// into a query string. The portal hands out both raw and URL-encoded keys,
// and operators paste them with stray quotes; encoding an already-encoded
// key breaks authentication, so encoding is applied only when no %XX escape
// is present.
func NormalizeServiceKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.Trim(key, `"'`)
	if key == "" {
		return ""
	}
	if percentEscape.MatchString(key) {
		return key
	}
	return url.QueryEscape(key)
}
