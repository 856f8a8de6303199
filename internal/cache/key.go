package cache

import (
	"strings"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

// keyPrefix namespaces every entry this service writes into the shared
// store.
const keyPrefix = "feelslike"

// Key is a structured cache key: a product tag plus the discriminating
// parts, serialized deterministically. Products sharing a grid cell can
// never collide because the product tag is always present.
type Key struct {
	Product domain.Product
	Parts   []string
}

// NewKey builds a key from a product and its discriminating parts.
func NewKey(product domain.Product, parts ...string) Key {
	return Key{Product: product, Parts: parts}
}

// Latest returns the product-level fallback key for the same discriminator,
// independent of any publish slot.
func (k Key) Latest() Key {
	parts := make([]string, 0, len(k.Parts)+1)
	// The slot timestamp is always the final part; everything before it
	// identifies the subject.
	if len(k.Parts) > 0 {
		parts = append(parts, k.Parts[:len(k.Parts)-1]...)
	}
	parts = append(parts, "latest")
	return Key{Product: k.Product, Parts: parts}
}

func (k Key) String() string {
	elems := make([]string, 0, len(k.Parts)+2)
	elems = append(elems, keyPrefix, string(k.Product))
	elems = append(elems, k.Parts...)
	return strings.Join(elems, ":")
}
