package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

// Reference table file names inside the data directory. All are built
// offline by the batch scripts; the serving process only ever reads them.
const (
	adminGridFile    = "admin_grid.json"
	legalToAdminFile = "legal_to_admin.json"
	cityDistrictFile = "city_district_index.json"
	aliasFile        = "aliases.json"
)

// Tables holds the immutable reference data the resolver matches against.
// Loaded once at startup and never mutated afterwards.
type Tables struct {
	// adminToGrid maps a canonical administrative key
	// ("province district subdistrict") to its forecast grid cell.
	adminToGrid map[string]domain.GridCell

	// legalToAdmin maps a legal (cadastral) key to the administrative keys
	// it belongs to. Many-to-many.
	legalToAdmin map[string][]string

	// cityDistrict maps "province district" to the legal subdistrict names
	// registered under it.
	cityDistrict map[string][]string

	// redirect rewrites an entire query string (historical or colloquial
	// names). Applied at most once; targets must be plain queries.
	redirect map[string]string

	// prefixAlias rewrites a leading token (province short forms beyond the
	// built-in ones).
	prefixAlias map[string]string

	// Derived lookup structures, built once in finish().
	adminNorm     map[string]string // normalized admin key → canonical key
	legalNorm     map[string]string // normalized legal key → canonical key
	adminKeys     []string          // canonical admin keys, longest first
	adminKeysNorm []string          // normalize(adminKeys[i])
	cityKeys      []string          // sorted "province district" index keys
}

type aliasDoc struct {
	Alias    map[string]string `json:"alias"`
	Redirect map[string]string `json:"redirect"`
}

// Load reads the reference tables from dir. A missing or malformed required
// table is a startup error; the alias table alone is optional because many
// deployments run without one.
func Load(dir string) (*Tables, error) {
	t := &Tables{}

	if err := readJSON(filepath.Join(dir, adminGridFile), &t.adminToGrid); err != nil {
		return nil, fmt.Errorf("load admin grid table: %w", err)
	}
	if len(t.adminToGrid) == 0 {
		return nil, errors.New("admin grid table is empty")
	}
	if err := readJSON(filepath.Join(dir, legalToAdminFile), &t.legalToAdmin); err != nil {
		return nil, fmt.Errorf("load legal-admin crosswalk: %w", err)
	}
	if err := readJSON(filepath.Join(dir, cityDistrictFile), &t.cityDistrict); err != nil {
		return nil, fmt.Errorf("load city-district index: %w", err)
	}

	var aliases aliasDoc
	err := readJSON(filepath.Join(dir, aliasFile), &aliases)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// optional
	case err != nil:
		return nil, fmt.Errorf("load alias table: %w", err)
	}
	t.redirect = aliases.Redirect
	t.prefixAlias = aliases.Alias

	t.finish()
	return t, nil
}

// NewTables builds Tables from in-memory maps. Used by tests and by callers
// that assemble reference data without the file layout.
func NewTables(
	adminToGrid map[string]domain.GridCell,
	legalToAdmin map[string][]string,
	cityDistrict map[string][]string,
	redirect map[string]string,
	prefixAlias map[string]string,
) *Tables {
	t := &Tables{
		adminToGrid:  adminToGrid,
		legalToAdmin: legalToAdmin,
		cityDistrict: cityDistrict,
		redirect:     redirect,
		prefixAlias:  prefixAlias,
	}
	t.finish()
	return t
}

// finish builds the derived lookup structures.
func (t *Tables) finish() {
	if t.legalToAdmin == nil {
		t.legalToAdmin = map[string][]string{}
	}
	if t.cityDistrict == nil {
		t.cityDistrict = map[string][]string{}
	}
	if t.redirect == nil {
		t.redirect = map[string]string{}
	}
	if t.prefixAlias == nil {
		t.prefixAlias = map[string]string{}
	}

	t.adminNorm = make(map[string]string, len(t.adminToGrid))
	t.adminKeys = make([]string, 0, len(t.adminToGrid))
	for k := range t.adminToGrid {
		t.adminNorm[normalize(k)] = k
		t.adminKeys = append(t.adminKeys, k)
	}
	// Longest first so broader keys win containment scans; ties sorted
	// lexicographically to keep resolution deterministic across runs.
	sort.Slice(t.adminKeys, func(i, j int) bool {
		if len(t.adminKeys[i]) != len(t.adminKeys[j]) {
			return len(t.adminKeys[i]) > len(t.adminKeys[j])
		}
		return t.adminKeys[i] < t.adminKeys[j]
	})

	t.adminKeysNorm = make([]string, len(t.adminKeys))
	for i, k := range t.adminKeys {
		t.adminKeysNorm[i] = normalize(k)
	}

	t.legalNorm = make(map[string]string, len(t.legalToAdmin))
	for k := range t.legalToAdmin {
		t.legalNorm[normalize(k)] = k
	}

	t.cityKeys = make([]string, 0, len(t.cityDistrict))
	for k := range t.cityDistrict {
		t.cityKeys = append(t.cityKeys, k)
	}
	sort.Strings(t.cityKeys)
}

// GridFor returns the grid cell stored for a canonical administrative key.
func (t *Tables) GridFor(adminKey string) (domain.GridCell, bool) {
	cell, ok := t.adminToGrid[adminKey]
	return cell, ok
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
