// Package ability maps handler method names to abstract abilities.
package ability

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/supremind/authorizable/types"
)

var defaults = map[string]types.Ability{
	"index":       types.View,
	"index_data":  types.View,
	"index_list":  types.View,
	"show":        types.View,
	"edit":        types.Edit,
	"update":      types.Edit,
	"bulk_update": types.Edit,
	"create":      types.Create,
	"store":       types.Create,
	"destroy":     types.Delete,
	"bulk_delete": types.Delete,
	"restore":     types.Restore,
	"trashed":     types.Restore,
	"export":      types.Export,
	"import":      types.Import,
}

// Defaults returns a copy of the conventional REST method table
func Defaults() map[string]types.Ability {
	out := make(map[string]types.Ability, len(defaults))
	for m, a := range defaults {
		out[m] = a
	}
	return out
}

// Map is a per handler table from method name to ability.
// It is not safe for concurrent writes, all Set calls should happen before the handler serves.
type Map struct {
	entries     map[string]types.Ability
	fingerprint string
}

// New creates a map holding a copy of entries
func New(entries map[string]types.Ability) *Map {
	m := &Map{entries: make(map[string]types.Ability, len(entries))}
	for method, a := range entries {
		m.entries[method] = a
	}
	m.fingerprint = m.digest()
	return m
}

// NewDefault creates a map seeded with the conventional REST method table
func NewDefault() *Map {
	return New(defaults)
}

// Set maps method to a, overriding any previous mapping
func (m *Map) Set(method string, a types.Ability) {
	m.entries[method] = a
	m.fingerprint = m.digest()
}

// Unset removes the mapping of method
func (m *Map) Unset(method string) {
	delete(m.entries, method)
	m.fingerprint = m.digest()
}

// For returns the ability mapped to method, false if none
func (m *Map) For(method string) (types.Ability, bool) {
	a, ok := m.entries[method]
	return a, ok
}

// Len returns the number of mapped methods
func (m *Map) Len() int {
	return len(m.entries)
}

// Entries returns a copy of all mappings
func (m *Map) Entries() map[string]types.Ability {
	out := make(map[string]types.Ability, len(m.entries))
	for method, a := range m.entries {
		out[method] = a
	}
	return out
}

// Fingerprint is a digest of the content, equal maps have equal fingerprints
func (m *Map) Fingerprint() string {
	return m.fingerprint
}

func (m *Map) digest() string {
	methods := make([]string, 0, len(m.entries))
	for method := range m.entries {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	d := xxhash.New()
	for _, method := range methods {
		_, _ = d.WriteString(method)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(string(m.entries[method]))
		_, _ = d.WriteString("\n")
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
