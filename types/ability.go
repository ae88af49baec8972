package types

import (
	"fmt"
	"sort"
	"sync"
)

// Ability is an abstract verb a handler method performs on a resource.
// It is never checked by itself, it is combined with a resource name into a Permission.
type Ability string

// preset abilities, users can register others with RegisterAbilities
const (
	View    Ability = "view"
	Create  Ability = "create"
	Edit    Ability = "edit"
	Delete  Ability = "delete"
	Restore Ability = "restore"
	Export  Ability = "export"
	Import  Ability = "import"
)

// abilitySet is safe for concurrent use, policies register abilities while requests are served
type abilitySet struct {
	known map[Ability]struct{}
	sync.RWMutex
}

var knownAbilities = &abilitySet{known: map[Ability]struct{}{
	View:    {},
	Create:  {},
	Edit:    {},
	Delete:  {},
	Restore: {},
	Export:  {},
	Import:  {},
}}

// RegisterAbilities adds custom abilities to the known set
func RegisterAbilities(names ...string) []Ability {
	knownAbilities.Lock()
	defer knownAbilities.Unlock()

	abilities := make([]Ability, 0, len(names))
	for _, name := range names {
		a := Ability(name)
		knownAbilities.known[a] = struct{}{}
		abilities = append(abilities, a)
	}
	return abilities
}

// Abilities returns all known abilities in lexical order
func Abilities() []Ability {
	knownAbilities.RLock()
	out := make([]Ability, 0, len(knownAbilities.known))
	for a := range knownAbilities.known {
		out = append(out, a)
	}
	knownAbilities.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseAbility returns the ability named s, or ErrUnknownAbility
func ParseAbility(s string) (Ability, error) {
	a := Ability(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAbility, s)
	}
	return a, nil
}

// Valid tells if a is one of the known abilities
func (a Ability) Valid() bool {
	knownAbilities.RLock()
	defer knownAbilities.RUnlock()

	_, ok := knownAbilities.known[a]
	return ok
}

func (a Ability) String() string {
	return string(a)
}
