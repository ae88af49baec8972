// Package handler holds authorization declarations of request handlers
package handler

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/internal/ability"
	"github.com/supremind/authorizable/internal/naming"
	"github.com/supremind/authorizable/types"
)

var _ types.Handler = (*Handler)(nil)

// Declaration describes how methods of a handler are authorized
type Declaration struct {
	// Name is the handler type identity, like "UserController"
	Name string
	// ResourceName overrides any derived resource name
	ResourceName string
	Convention   types.Convention

	// Abilities extends or overrides the default ability map
	Abilities map[string]types.Ability
	// ReplaceAbilities drops the default ability map, only Abilities are kept
	ReplaceAbilities bool

	Public []string
	// Skip lists methods excluded from authorization by the dispatch layer, they are treated as Public
	Skip   []string
	Custom map[string]types.CustomAuthorizer
	AnyOf  map[string][]string
	AllOf  map[string][]string

	DisableCache bool
}

// Handler is an immutable, validated Declaration
type Handler struct {
	name        string
	resource    string
	convention  types.Convention
	abilities   *ability.Map
	rules       map[string]types.RuleKind
	custom      map[string]types.CustomAuthorizer
	anyOf       map[string][]string
	allOf       map[string][]string
	cached      bool
	fingerprint string
	log         logr.Logger
}

// New validates d and builds a handler.
// Qualified explicit permissions are checked against catalog, unless it is nil.
func New(d Declaration, catalog *types.Catalog, l logr.Logger) (*Handler, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: handler name is required", types.ErrConfiguration)
	}
	if d.ResourceName == "" && naming.StripHandlerSuffix(d.Name) == "" {
		return nil, fmt.Errorf("%w: handler %s", types.ErrNoResourceName, d.Name)
	}

	h := &Handler{
		name:       d.Name,
		resource:   d.ResourceName,
		convention: d.Convention,
		rules:      make(map[string]types.RuleKind),
		custom:     make(map[string]types.CustomAuthorizer, len(d.Custom)),
		anyOf:      make(map[string][]string, len(d.AnyOf)),
		allOf:      make(map[string][]string, len(d.AllOf)),
		cached:     !d.DisableCache,
		log:        l.WithName(d.Name),
	}

	if d.ReplaceAbilities {
		h.abilities = ability.New(nil)
	} else {
		h.abilities = ability.NewDefault()
	}
	for method, a := range d.Abilities {
		if !a.Valid() {
			return nil, fmt.Errorf("%w: %q for method %s of %s", types.ErrUnknownAbility, a, method, d.Name)
		}
		h.abilities.Set(method, a)
	}

	for _, method := range d.Public {
		h.rules[method] = types.RulePublic
	}
	for _, method := range d.Skip {
		h.rules[method] = types.RulePublic
	}

	for method, fn := range d.Custom {
		if fn == nil {
			return nil, fmt.Errorf("%w: nil custom authorizer for method %s of %s", types.ErrConfiguration, method, d.Name)
		}
		if e := h.claim(method, types.RuleCustom); e != nil {
			return nil, e
		}
		h.custom[method] = fn
	}

	for method, perms := range d.AnyOf {
		if e := h.checkExplicit(method, perms, catalog); e != nil {
			return nil, e
		}
		if e := h.claim(method, types.RuleAnyOf); e != nil {
			return nil, e
		}
		h.anyOf[method] = append([]string(nil), perms...)
	}

	for method, perms := range d.AllOf {
		if e := h.checkExplicit(method, perms, catalog); e != nil {
			return nil, e
		}
		if e := h.claim(method, types.RuleAllOf); e != nil {
			return nil, e
		}
		h.allOf[method] = append([]string(nil), perms...)
	}

	h.fingerprint = h.digest()
	return h, nil
}

func (h *Handler) claim(method string, kind types.RuleKind) error {
	if prev, ok := h.rules[method]; ok && prev != kind {
		return fmt.Errorf("%w: %s of %s is both %s and %s", types.ErrConflictingRules, method, h.name, prev, kind)
	}
	h.rules[method] = kind
	return nil
}

// checkExplicit rejects empty lists and qualified permissions not in a non nil catalog,
// bare abilities are qualified per invocation and checked at runtime
func (h *Handler) checkExplicit(method string, perms []string, catalog *types.Catalog) error {
	if len(perms) == 0 {
		return fmt.Errorf("%w: empty permission list for method %s of %s", types.ErrConfiguration, method, h.name)
	}
	if catalog == nil {
		return nil
	}
	for _, raw := range perms {
		p := types.Permission(raw)
		if p.Qualified() && !catalog.Has(p) {
			return fmt.Errorf("%w: %q for method %s of %s", types.ErrUnknownPermission, raw, method, h.name)
		}
	}
	return nil
}

func (h *Handler) digest() string {
	d := xxhash.New()
	_, _ = d.WriteString(h.abilities.Fingerprint())
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(h.convention.String())
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(h.resource)
	return strconv.FormatUint(d.Sum64(), 16)
}

// Name implements types.Handler
func (h *Handler) Name() string {
	return h.name
}

// Rule implements types.Handler
func (h *Handler) Rule(method string) types.RuleKind {
	if kind, ok := h.rules[method]; ok {
		return kind
	}
	return types.RuleStandard
}

// Custom implements types.Handler
func (h *Handler) Custom(method string) types.CustomAuthorizer {
	return h.custom[method]
}

// AnyOf implements types.Handler
func (h *Handler) AnyOf(method string) []string {
	return h.anyOf[method]
}

// AllOf implements types.Handler
func (h *Handler) AllOf(method string) []string {
	return h.allOf[method]
}

// AbilityFor implements types.Handler
func (h *Handler) AbilityFor(method string) (types.Ability, bool) {
	return h.abilities.For(method)
}

// Abilities implements types.Handler
func (h *Handler) Abilities() map[string]types.Ability {
	return h.abilities.Entries()
}

// ResourceName returns the override if any, then the name derived from the bound entity,
// and finally the one derived from the handler name
func (h *Handler) ResourceName(inv types.Invocation) string {
	if h.resource != "" {
		return h.resource
	}
	if inv.BoundEntity != "" {
		return naming.Resource(inv.BoundEntity)
	}
	if name := naming.Resource(naming.StripHandlerSuffix(h.name)); name != "" {
		return name
	}

	h.log.Info("resource name could not be derived", "method", inv.Method)
	return ""
}

// Convention implements types.Handler
func (h *Handler) Convention() types.Convention {
	return h.convention
}

// Fingerprint implements types.Handler
func (h *Handler) Fingerprint() string {
	return h.fingerprint
}

// Cached implements types.Handler
func (h *Handler) Cached() bool {
	return h.cached
}

// Methods returns all methods with an explicit rule or an ability, in lexical order
func (h *Handler) Methods() []string {
	seen := make(map[string]struct{})
	for method := range h.rules {
		seen[method] = struct{}{}
	}
	for method := range h.abilities.Entries() {
		seen[method] = struct{}{}
	}

	methods := make([]string, 0, len(seen))
	for method := range seen {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}
