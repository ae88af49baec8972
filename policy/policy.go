// Package policy loads permission catalogs, role grants and handler declarations from YAML files
package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/internal/handler"
	"github.com/supremind/authorizable/types"
	"gopkg.in/yaml.v3"
)

// Wildcard in a role grant list stands for every permission of the catalog
const Wildcard = "*"

// Policy is the content of a policy file
type Policy struct {
	// Permissions of the catalog, the user management permissions are used if empty
	Permissions []string `yaml:"permissions"`
	// Abilities registered in addition to the preset ones
	Abilities []string `yaml:"abilities"`
	// Roles maps role names to granted permissions
	Roles map[string][]string `yaml:"roles"`
	// Users maps user names to assigned roles
	Users map[string][]string `yaml:"users"`
	// Grants maps user names to directly granted permissions
	Grants   map[string][]string `yaml:"grants"`
	Handlers []Handler           `yaml:"handlers"`
}

// Handler declares how methods of a handler are authorized
type Handler struct {
	Name             string              `yaml:"name"`
	Resource         string              `yaml:"resource"`
	Convention       string              `yaml:"convention"`
	Cache            *bool               `yaml:"cache"`
	Public           []string            `yaml:"public"`
	Skip             []string            `yaml:"skip"`
	Abilities        map[string]string   `yaml:"abilities"`
	ReplaceAbilities bool                `yaml:"replace_abilities"`
	AnyOf            map[string][]string `yaml:"any_of"`
	AllOf            map[string][]string `yaml:"all_of"`
}

// Load reads and parses the policy file at path
func Load(path string) (*Policy, error) {
	data, e := os.ReadFile(path)
	if e != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, e)
	}
	p, e := Parse(data)
	if e != nil {
		return nil, fmt.Errorf("policy %s: %w", path, e)
	}
	return p, nil
}

// Parse parses a policy document, unknown fields are rejected
func Parse(data []byte) (*Policy, error) {
	p := &Policy{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if e := dec.Decode(p); e != nil && !errors.Is(e, io.EOF) {
		return nil, fmt.Errorf("%w: %s", types.ErrConfiguration, e)
	}

	return p, nil
}

// Catalog builds the permission catalog, and registers extra abilities
func (p *Policy) Catalog() (*types.Catalog, error) {
	if len(p.Abilities) > 0 {
		types.RegisterAbilities(p.Abilities...)
	}
	if len(p.Permissions) == 0 {
		return types.DefaultCatalog(), nil
	}
	return types.NewCatalog(p.Permissions...)
}

// Seed grants permissions to roles and users, and assigns users to roles
func (p *Policy) Seed(store types.RoleStore, catalog *types.Catalog) error {
	for _, role := range sortedKeys(p.Roles) {
		perms, e := expand(p.Roles[role], catalog)
		if e != nil {
			return fmt.Errorf("role %s: %w", role, e)
		}
		if e := store.GivePermission(types.Role(role), perms...); e != nil {
			return e
		}
	}

	for _, user := range sortedKeys(p.Users) {
		roles := make([]types.Role, 0, len(p.Users[user]))
		for _, role := range p.Users[user] {
			roles = append(roles, types.Role(role))
		}
		if e := store.AssignRole(types.User(user), roles...); e != nil {
			return e
		}
	}

	for _, user := range sortedKeys(p.Grants) {
		perms, e := expand(p.Grants[user], catalog)
		if e != nil {
			return fmt.Errorf("user %s: %w", user, e)
		}
		if e := store.GivePermission(types.User(user), perms...); e != nil {
			return e
		}
	}

	return nil
}

func expand(names []string, catalog *types.Catalog) ([]types.Permission, error) {
	perms := make([]types.Permission, 0, len(names))
	for _, name := range names {
		if name == Wildcard {
			perms = append(perms, catalog.Permissions()...)
			continue
		}
		perm, e := catalog.Parse(name)
		if e != nil {
			return nil, e
		}
		perms = append(perms, perm)
	}
	return perms, nil
}

// BuildHandlers builds declared handlers, checking explicit permissions against catalog
func (p *Policy) BuildHandlers(catalog *types.Catalog, l logr.Logger) ([]types.Handler, error) {
	handlers := make([]types.Handler, 0, len(p.Handlers))
	for _, decl := range p.Handlers {
		d, e := decl.declaration()
		if e != nil {
			return nil, e
		}
		h, e := handler.New(d, catalog, l)
		if e != nil {
			return nil, e
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

func (h *Handler) declaration() (handler.Declaration, error) {
	convention, e := types.ParseConvention(h.Convention)
	if e != nil {
		return handler.Declaration{}, fmt.Errorf("handler %s: %w", h.Name, e)
	}

	d := handler.Declaration{
		Name:             h.Name,
		ResourceName:     h.Resource,
		Convention:       convention,
		ReplaceAbilities: h.ReplaceAbilities,
		Public:           h.Public,
		Skip:             h.Skip,
		AnyOf:            h.AnyOf,
		AllOf:            h.AllOf,
		DisableCache:     h.Cache != nil && !*h.Cache,
		Abilities:        make(map[string]types.Ability, len(h.Abilities)),
	}
	for method, name := range h.Abilities {
		a, e := types.ParseAbility(name)
		if e != nil {
			return handler.Declaration{}, fmt.Errorf("method %s of handler %s: %w", method, h.Name, e)
		}
		d.Abilities[method] = a
	}

	return d, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
