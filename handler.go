package authorizable

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/internal/handler"
	"github.com/supremind/authorizable/types"
)

// NewHandler declares how methods of target are authorized.
// target is the handler itself, or its type name as a string, like "UserController".
func NewHandler(target interface{}, opts ...HandlerOption) (types.Handler, error) {
	cfg := &HandlerConfig{
		decl: handler.Declaration{
			Name:      types.EntityTypeName(target),
			Abilities: make(map[string]types.Ability),
			Custom:    make(map[string]types.CustomAuthorizer),
			AnyOf:     make(map[string][]string),
			AllOf:     make(map[string][]string),
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	if cfg.log == nil {
		cfg.log = defaultLogger()
	}
	h, e := handler.New(cfg.decl, cfg.catalog, cfg.log.WithName("handler"))
	if e != nil {
		return nil, e
	}
	return h, nil
}

// MustHandler is like NewHandler but panics on error
func MustHandler(target interface{}, opts ...HandlerOption) types.Handler {
	h, e := NewHandler(target, opts...)
	if e != nil {
		panic(e)
	}
	return h
}

// WithPublic lets anyone invoke methods, authenticated or not
func WithPublic(methods ...string) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.Public = append(cfg.decl.Public, methods...)
	}
}

// WithSkip excludes methods from authorization, they behave as public ones
func WithSkip(methods ...string) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.Skip = append(cfg.decl.Skip, methods...)
	}
}

// WithCustom authorizes method by fn only
func WithCustom(method string, fn types.CustomAuthorizer) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.Custom[method] = fn
	}
}

// WithAnyOf requires any of perms for method.
// A bare ability like "edit" is qualified with the resource of each invocation.
func WithAnyOf(method string, perms ...string) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.AnyOf[method] = perms
	}
}

// WithAllOf requires all of perms for method, checked in the given order
func WithAllOf(method string, perms ...string) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.AllOf[method] = perms
	}
}

// WithAbility maps method to ability, overriding the default mapping if any
func WithAbility(method string, ability types.Ability) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.Abilities[method] = ability
	}
}

// WithAbilities maps methods to abilities parsed by names, like {"statistics": "view"}
func WithAbilities(abilities map[string]string) HandlerOption {
	return func(cfg *HandlerConfig) {
		for method, name := range abilities {
			a, e := types.ParseAbility(name)
			if e != nil {
				cfg.fail(fmt.Errorf("method %s of %s: %w", method, cfg.decl.Name, e))
				return
			}
			cfg.decl.Abilities[method] = a
		}
	}
}

// WithoutDefaultAbilities drops the conventional REST method mappings
func WithoutDefaultAbilities() HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.ReplaceAbilities = true
	}
}

// WithResourceName overrides the resource name derived from the handler or bound entities
func WithResourceName(name string) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.ResourceName = name
	}
}

// WithConvention sets how abilities and resources are composed, Flat by default
func WithConvention(c types.Convention) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.Convention = c
	}
}

// WithoutHandlerCache resolves permissions of this handler on every authorization
func WithoutHandlerCache() HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.DisableCache = true
	}
}

// WithHandlerName overrides the name derived from the handler type
func WithHandlerName(name string) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.decl.Name = name
	}
}

// WithHandlerLogger sets logger of the handler
func WithHandlerLogger(l logr.Logger) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.log = &l
	}
}

// WithHandlerCatalog checks qualified explicit permissions against c when the handler is built.
// Without a catalog they are checked by the engine on every authorization.
func WithHandlerCatalog(c *types.Catalog) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.catalog = c
	}
}

// ForEngine checks qualified explicit permissions against the current catalog of authz
func ForEngine(authz types.Engine) HandlerOption {
	return func(cfg *HandlerConfig) {
		cfg.catalog = authz.Catalog()
	}
}

// HandlerConfig works together with HandlerOption to control the declaration of a handler
type HandlerConfig struct {
	decl    handler.Declaration
	catalog *types.Catalog
	log     *logr.Logger
	err     error
}

func (cfg *HandlerConfig) fail(e error) {
	if cfg.err == nil {
		cfg.err = e
	}
}

// HandlerOption controls how to declare a handler
type HandlerOption func(*HandlerConfig)
