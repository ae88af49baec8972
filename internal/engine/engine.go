// Package engine decides whether subjects may invoke handler methods
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/supremind/authorizable/internal/resolver"
	"github.com/supremind/authorizable/types"
)

var _ types.Engine = (*Engine)(nil)

// Config of an Engine
type Config struct {
	Store   types.RoleAssignmentStore
	Catalog *types.Catalog
	// Cache may be nil, then nothing is cached
	Cache types.ResolutionCache
	// FailClosed denies methods with neither a rule nor an ability, instead of allowing them
	FailClosed bool
	// Registerer may be nil, then metrics are collected but not exposed
	Registerer prometheus.Registerer
	Log        logr.Logger
}

// Engine is stateless apart from the resolution cache, it is safe for concurrent use
type Engine struct {
	store      types.RoleAssignmentStore
	catalog    atomic.Pointer[types.Catalog]
	resolver   *resolver.Resolver
	failClosed bool
	metrics    *metrics
	log        logr.Logger
}

// New creates an engine
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: empty role assignment store", types.ErrConfiguration)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = types.DefaultCatalog()
	}

	m, e := newMetrics(cfg.Registerer)
	if e != nil {
		return nil, fmt.Errorf("register metrics failed: %w", e)
	}

	a := &Engine{
		store:      cfg.Store,
		resolver:   resolver.New(cfg.Cache, m, cfg.Log.WithName("resolver")),
		failClosed: cfg.FailClosed,
		metrics:    m,
		log:        cfg.Log,
	}
	a.catalog.Store(cfg.Catalog)
	return a, nil
}

// Catalog implements types.Engine
func (a *Engine) Catalog() *types.Catalog {
	return a.catalog.Load()
}

// SetCatalog implements types.Engine
func (a *Engine) SetCatalog(c *types.Catalog) {
	if c == nil {
		return
	}
	a.catalog.Store(c)
	a.log.V(4).Info("catalog replaced", "permissions", c.Len())
}

// Authorize implements types.Engine
func (a *Engine) Authorize(ctx context.Context, h types.Handler, inv types.Invocation, sub types.Subject) error {
	kind := h.Rule(inv.Method)
	e := a.authorize(ctx, h, kind, inv, sub)

	result := resultAllowed
	switch {
	case e == nil:
	case types.IsAuthenticationRequired(e):
		result = resultUnauthenticated
	case types.IsForbidden(e):
		result = resultDenied
	default:
		result = resultError
		a.log.Error(e, "authorization failed", "handler", h.Name(), "method", inv.Method)
	}
	a.metrics.decided(h.Name(), kind.String(), result)
	a.log.V(4).Info("authorization decided", "handler", h.Name(), "method", inv.Method, "rule", kind, "subject", subjectName(sub), "result", result)

	return e
}

func (a *Engine) authorize(ctx context.Context, h types.Handler, kind types.RuleKind, inv types.Invocation, sub types.Subject) error {
	switch kind {
	case types.RulePublic:
		return nil

	case types.RuleCustom:
		fn := h.Custom(inv.Method)
		if fn == nil {
			return fmt.Errorf("%w: no custom authorizer for method %s of %s", types.ErrConfiguration, inv.Method, h.Name())
		}
		return fn(ctx, inv, sub)

	case types.RuleAnyOf:
		return a.anyOf(h, inv, sub)

	case types.RuleAllOf:
		return a.allOf(h, inv, sub)
	}

	return a.standard(ctx, h, inv, sub)
}

func (a *Engine) anyOf(h types.Handler, inv types.Invocation, sub types.Subject) error {
	if types.Anonymous(sub) {
		return unauthenticated(h, inv)
	}

	perms, e := a.explicit(h, inv, h.AnyOf(inv.Method))
	if e != nil {
		return e
	}
	for _, p := range perms {
		ok, e := a.holds(sub, p)
		if e != nil {
			return e
		}
		if ok {
			return nil
		}
	}

	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, string(p))
	}
	return &types.AuthorizationError{
		Kind:     types.ErrPermissionDenied,
		Handler:  h.Name(),
		Method:   inv.Method,
		Required: perms,
		Message:  "Insufficient permissions. Required any of: " + strings.Join(names, ", "),
	}
}

func (a *Engine) allOf(h types.Handler, inv types.Invocation, sub types.Subject) error {
	if types.Anonymous(sub) {
		return unauthenticated(h, inv)
	}

	perms, e := a.explicit(h, inv, h.AllOf(inv.Method))
	if e != nil {
		return e
	}
	for _, p := range perms {
		ok, e := a.holds(sub, p)
		if e != nil {
			return e
		}
		if !ok {
			return &types.AuthorizationError{
				Kind:     types.ErrPermissionDenied,
				Handler:  h.Name(),
				Method:   inv.Method,
				Required: perms,
				Missing:  p,
				Message:  "Missing required permission: " + string(p),
			}
		}
	}
	return nil
}

func (a *Engine) standard(ctx context.Context, h types.Handler, inv types.Invocation, sub types.Subject) error {
	p, required := a.resolver.PermissionFor(ctx, h, inv)
	if !required {
		if !a.failClosed {
			return nil
		}
		if types.Anonymous(sub) {
			return unauthenticated(h, inv)
		}
		return &types.AuthorizationError{
			Kind:    types.ErrPermissionDenied,
			Handler: h.Name(),
			Method:  inv.Method,
			Message: "No permission mapped for method: " + inv.Method,
		}
	}

	if types.Anonymous(sub) {
		return unauthenticated(h, inv)
	}
	if e := a.known(h, inv, p); e != nil {
		return e
	}

	ok, e := a.holds(sub, p)
	if e != nil {
		return e
	}
	if !ok {
		return &types.AuthorizationError{
			Kind:     types.ErrPermissionDenied,
			Handler:  h.Name(),
			Method:   inv.Method,
			Required: []types.Permission{p},
			Missing:  p,
			Message:  "Permission required: " + string(p),
		}
	}
	return nil
}

// explicit qualifies raw permissions and checks them against the catalog
func (a *Engine) explicit(h types.Handler, inv types.Invocation, raws []string) ([]types.Permission, error) {
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: empty permission list for method %s of %s", types.ErrConfiguration, inv.Method, h.Name())
	}

	perms := make([]types.Permission, 0, len(raws))
	for _, raw := range raws {
		p := a.resolver.FormatExplicit(h, inv, raw)
		if e := a.known(h, inv, p); e != nil {
			return nil, e
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func (a *Engine) known(h types.Handler, inv types.Invocation, p types.Permission) error {
	if a.catalog.Load().Has(p) {
		return nil
	}
	return fmt.Errorf("%w: %q required by method %s of %s", types.ErrUnknownPermission, p, inv.Method, h.Name())
}

func (a *Engine) holds(sub types.Subject, p types.Permission) (bool, error) {
	ok, e := a.store.HasPermission(sub, p)
	if e != nil {
		return false, fmt.Errorf("check permission %s of %s: %w", p, sub, e)
	}
	return ok, nil
}

func unauthenticated(h types.Handler, inv types.Invocation) error {
	return &types.AuthorizationError{
		Kind:    types.ErrAuthenticationRequired,
		Handler: h.Name(),
		Method:  inv.Method,
		Message: "Authentication required",
	}
}

func subjectName(sub types.Subject) string {
	if types.Anonymous(sub) {
		return ""
	}
	return sub.String()
}

// PermissionFor implements types.Engine
func (a *Engine) PermissionFor(ctx context.Context, h types.Handler, inv types.Invocation) (types.Permission, bool) {
	return a.resolver.PermissionFor(ctx, h, inv)
}

// Purge implements types.Engine
func (a *Engine) Purge(ctx context.Context) error {
	if e := a.resolver.Purge(ctx); e != nil {
		return fmt.Errorf("purge resolution cache: %w", e)
	}
	a.log.V(4).Info("resolution cache purged")
	return nil
}

// Explain implements types.Engine
func (a *Engine) Explain(ctx context.Context, h types.Handler, inv types.Invocation, sub types.Subject) types.AuthorizationInfo {
	kind := h.Rule(inv.Method)
	info := types.AuthorizationInfo{
		Handler:       h.Name(),
		Method:        inv.Method,
		Resource:      h.ResourceName(inv),
		Rule:          kind.String(),
		Public:        kind == types.RulePublic,
		Custom:        kind == types.RuleCustom,
		Authenticated: !types.Anonymous(sub),
		Subject:       subjectName(sub),
	}

	for _, raw := range h.AnyOf(inv.Method) {
		info.AnyOf = append(info.AnyOf, a.resolver.FormatExplicit(h, inv, raw))
	}
	for _, raw := range h.AllOf(inv.Method) {
		info.AllOf = append(info.AllOf, a.resolver.FormatExplicit(h, inv, raw))
	}
	if p, ok := a.resolver.PermissionFor(ctx, h, inv); ok {
		info.Standard = p
	}

	return info
}
