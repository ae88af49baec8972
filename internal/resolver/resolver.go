// Package resolver turns handler methods into the permissions they require
package resolver

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/types"
)

// Observer is told about every resolution computed, that is every cache miss
type Observer interface {
	Computed(handler string)
}

type nopObserver struct{}

func (nopObserver) Computed(string) {}

// Resolver resolves standard permissions, remembering them in a cache
type Resolver struct {
	cache    types.ResolutionCache
	observer Observer
	log      logr.Logger
}

// New creates a resolver, a nil cache or observer is allowed
func New(cache types.ResolutionCache, observer Observer, l logr.Logger) *Resolver {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Resolver{
		cache:    cache,
		observer: observer,
		log:      l,
	}
}

// keySeparator never appears in handler, method, or entity names
const keySeparator = "#"

// Key identifies a resolution of inv on h
func Key(h types.Handler, inv types.Invocation) string {
	return strings.Join([]string{"permission", h.Name(), inv.Method, inv.BoundEntity, h.Fingerprint()}, keySeparator)
}

// PermissionFor returns the standard permission inv on h requires, false if none
func (r *Resolver) PermissionFor(ctx context.Context, h types.Handler, inv types.Invocation) (types.Permission, bool) {
	useCache := r.cache != nil && h.Cached()
	key := Key(h, inv)

	if useCache {
		res, ok, e := r.cache.Load(ctx, key)
		if e != nil {
			r.log.Error(e, "load cached resolution failed", "key", key)
		} else if ok {
			r.log.V(6).Info("resolution cache hit", "key", key)
			return res.Permission, res.Required
		}
	}

	res := r.compute(h, inv)
	r.observer.Computed(h.Name())

	if useCache {
		if e := r.cache.Store(ctx, key, res); e != nil {
			r.log.Error(e, "store resolution failed", "key", key)
		}
	}

	return res.Permission, res.Required
}

func (r *Resolver) compute(h types.Handler, inv types.Invocation) types.Resolution {
	a, ok := h.AbilityFor(inv.Method)
	if !ok {
		return types.Resolution{}
	}

	resource := h.ResourceName(inv)
	p := h.Convention().Compose(resource, string(a))
	r.log.V(6).Info("resolved permission", "handler", h.Name(), "method", inv.Method, "permission", p)

	return types.Resolution{Permission: p, Required: true}
}

// FormatExplicit qualifies a raw permission of an AnyOf or AllOf list.
// A raw permission already carrying a separator is returned unchanged.
func (r *Resolver) FormatExplicit(h types.Handler, inv types.Invocation, raw string) types.Permission {
	p := types.Permission(raw)
	if p.Qualified() {
		return p
	}
	return h.Convention().Compose(h.ResourceName(inv), raw)
}

// Purge drops all cached resolutions
func (r *Resolver) Purge(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Purge(ctx)
}
