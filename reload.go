package authorizable

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/policy"
	"github.com/supremind/authorizable/types"
)

// LoadPolicy reads the policy file at path, seeds store with its grants and
// returns a registry of its handlers together with its catalog
func LoadPolicy(path string, store types.RoleStore, l logr.Logger) (*Registry, *types.Catalog, error) {
	p, e := policy.Load(path)
	if e != nil {
		return nil, nil, e
	}
	catalog, e := p.Catalog()
	if e != nil {
		return nil, nil, e
	}
	if store != nil {
		if e := p.Seed(store, catalog); e != nil {
			return nil, nil, fmt.Errorf("seed policy %s: %w", path, e)
		}
	}
	handlers, e := p.BuildHandlers(catalog, l.WithName("handler"))
	if e != nil {
		return nil, nil, e
	}
	registry, e := NewRegistry(handlers...)
	if e != nil {
		return nil, nil, e
	}
	return registry, catalog, nil
}

// ReloadOnChange replaces handlers of registry and the catalog of authz whenever the policy file at path changes,
// and purges resolutions cached by authz. Invalid policies are logged and ignored.
func ReloadOnChange(ctx context.Context, path string, registry *Registry, authz types.Engine, l logr.Logger) error {
	return policy.Watch(ctx, path, l, func(p *policy.Policy) {
		catalog, e := p.Catalog()
		if e != nil {
			l.Error(e, "invalid policy catalog", "path", path)
			return
		}
		handlers, e := p.BuildHandlers(catalog, l.WithName("handler"))
		if e != nil {
			l.Error(e, "invalid policy handlers", "path", path)
			return
		}

		authz.SetCatalog(catalog)
		registry.Replace(handlers...)
		if e := authz.Purge(ctx); e != nil {
			l.Error(e, "purge resolutions failed")
		}
		l.Info("policy reloaded", "path", path, "handlers", len(handlers))
	})
}
