// Package authorizable decides whether a subject may invoke a handler method,
// by conventions mapping methods to abilities and handlers to resources.
package authorizable

import (
	"log"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/supremind/authorizable/internal/cache"
	"github.com/supremind/authorizable/internal/engine"
	"github.com/supremind/authorizable/types"
)

// New creates an authorization engine
func New(opts ...EngineOption) (types.Engine, error) {
	cfg := &EngineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.log == nil {
		cfg.log = defaultLogger()
	}
	if cfg.catalog == nil {
		cfg.catalog = types.DefaultCatalog()
	}
	if cfg.cache == nil {
		cfg.cache = cache.NewLRU(cache.DefaultSize, cache.DefaultTTL)
	}

	store := cfg.store
	if store != nil && len(cfg.presets) > 0 {
		store = withPresets(store, cfg.presets...)
	}

	authz, e := engine.New(engine.Config{
		Store:      store,
		Catalog:    cfg.catalog,
		Cache:      cfg.cache,
		FailClosed: cfg.failClosed,
		Registerer: cfg.registerer,
		Log:        cfg.log.WithName("authorizable"),
	})
	if e != nil {
		return nil, e
	}
	return authz, nil
}

func defaultLogger() *logr.Logger {
	l := stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile))
	return &l
}

// WithStore sets the oracle telling which permissions subjects hold, it is required
func WithStore(s types.RoleAssignmentStore) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.store = s
	}
}

// WithCatalog sets the closed set of known permissions,
// the user management permissions are used if not set
func WithCatalog(c *types.Catalog) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.catalog = c
	}
}

// WithCache sets where resolved permissions are cached,
// an in-process LRU cache is used if not set
func WithCache(c types.ResolutionCache) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.cache = c
	}
}

// WithLRUCache caches at most size resolutions in process, each for ttl
func WithLRUCache(size int, ttl time.Duration) EngineOption {
	return WithCache(cache.NewLRU(size, ttl))
}

// WithRedisCache caches resolutions in redis under prefix, each for ttl
func WithRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) EngineOption {
	return WithCache(cache.NewRedis(client, prefix, ttl))
}

// WithoutCache resolves permissions on every authorization
func WithoutCache() EngineOption {
	return WithCache(cache.None{})
}

// WithLogger sets logger for engine components
func WithLogger(l logr.Logger) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.log = &l
	}
}

// WithRegisterer exposes decision metrics through reg
func WithRegisterer(reg prometheus.Registerer) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.registerer = reg
	}
}

// WithFailClosed denies methods without any rule or ability, they are allowed by default
func WithFailClosed() EngineOption {
	return func(cfg *EngineConfig) {
		cfg.failClosed = true
	}
}

// WithPresets adds preset polices checked before the store
func WithPresets(presets ...Preset) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.presets = append(cfg.presets, presets...)
	}
}

// EngineConfig works together with EngineOption to control the initialization of engine
type EngineConfig struct {
	store      types.RoleAssignmentStore
	catalog    *types.Catalog
	cache      types.ResolutionCache
	presets    []Preset
	failClosed bool
	registerer prometheus.Registerer
	log        *logr.Logger
}

// EngineOption controls how to init an engine
type EngineOption func(*EngineConfig)
