// Package cache stores resolved permissions of handler methods
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/supremind/authorizable/types"
)

// defaults borrowed from the permission cache of the user management service
const (
	DefaultTTL  = time.Hour
	DefaultSize = 1024
)

var (
	_ types.ResolutionCache = (*LRU)(nil)
	_ types.ResolutionCache = None{}
)

// LRU is an in-process, size bounded resolution cache with expiring entries.
// It is safe for concurrent use.
type LRU struct {
	entries *lru.LRU[string, types.Resolution]
}

// NewLRU creates an in-process cache holding at most size entries, each for ttl
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &LRU{
		entries: lru.NewLRU[string, types.Resolution](size, nil, ttl),
	}
}

// Load implements types.ResolutionCache
func (c *LRU) Load(_ context.Context, key string) (types.Resolution, bool, error) {
	r, ok := c.entries.Get(key)
	return r, ok, nil
}

// Store implements types.ResolutionCache
func (c *LRU) Store(_ context.Context, key string, r types.Resolution) error {
	c.entries.Add(key, r)
	return nil
}

// Purge implements types.ResolutionCache
func (c *LRU) Purge(context.Context) error {
	c.entries.Purge()
	return nil
}

// Len returns the number of live entries
func (c *LRU) Len() int {
	return c.entries.Len()
}

// None never caches anything
type None struct{}

// Load implements types.ResolutionCache
func (None) Load(context.Context, string) (types.Resolution, bool, error) {
	return types.Resolution{}, false, nil
}

// Store implements types.ResolutionCache
func (None) Store(context.Context, string, types.Resolution) error {
	return nil
}

// Purge implements types.ResolutionCache
func (None) Purge(context.Context) error {
	return nil
}
