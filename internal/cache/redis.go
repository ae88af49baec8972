package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/supremind/authorizable/types"
)

var _ types.ResolutionCache = (*Redis)(nil)

// DefaultPrefix namespaces resolution keys in a shared redis
const DefaultPrefix = "authorizable:"

// stored values: "+users_view" for a required permission, "-" for none
const (
	requiredMark = "+"
	noneMark     = "-"
	scanBatch    = 100
)

// Redis is a resolution cache shared by processes through a redis server
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a cache storing entries under prefix in client, each for ttl
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Load implements types.ResolutionCache
func (c *Redis) Load(ctx context.Context, key string) (types.Resolution, bool, error) {
	v, e := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(e, redis.Nil) {
		return types.Resolution{}, false, nil
	}
	if e != nil {
		return types.Resolution{}, false, fmt.Errorf("load resolution %s: %w", key, e)
	}

	switch {
	case v == noneMark:
		return types.Resolution{}, true, nil
	case strings.HasPrefix(v, requiredMark) && len(v) > len(requiredMark):
		return types.Resolution{Permission: types.Permission(v[len(requiredMark):]), Required: true}, true, nil
	}

	// unknown content is treated as a miss, it will be overwritten
	return types.Resolution{}, false, nil
}

// Store implements types.ResolutionCache
func (c *Redis) Store(ctx context.Context, key string, r types.Resolution) error {
	v := noneMark
	if r.Required {
		v = requiredMark + string(r.Permission)
	}

	if e := c.client.Set(ctx, c.prefix+key, v, c.ttl).Err(); e != nil {
		return fmt.Errorf("store resolution %s: %w", key, e)
	}
	return nil
}

// Purge deletes every key under the prefix
func (c *Redis) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()

	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatch {
			if e := c.client.Del(ctx, keys...).Err(); e != nil {
				return fmt.Errorf("purge resolutions: %w", e)
			}
			keys = keys[:0]
		}
	}
	if e := iter.Err(); e != nil {
		return fmt.Errorf("purge resolutions: %w", e)
	}

	if len(keys) > 0 {
		if e := c.client.Del(ctx, keys...).Err(); e != nil {
			return fmt.Errorf("purge resolutions: %w", e)
		}
	}
	return nil
}
