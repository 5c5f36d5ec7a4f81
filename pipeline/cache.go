package pipeline

import (
	"context"
	"time"

	"github.com/basalt-ai/basalt/cache"
)

// CacheSeen adapts a cache.Cache into the pipeline's Seen/Mark
// deduplication contract: a Node's id is "seen" if it is present as a
// key, and FilterCached "marks" it by setting that key.
type CacheSeen struct {
	Cache cache.Cache
	TTL   time.Duration
}

// NewCacheSeen wraps c, marking entries with ttl (0 for the cache's
// default TTL, negative for no expiration).
func NewCacheSeen(c cache.Cache, ttl time.Duration) *CacheSeen {
	return &CacheSeen{Cache: c, TTL: ttl}
}

func (c *CacheSeen) Seen(ctx context.Context, id string) (bool, error) {
	_, ok, err := c.Cache.Get(ctx, id)
	return ok, err
}

func (c *CacheSeen) Mark(ctx context.Context, id string) error {
	return c.Cache.Set(ctx, id, true, c.TTL)
}

var _ Cache = (*CacheSeen)(nil)
