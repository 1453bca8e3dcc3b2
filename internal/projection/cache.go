package projection

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/dealbook/internal/auth"
	"github.com/sells-group/dealbook/internal/model"
)

// Summaries is a set of entity summaries keyed by entity id.
type Summaries = map[string]model.EntitySummary

type cacheEntry struct {
	value     Summaries
	expiresAt time.Time
}

// SummaryCache holds computed business summaries for a fixed TTL and makes
// concurrent callers for the same key share one computation. Expired
// entries are pruned lazily on lookup. Failed computations are never
// stored.
type SummaryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry

	inflight singleflight.Group
}

// NewSummaryCache creates a cache whose entries live for ttl.
func NewSummaryCache(ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// SummaryCacheKey builds the cache key for a role scope and entity set:
// role, the user id for scoped roles, and the sorted distinct ids.
func SummaryCacheKey(id auth.Identity, ids []string) string {
	user := ""
	if id.Role != auth.RoleAdmin {
		user = id.UserID
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return string(id.Role) + "|" + user + "|" + strings.Join(sorted, ",")
}

// Get returns the unexpired entry for key.
func (c *SummaryCache) Get(key string) (Summaries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return maps.Clone(e.value), true
}

func (c *SummaryCache) set(key string, v Summaries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: v, expiresAt: c.now().Add(c.ttl)}
}

// Len reports the number of stored entries, expired or not.
func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrCompute returns the cached value for key or runs compute. While a
// computation for key is in flight, other callers wait for its result
// instead of starting their own. The computation runs detached from the
// caller's cancellation so it always completes; a caller whose ctx ends
// first gets ctx.Err().
func (c *SummaryCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (Summaries, error)) (Summaries, error) {
	if v, ok := c.Get(key); ok {
		zap.L().Debug("projection: summary cache hit", zap.String("key", key))
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (any, error) {
		// A computation for key may have finished since the lookup above.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := compute(detached)
		if err != nil {
			return nil, err
		}
		c.set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			zap.L().Debug("projection: joined in-flight summary computation", zap.String("key", key))
		}
		return maps.Clone(res.Val.(Summaries)), nil
	}
}
