package secrets

import (
	"context"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/patrickmn/go-cache"
)

// CachedStore keeps secrets in memory for a TTL in front of another store.
// Misses are not cached.
type CachedStore struct {
	next  ports.SecretStore
	cache *cache.Cache
}

var _ ports.SecretStore = (*CachedStore)(nil)

// NewCachedStore wraps next. A non-positive ttl disables caching.
func NewCachedStore(next ports.SecretStore, ttl time.Duration) *CachedStore {
	c := &CachedStore{next: next}
	if ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	return c
}

// GetSecret returns a cached copy when one is fresh
func (c *CachedStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	if c.cache == nil {
		return c.next.GetSecret(ctx, path)
	}
	if v, ok := c.cache.Get(path); ok {
		return copySecret(v.(map[string]string)), nil
	}

	secret, err := c.next.GetSecret(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(path, copySecret(secret))
	return secret, nil
}

// Invalidate drops every cached secret, e.g. after rotation
func (c *CachedStore) Invalidate() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

func copySecret(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
