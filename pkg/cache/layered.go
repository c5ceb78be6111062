package cache

import (
	"context"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis).
// L1 entries live at most l1TTL so other writers to L2 become visible.
type LayeredCache struct {
	memCache *MemoryCache
	remote   Service
	l1TTL    time.Duration
}

// NewLayeredCache creates a layered cache in front of remote.
func NewLayeredCache(remote Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     2 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		memCache: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		remote:   remote,
		l1TTL:    cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) l1Expiration(expiration time.Duration) time.Duration {
	if expiration <= 0 || expiration > lc.l1TTL {
		return lc.l1TTL
	}
	return expiration
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	// Write-through: remote first, then memory
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.memCache.Set(ctx, key, value, lc.l1Expiration(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var raw string
	if err := lc.memCache.Get(ctx, key, &raw); err == nil {
		return decode([]byte(raw), dest)
	}

	if err := lc.remote.Get(ctx, key, &raw); err != nil {
		return err
	}
	_ = lc.memCache.Set(ctx, key, raw, lc.l1TTL)
	return decode([]byte(raw), dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out, _ := lc.memCache.MGet(ctx, keys...)
	var missing []string
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	remote, err := lc.remote.MGet(ctx, missing...)
	if err != nil {
		return nil, err
	}
	for k, v := range remote {
		out[k] = v
		_ = lc.memCache.Set(ctx, k, v, lc.l1TTL)
	}
	return out, nil
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	return lc.remote.Close()
}

var _ Service = (*LayeredCache)(nil)
