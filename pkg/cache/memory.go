package cache

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryTTL = 7 * 24 * time.Hour

type memoryItem struct {
	value    []byte
	expireAt time.Time
	access   time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryCache implements Service using in-memory storage with LRU eviction.
type MemoryCache struct {
	mutex   sync.Mutex
	data    map[string]*memoryItem
	maxSize int
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:    make(map[string]*memoryItem),
		maxSize: cfg.MaxSize,
		stop:    make(chan struct{}),
		now:     time.Now,
	}

	if cfg.CleanupInterval > 0 {
		go mc.cleanupExpired(cfg.CleanupInterval)
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = defaultMemoryTTL
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.now()
	if _, ok := mc.data[key]; !ok && mc.maxSize > 0 && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	mc.data[key] = &memoryItem{value: data, expireAt: now.Add(expiration), access: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	item, ok := mc.lookup(key)
	var data []byte
	if ok {
		data = item.value
	}
	mc.mutex.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	results := make(map[string]string, len(keys))
	for _, key := range keys {
		if item, ok := mc.lookup(key); ok {
			results[key] = string(item.value)
		}
	}
	return results, nil
}

// lookup returns a live item and refreshes its access time. Caller holds the mutex.
func (mc *MemoryCache) lookup(key string) (*memoryItem, bool) {
	item, ok := mc.data[key]
	if !ok {
		return nil, false
	}
	now := mc.now()
	if item.expired(now) {
		delete(mc.data, key)
		return nil, false
	}
	item.access = now
	return item, true
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range mc.data {
		if oldestKey == "" || item.access.Before(oldest) {
			oldestKey, oldest = key, item.access
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mc.mutex.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
				}
			}
			mc.mutex.Unlock()
		case <-mc.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stop) })
	return nil
}

var _ Service = (*MemoryCache)(nil)
