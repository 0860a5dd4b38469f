package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryQueryCache is the in-process QueryCache used when Redis is absent.
// Values are stored JSON-encoded so both caches decode identically.
type MemoryQueryCache struct {
	entries    sync.Map
	rateLimits sync.Map
	now        func() time.Time
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryQueryCache() *MemoryQueryCache {
	return &MemoryQueryCache{now: time.Now}
}

func (r *MemoryQueryCache) Get(_ context.Context, key string, out any) (bool, error) {
	val, ok := r.entries.Load(key)
	if !ok {
		return false, nil
	}
	entry := val.(*cacheEntry)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.entries.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(entry.data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return true, nil
}

func (r *MemoryQueryCache) Set(_ context.Context, key string, val any, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	entry := &cacheEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.entries.Store(key, entry)
	return nil
}

func (r *MemoryQueryCache) Invalidate(_ context.Context, prefix string) error {
	r.entries.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			r.entries.Delete(k)
		}
		return true
	})
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryQueryCache) CheckRateLimit(_ context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(userID, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
