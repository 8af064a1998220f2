package cache

import (
	"context"
	"path"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
)

const (
	defaultMemoryCacheSize = 1024
	// memoryCacheMaxTTL bounds how long any entry can live; per-entry
	// expirations shorter than this are enforced on read.
	memoryCacheMaxTTL = 24 * time.Hour
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter is an in-process CacheProvider used when Redis is disabled or
// unreachable. Entries are lost on restart.
type MemoryAdapter struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryAdapter creates an LRU-backed cache holding at most size entries.
func NewMemoryAdapter(size int) *MemoryAdapter {
	if size <= 0 {
		size = defaultMemoryCacheSize
	}
	return &MemoryAdapter{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, memoryCacheMaxTTL),
		now: time.Now,
	}
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := a.lru.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !a.now().Before(entry.expiresAt) {
		a.lru.Remove(key)
		return nil, providers.ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value in cache with expiration. Non-positive expirations use
// the cache-wide maximum.
func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		entry.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	a.lru.Add(key, entry)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.lru.Remove(key)
	return nil
}

// DeletePattern removes every key matching a glob pattern.
func (a *MemoryAdapter) DeletePattern(_ context.Context, pattern string) error {
	for _, key := range a.lru.Keys() {
		if ok, err := path.Match(pattern, key); err != nil {
			return err
		} else if ok {
			a.lru.Remove(key)
		}
	}
	return nil
}
