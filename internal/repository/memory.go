package repository

import (
	"context"
	"sync"
	"time"
)

type MemoryLimitStore struct {
	rateLimits sync.Map
}

func NewMemoryLimitStore() *MemoryLimitStore {
	return &MemoryLimitStore{}
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryLimitStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
