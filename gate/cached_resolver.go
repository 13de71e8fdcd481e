package gate

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
)

// CachedResolver memoizes another resolver for a fixed TTL measured on clk.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]
	clk   clock.Clock
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[U]cacheEntry
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

func NewCachedResolver[U comparable](inner ProfileResolver[U], clk clock.Clock, ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner: inner,
		clk:   clk,
		ttl:   ttl,
		cache: make(map[U]cacheEntry),
	}
}

// Resolve serves from cache until the entry expires. Errors are not cached.
func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	now := r.clk.Now()
	r.mu.RLock()
	entry, ok := r.cache[user]
	r.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[user] = cacheEntry{profile: profile, expiresAt: now.Add(r.ttl)}
	r.mu.Unlock()
	return profile, nil
}

// Invalidate drops the cached profile of one subject, e.g. after a role change.
func (r *CachedResolver[U]) Invalidate(user U) {
	r.mu.Lock()
	delete(r.cache, user)
	r.mu.Unlock()
}

// InvalidateAll empties the cache.
func (r *CachedResolver[U]) InvalidateAll() {
	r.mu.Lock()
	clear(r.cache)
	r.mu.Unlock()
}
