// Package cache provides an in-memory TTL cache and a loader that fills it
// at most once per key at a time.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"
)

var _ port.Cache[int] = (*InMemory[int])(nil)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	// Background cleanup goroutine
	go c.cleanup()
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Close stops the cleanup goroutine.
func (c *InMemory[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		now := time.Now()
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}
}

// ============================================================
// Loader
// ============================================================

// Loader serves values from an InMemory cache and collapses concurrent
// misses for the same key into a single load.
type Loader[T any] struct {
	name    string
	cache   *InMemory[T]
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewLoader creates a loader whose hits and misses are reported under name.
func NewLoader[T any](name string, ttl time.Duration, metrics *observability.Metrics) *Loader[T] {
	return &Loader[T]{
		name:    name,
		cache:   New[T](ttl),
		metrics: metrics,
	}
}

// Get returns the cached value for key, calling load on a miss. Failed loads
// are not cached. The load runs detached from ctx cancellation so one caller
// giving up does not fail the others waiting on it.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		l.metrics.IncrCacheHit(l.name)
		return v, nil
	}
	l.metrics.IncrCacheMiss(l.name)

	ch := l.group.DoChan(key, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops key so the next Get reloads it.
func (l *Loader[T]) Invalidate(key string) {
	l.cache.Delete(key)
}

// Close releases the underlying cache.
func (l *Loader[T]) Close() {
	l.cache.Close()
}
