package services

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FetchFunc loads a fresh value for one cache key from the ledger.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache is the shared structure behind every entity cache: a local snapshot
// per key with at most one in-flight fetch per key at a time.
//
// Two invariants hold for every key:
//   - a fetch started while another is pending is coalesced onto it, never
//     duplicated;
//   - a stale value is kept until a replacement successfully lands
//     (stale-while-revalidate), and a response is dropped when an
//     invalidation superseded the fetch that produced it, so a slow poll
//     can never overwrite a mutation's invalidation.
type Cache[T any] struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[string]*cacheEntry[T]
}

type cacheEntry[T any] struct {
	data      *T
	fetchedAt time.Time
	stale     bool
	gen       uint64 // bumped by Invalidate; a fetch result only lands if unchanged
	inflight  *flight[T]
}

type flight[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func NewCache[T any](clock clockwork.Clock) *Cache[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache[T]{
		clock:   clock,
		entries: make(map[string]*cacheEntry[T]),
	}
}

// Get returns the current snapshot for the key, stale or not. Display
// layers read through Get so users keep seeing the last known state while
// a refetch is in flight.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	e, ok := c.entries[key]
	if !ok || e.data == nil {
		return zero, false
	}
	return *e.data, true
}

// Fetch returns the cached value when it is still fresh, otherwise loads it
// through fn. Concurrent callers for the same key share one fetch.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fn FetchFunc[T]) (T, error) {
	return c.fetch(ctx, key, fn, false)
}

// Refresh always reloads the key, joining an in-flight fetch if one exists.
// Poll workers drive their caches through Refresh.
func (c *Cache[T]) Refresh(ctx context.Context, key string, fn FetchFunc[T]) (T, error) {
	return c.fetch(ctx, key, fn, true)
}

func (c *Cache[T]) fetch(ctx context.Context, key string, fn FetchFunc[T], force bool) (T, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry[T]{}
		c.entries[key] = e
	}

	if !force && e.data != nil && !e.stale {
		val := *e.data
		c.mu.Unlock()
		return val, nil
	}

	if e.inflight != nil {
		f := e.inflight
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.val, f.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	f := &flight[T]{done: make(chan struct{})}
	e.inflight = f
	startGen := e.gen
	c.mu.Unlock()

	val, err := fn(ctx)

	c.mu.Lock()
	if e.inflight == f {
		e.inflight = nil
	}
	if err == nil && e.gen == startGen {
		v := val
		e.data = &v
		e.fetchedAt = c.clock.Now()
		e.stale = false
	}
	c.mu.Unlock()

	f.val, f.err = val, err
	close(f.done)
	return val, err
}

// Invalidate marks the key stale so its next read refetches, and bumps the
// generation so any response from a fetch that started before this call is
// discarded on arrival.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry[T]{}
		c.entries[key] = e
	}
	e.gen++
	e.stale = true
}

// IsStale reports whether the key needs a refetch before it can be trusted.
func (c *Cache[T]) IsStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return !ok || e.data == nil || e.stale
}

// FetchedAt returns when the current snapshot for the key landed.
func (c *Cache[T]) FetchedAt(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.data == nil {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}
