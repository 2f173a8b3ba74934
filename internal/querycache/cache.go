package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrDisabled is returned by Get for a query whose Enabled gate is false.
var ErrDisabled = errors.New("query is disabled")

// Query describes one cached remote read.
type Query[T any] struct {
	Key       string
	Fetch     func(ctx context.Context) (T, error)
	StaleTime time.Duration // after this the value is served but revalidated in the background
	GCTime    time.Duration // after this the value is no longer served and may be evicted
	Enabled   bool
}

type entry struct {
	value       any
	fetchedAt   time.Time
	gcTime      time.Duration
	invalidated bool
}

// Cache is a keyed cache of remote reads with stale-while-revalidate
// semantics. Concurrent fetches of one key collapse into a single call.
type Cache struct {
	group   singleflight.Group
	now     func() time.Time
	metrics *Metrics

	mu           sync.Mutex
	entries      *lru.Cache[string, *entry]
	generations  map[string]uint64
	revalidating map[string]bool
	background   sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMetrics records lookups and fetches into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a Cache holding at most capacity keys; the least recently used key is dropped first.
func New(capacity int, opts ...Option) (*Cache, error) {
	entries, err := lru.New[string, *entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating cache storage: %w", err)
	}
	c := &Cache{
		now:          time.Now,
		entries:      entries,
		generations:  make(map[string]uint64),
		revalidating: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the value for q, fetching it when it is missing, invalidated or
// past its gc window. A stale value is returned immediately while a
// background fetch refreshes it. When refetching an invalidated value fails,
// the previous value is served.
func Get[T any](ctx context.Context, c *Cache, q Query[T]) (T, error) {
	var zero T
	if !q.Enabled {
		c.metrics.lookup(q.Key, "disabled")
		return zero, ErrDisabled
	}

	c.mu.Lock()
	var e entry
	cached, ok := c.entries.Get(q.Key)
	if ok {
		e = *cached
	}
	c.mu.Unlock()

	if ok {
		if v, typed := e.value.(T); typed {
			age := c.now().Sub(e.fetchedAt)
			switch {
			case !e.invalidated && age < q.StaleTime:
				c.metrics.lookup(q.Key, "hit")
				return v, nil
			case !e.invalidated && age < q.GCTime:
				c.metrics.lookup(q.Key, "stale")
				revalidate(ctx, c, q)
				return v, nil
			case e.invalidated && age < q.GCTime:
				c.metrics.lookup(q.Key, "miss")
				fresh, err := fetch(ctx, c, q)
				if err != nil {
					slog.Warn("refetch after invalidation failed; serving previous value", "key", q.Key, "error", err)
					return v, nil
				}
				return fresh, nil
			}
		}
	}

	c.metrics.lookup(q.Key, "miss")
	return fetch(ctx, c, q)
}

// fetch runs q.Fetch once per key and generation, however many callers ask.
func fetch[T any](ctx context.Context, c *Cache, q Query[T]) (T, error) {
	var zero T

	c.mu.Lock()
	gen := c.generations[q.Key]
	c.mu.Unlock()

	v, err, _ := c.group.Do(q.Key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		// Shared by every caller waiting on this key.
		value, err := q.Fetch(context.WithoutCancel(ctx))
		c.metrics.fetch(q.Key, err)
		if err != nil {
			return nil, err
		}
		c.store(q.Key, gen, value, q.GCTime)
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache key %q holds %T", q.Key, v)
	}
	return typed, nil
}

// store records a fetched value. A value fetched before the key was
// invalidated never replaces a newer entry and is itself kept invalidated.
func (c *Cache) store(key string, gen uint64, value any, gcTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := gen == c.generations[key]
	if !current && c.entries.Contains(key) {
		return
	}
	c.entries.Add(key, &entry{
		value:       value,
		fetchedAt:   c.now(),
		gcTime:      gcTime,
		invalidated: !current,
	})
}

// revalidate refreshes q in the background unless a refresh is already running.
func revalidate[T any](ctx context.Context, c *Cache, q Query[T]) {
	c.mu.Lock()
	if c.revalidating[q.Key] {
		c.mu.Unlock()
		return
	}
	c.revalidating[q.Key] = true
	c.background.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.background.Done()
		defer func() {
			c.mu.Lock()
			delete(c.revalidating, q.Key)
			c.mu.Unlock()
		}()
		if _, err := fetch(context.WithoutCancel(ctx), c, q); err != nil {
			slog.Warn("background revalidation failed", "key", q.Key, "error", err)
		}
	}()
}

// Invalidate marks keys as outdated; the next Get fetches them again. Fetches
// already in flight for these keys do not satisfy later Gets. It returns keys.
func (c *Cache) Invalidate(keys ...string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.generations[key]++
		if e, ok := c.entries.Peek(key); ok {
			e.invalidated = true
		}
	}
	return keys
}

// Remove drops key entirely.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[key]++
	c.entries.Remove(key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.entries.Keys() {
		c.generations[key]++
	}
	c.entries.Purge()
}

// Sweep evicts entries whose gc window has passed and returns how many were evicted.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(e.fetchedAt) >= e.gcTime {
			c.entries.Remove(key)
			evicted++
		}
	}
	c.metrics.evicted(evicted)
	return evicted
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Wait blocks until background revalidations have finished.
func (c *Cache) Wait() {
	c.background.Wait()
}
