// Package query caches the results of REST calls by key, so that loaders
// running one after another share data instead of refetching it.
//
// Keys are string slices such as {"servers", id, "channels"}; invalidating
// a prefix marks every key under it stale.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cached query.
type Key []string

// String returns a unique encoding of the key.
func (k Key) String() string {
	return strings.Join(k, "\x1f")
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

type entry struct {
	key       Key
	value     any
	updatedAt time.Time
	stale     bool
}

// Client is a query cache. It is safe for concurrent use.
type Client struct {
	staleTime time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNow replaces the clock used for staleness.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a cache whose entries become stale staleTime after they
// were fetched. A zero staleTime makes every entry stale immediately.
func NewClient(staleTime time.Duration, opts ...Option) *Client {
	c := &Client{
		staleTime: staleTime,
		now:       time.Now,
		logger:    zap.NewNop(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StaleTime returns how long fetched data stays fresh.
func (c *Client) StaleTime() time.Duration {
	return c.staleTime
}

func (c *Client) lookup(key Key) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

func (c *Client) fresh(e *entry) bool {
	return !e.stale && c.now().Sub(e.updatedAt) < c.staleTime
}

func (c *Client) store(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = &entry{key: key, value: value, updatedAt: c.now()}
}

// fetch runs fn once for all concurrent callers with the same key. The shared
// call does not inherit the cancellation of whichever caller started it; each
// caller only stops waiting when its own ctx is done.
func (c *Client) fetch(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		c.logger.Debug("Fetching", zap.Strings("key", key))
		v, err := fn(shared)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EnsureData returns the cached value for key, fresh or stale, and only
// calls fn when nothing usable is cached.
func EnsureData[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	if e, ok := c.lookup(key); ok {
		if v, ok := e.value.(T); ok {
			return v, nil
		}
	}
	return fetchAs(ctx, c, key, fn)
}

// Fetch returns the cached value for key while it is fresh, and refetches it
// otherwise.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	if e, ok := c.lookup(key); ok && c.fresh(e) {
		if v, ok := e.value.(T); ok {
			return v, nil
		}
	}
	return fetchAs(ctx, c, key, fn)
}

func fetchAs[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %v: fetched value has type %T", []string(key), v)
	}
	return typed, nil
}

// GetData returns the cached value for key without fetching.
func GetData[T any](c *Client, key Key) (T, bool) {
	var zero T
	e, ok := c.lookup(key)
	if !ok {
		return zero, false
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// SetData stores value under key as freshly fetched.
func SetData[T any](c *Client, key Key, value T) {
	c.store(key, value)
}

// Invalidate marks every entry whose key starts with prefix as stale. An
// empty prefix matches everything.
func (c *Client) Invalidate(prefix ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			n++
		}
	}
	return n
}

// Remove drops every entry whose key starts with prefix.
func (c *Client) Remove(prefix ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}
