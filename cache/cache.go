package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned by Store.Get when no entry exists for a fingerprint.
var ErrMiss = errors.New("cache miss")

// Entry is a cached provider result. An entry is a value: once written it is
// never mutated, only deleted by an explicit clear.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Data        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	Size        int64     `json:"size"`
}

// Store is a durable content-addressed key/value backend.
type Store interface {
	// Get is a pure storage lookup; it never performs a provider call.
	Get(ctx context.Context, fingerprint string) (*Entry, error)
	Put(ctx context.Context, fingerprint string, data []byte, contentType string) (*Entry, error)
	// Clear removes entries. An empty scope clears everything; a capability
	// name ("search", "screenshot", ...) clears only that capability's keys.
	Clear(ctx context.Context, scope string) error
}

// Cache wraps a Store with single-flight semantics: concurrent computes for
// the same fingerprint collapse into one underlying call and share the result.
type Cache struct {
	store Store
	group singleflight.Group
}

// New wraps a Store.
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Get looks the fingerprint up in the backing store.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	return c.store.Get(ctx, fingerprint)
}

// Put stores a computed value. Callers must only put results of successful
// provider calls.
func (c *Cache) Put(ctx context.Context, fingerprint string, data []byte, contentType string) (*Entry, error) {
	return c.store.Put(ctx, fingerprint, data, contentType)
}

// Clear delegates to the backing store.
func (c *Cache) Clear(ctx context.Context, scope string) error {
	return c.store.Clear(ctx, scope)
}

// GetOrCompute returns the cached entry for fingerprint, or runs compute once
// and stores its result. The second return reports whether the value came
// from the cache. A failed compute never populates the cache, so transient
// errors are not sticky.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint, contentType string, compute func(ctx context.Context) ([]byte, error)) (*Entry, bool, error) {
	type outcome struct {
		entry *Entry
		hit   bool
	}

	v, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		if entry, err := c.store.Get(ctx, fingerprint); err == nil {
			return outcome{entry: entry, hit: true}, nil
		} else if !errors.Is(err, ErrMiss) {
			return nil, err
		}

		data, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		entry, err := c.store.Put(ctx, fingerprint, data, contentType)
		if err != nil {
			return nil, err
		}
		return outcome{entry: entry, hit: false}, nil
	})
	if err != nil {
		return nil, false, err
	}

	out := v.(outcome)
	return out.entry, out.hit, nil
}
