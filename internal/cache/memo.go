package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Memo computes values at most once per key while they stay cached.
// Concurrent misses for one key share a single computation. Errors are
// returned to every waiter and never cached.
type Memo[T any] struct {
	cache  Cache[T]
	group  singleflight.Group
	onHit  func()
	onMiss func()
}

// NewMemo wraps c. onHit and onMiss may be nil.
func NewMemo[T any](c Cache[T], onHit, onMiss func()) *Memo[T] {
	if c == nil {
		c = Nop[T]{}
	}
	return &Memo[T]{cache: c, onHit: onHit, onMiss: onMiss}
}

// Do returns the cached value for key or computes, stores and returns it.
func (m *Memo[T]) Do(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := m.cache.Get(ctx, key); ok {
		if m.onHit != nil {
			m.onHit()
		}
		return v, nil
	}
	if m.onMiss != nil {
		m.onMiss()
	}

	// The shared computation outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	res, err, _ := m.group.Do(key, func() (any, error) {
		v, err := compute(shared)
		if err != nil {
			return v, err
		}
		m.cache.Set(shared, key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}
