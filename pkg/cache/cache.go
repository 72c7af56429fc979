// Package cache provides small in-process TTL caches with single-flight
// refresh semantics: concurrent callers that find an expired value share one
// in-flight load instead of issuing duplicate upstream calls.
package cache

import (
	"sync"
	"time"
)

type flight[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Value caches a single value with a TTL.
type Value[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	value     T
	expiresAt time.Time
	inFlight  *flight[T]
}

// NewValue returns an empty cache slot whose entries live for ttl.
func NewValue[T any](ttl time.Duration) *Value[T] {
	return &Value[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value, or runs loader to refresh it. Only one loader
// runs at a time; concurrent callers wait for the in-flight load and share
// its result. Failed loads are not cached.
func (c *Value[T]) Get(loader func() (T, error)) (T, error) {
	c.mu.Lock()
	if c.now().Before(c.expiresAt) {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	if f := c.inFlight; f != nil {
		c.mu.Unlock()
		<-f.done
		return f.value, f.err
	}
	f := &flight[T]{done: make(chan struct{})}
	c.inFlight = f
	c.mu.Unlock()

	v, err := loader()

	c.mu.Lock()
	if err == nil {
		c.value = v
		c.expiresAt = c.now().Add(c.ttl)
	}
	c.inFlight = nil
	c.mu.Unlock()

	f.value, f.err = v, err
	close(f.done)
	return v, err
}

// Invalidate drops the cached value so the next Get reloads.
func (c *Value[T]) Invalidate() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
	inFlight  *flight[T]
}

// Map caches values per string key, each with the same TTL and the same
// single-flight refresh behaviour as Value.
type Map[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry[T]
}

// NewMap returns an empty keyed cache whose entries live for ttl.
func NewMap[T any](ttl time.Duration) *Map[T] {
	return &Map[T]{ttl: ttl, now: time.Now, entries: make(map[string]*entry[T])}
}

// Get returns the cached value for key, or runs loader to refresh it.
func (m *Map[T]) Get(key string, loader func() (T, error)) (T, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry[T]{}
		m.entries[key] = e
	}
	if m.now().Before(e.expiresAt) {
		v := e.value
		m.mu.Unlock()
		return v, nil
	}
	if f := e.inFlight; f != nil {
		m.mu.Unlock()
		<-f.done
		return f.value, f.err
	}
	f := &flight[T]{done: make(chan struct{})}
	e.inFlight = f
	m.mu.Unlock()

	v, err := loader()

	m.mu.Lock()
	if err == nil {
		e.value = v
		e.expiresAt = m.now().Add(m.ttl)
	}
	e.inFlight = nil
	m.mu.Unlock()

	f.value, f.err = v, err
	close(f.done)
	return v, err
}

// Invalidate drops the entry for key, if present.
func (m *Map[T]) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// InvalidateAll drops every entry.
func (m *Map[T]) InvalidateAll() {
	m.mu.Lock()
	m.entries = make(map[string]*entry[T])
	m.mu.Unlock()
}
