// Package cache provides query-result caches keyed by query text. All
// variants share one contract: GetOrCompute runs the compute function at most
// once per key while the entry is live, with lookup and insert under a single
// lock so concurrent callers never compute the same key twice.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is the lookup-or-compute contract of the query-result variants. TTL
// stands apart: its GetOrCompute takes a per-call lifetime.
type Cache[V any] interface {
	// GetOrCompute returns the cached value for key, computing and caching
	// it when absent. A compute error is returned and nothing is cached.
	GetOrCompute(key string, compute func() (V, error)) (V, error)
	// Invalidate drops every cached entry.
	Invalidate()
}

var (
	_ Cache[int] = (*LRU[int])(nil)
	_ Cache[int] = (*SingleSlot[int])(nil)
)

// LRU is a bounded least-recently-used cache.
type LRU[V any] struct {
	mu sync.Mutex
	c  *lru.Cache[string, V]
}

// NewLRU returns an LRU cache holding at most capacity entries.
func NewLRU[V any](capacity int) (*LRU[V], error) {
	c, err := lru.New[string, V](capacity)
	if err != nil {
		return nil, err
	}
	return &LRU[V]{c: c}, nil
}

// GetOrCompute implements Cache.
func (l *LRU[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	l.c.Add(key, v)
	return v, nil
}

// Invalidate implements Cache.
func (l *LRU[V]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Purge()
}

// Len returns the number of live entries.
func (l *LRU[V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Len()
}

// SingleSlot caches exactly one entry: the most recent key. A lookup with a
// different key evicts the previous entry. Suited to interactive use where
// the same query is re-run repeatedly.
type SingleSlot[V any] struct {
	mu    sync.Mutex
	key   string
	value V
	full  bool
}

// NewSingleSlot returns an empty single-entry cache.
func NewSingleSlot[V any]() *SingleSlot[V] {
	return &SingleSlot[V]{}
}

// GetOrCompute implements Cache.
func (s *SingleSlot[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full && s.key == key {
		return s.value, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	s.key = key
	s.value = v
	s.full = true
	return v, nil
}

// Invalidate implements Cache.
func (s *SingleSlot[V]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero V
	s.key = ""
	s.value = zero
	s.full = false
}

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTL caches entries that expire individually. The time-to-live is chosen by
// the caller per lookup, so different keys can carry different lifetimes.
type TTL[V any] struct {
	mu      sync.Mutex
	entries map[string]ttlEntry[V]
	now     func() time.Time
}

// NewTTL returns an empty TTL cache.
func NewTTL[V any]() *TTL[V] {
	return &TTL[V]{
		entries: make(map[string]ttlEntry[V]),
		now:     time.Now,
	}
}

// GetOrCompute returns the cached value for key when it has not expired,
// computing and caching it with the given lifetime otherwise.
func (t *TTL[V]) GetOrCompute(key string, ttl time.Duration, compute func() (V, error)) (V, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok && t.now().Before(e.expires) {
		return e.value, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	t.entries[key] = ttlEntry[V]{value: v, expires: t.now().Add(ttl)}
	return v, nil
}

// Invalidate drops every cached entry.
func (t *TTL[V]) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]ttlEntry[V])
}
