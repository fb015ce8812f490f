// Package cache holds the in-process TTL map behind the customer
// identifier resolver.
package cache

import (
	"sync"
	"time"
)

// sweepEvery bounds how many writes go by between sweeps of expired
// entries. Resolver traffic is import-shaped (bursts of thousands of
// refs), so lazy sweeping on write keeps reads lock-cheap.
const sweepEvery = 512

// TTLMap maps resolved keys onto values for a fixed duration chosen
// at construction. A zero TTL disables expiry. The zero value is not
// usable; call NewTTLMap.
type TTLMap[K comparable, V comparable] struct {
	ttl time.Duration

	mu     sync.RWMutex
	items  map[K]entry[V]
	writes int
}

type entry[V comparable] struct {
	value     V
	expiresAt time.Time
}

func NewTTLMap[K comparable, V comparable](ttl time.Duration) *TTLMap[K, V] {
	return &TTLMap[K, V]{ttl: ttl, items: make(map[K]entry[V])}
}

// Get returns the live value for key. Expired entries read as misses
// and are dropped in place.
func (m *TTLMap[K, V]) Get(key K) (V, bool) {
	var zero V
	if m == nil {
		return zero, false
	}
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if e.expired(time.Now()) {
		m.Forget(key)
		return zero, false
	}
	return e.value, true
}

// Put stores key -> value for the map's TTL.
func (m *TTLMap[K, V]) Put(key K, value V) {
	if m == nil {
		return
	}
	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = time.Now().Add(m.ttl)
	}
	m.mu.Lock()
	m.items[key] = entry[V]{value: value, expiresAt: expiresAt}
	m.writes++
	if m.writes >= sweepEvery {
		m.sweepLocked(time.Now())
		m.writes = 0
	}
	m.mu.Unlock()
}

// Forget drops one key.
func (m *TTLMap[K, V]) Forget(key K) {
	if m == nil {
		return
	}
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Evict drops every key currently mapped to value. The resolver uses
// it to flush all cached references to a customer whose record
// changed out from under them.
func (m *TTLMap[K, V]) Evict(value V) {
	if m == nil {
		return
	}
	m.mu.Lock()
	for key, e := range m.items {
		if e.value == value {
			delete(m.items, key)
		}
	}
	m.mu.Unlock()
}

// Len reports the number of live entries.
func (m *TTLMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	now := time.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.items {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (m *TTLMap[K, V]) sweepLocked(now time.Time) {
	for key, e := range m.items {
		if e.expired(now) {
			delete(m.items, key)
		}
	}
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
