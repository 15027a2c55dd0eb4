// Package csync provides concurrency-safe generic collections.
package csync

import (
	"iter"
	"maps"
	"sync"
)

// Map is a thread-safe map.
type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	inner map[K]V
}

// NewMap creates a new thread-safe map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		inner: make(map[K]V),
	}
}

// NewMapFrom creates a new thread-safe map from an existing map.
func NewMapFrom[K comparable, V any](m map[K]V) *Map[K, V] {
	return &Map[K, V]{
		inner: m,
	}
}

// Set sets the value for the specified key.
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inner[key] = value
}

// Del removes the specified key.
func (m *Map[K, V]) Del(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inner, key)
}

// Get returns the value for the specified key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.inner[key]
	return v, ok
}

// Take returns the value for the specified key and removes it from the map.
func (m *Map[K, V]) Take(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.inner[key]
	delete(m.inner, key)
	return v, ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.inner)
}

// Seq2 returns an iterator over key/value pairs. The iteration happens over a
// snapshot of the map, so entries may be mutated concurrently.
func (m *Map[K, V]) Seq2() iter.Seq2[K, V] {
	m.mu.RLock()
	snapshot := maps.Clone(m.inner)
	m.mu.RUnlock()
	return func(yield func(K, V) bool) {
		for k, v := range snapshot {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Seq returns an iterator over the values.
func (m *Map[K, V]) Seq() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.Seq2() {
			if !yield(v) {
				return
			}
		}
	}
}
