package immutable

import (
	"iter"
	"maps"
)

// Map is a read-only map.
type Map[K comparable, V any] struct {
	m map[K]V
}

// NewMap returns a read-only Map holding a copy of m.
func NewMap[K comparable, V any](m map[K]V) Map[K, V] {
	return Map[K, V]{m: maps.Clone(m)}
}

// Len returns the number of entries.
func (m Map[K, V]) Len() int {
	return len(m.m)
}

// Get returns the value stored under k.
func (m Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.m[k]
	return v, ok
}

// Has reports whether k is present.
func (m Map[K, V]) Has(k K) bool {
	_, ok := m.m[k]
	return ok
}

// All iterates over the entries in unspecified order.
func (m Map[K, V]) All() iter.Seq2[K, V] {
	return maps.All(m.m)
}

// Keys iterates over the keys in unspecified order.
func (m Map[K, V]) Keys() iter.Seq[K] {
	return maps.Keys(m.m)
}

// Mutable returns a copy of the entries that the caller may change.
func (m Map[K, V]) Mutable() map[K]V {
	if m.m == nil {
		return map[K]V{}
	}
	return maps.Clone(m.m)
}
