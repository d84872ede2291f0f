package immutable

import (
	"iter"
	"maps"
)

// Set is a read-only set.
type Set[T comparable] struct {
	m map[T]struct{}
}

// NewSet returns a read-only Set of the given members.
func NewSet[T comparable](members ...T) Set[T] {
	m := make(map[T]struct{}, len(members))
	for _, v := range members {
		m[v] = struct{}{}
	}
	return Set[T]{m: m}
}

// Len returns the number of members.
func (s Set[T]) Len() int {
	return len(s.m)
}

// Has reports whether v is a member.
func (s Set[T]) Has(v T) bool {
	_, ok := s.m[v]
	return ok
}

// All iterates over the members in unspecified order.
func (s Set[T]) All() iter.Seq[T] {
	return maps.Keys(s.m)
}

// Mutable returns the members as a map the caller may change.
func (s Set[T]) Mutable() map[T]struct{} {
	if s.m == nil {
		return map[T]struct{}{}
	}
	return maps.Clone(s.m)
}
