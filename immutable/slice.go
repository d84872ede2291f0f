package immutable

import (
	"iter"
	"slices"
)

// Slice is a read-only slice.
type Slice[T any] struct {
	s []T
}

// NewSlice returns a read-only Slice holding a copy of s.
func NewSlice[T any](s []T) Slice[T] {
	return Slice[T]{s: slices.Clone(s)}
}

// Len returns the number of elements.
func (s Slice[T]) Len() int {
	return len(s.s)
}

// At returns the element at index i. It panics if i is out of range.
func (s Slice[T]) At(i int) T {
	return s.s[i]
}

// All iterates over index and element pairs.
func (s Slice[T]) All() iter.Seq2[int, T] {
	return slices.All(s.s)
}

// Values iterates over the elements in order.
func (s Slice[T]) Values() iter.Seq[T] {
	return slices.Values(s.s)
}

// Mutable returns a copy of the elements that the caller may change.
func (s Slice[T]) Mutable() []T {
	return slices.Clone(s.s)
}
