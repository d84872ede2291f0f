package immutable

// View keeps a private copy of a value and hands out clones of it.
// Nothing a reader does to the value it gets can change the View.
type View[T any] struct {
	v T
}

// Freeze returns a View over a deep copy of v.
func Freeze[T any](v T) View[T] {
	return View[T]{v: Clone(v)}
}

// Get returns a fresh deep copy of the stored value.
func (v View[T]) Get() T {
	return Clone(v.v)
}

// Read calls fn with a fresh deep copy of the stored value.
func (v View[T]) Read(fn func(T)) {
	fn(Clone(v.v))
}
