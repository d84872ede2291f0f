// Package immutable provides read-only views of Go containers.
//
// Go has no way to declare that a whole value graph is read-only. This
// package covers the gap at runtime instead of at compile time:
//
//   - Slice, Map and Set wrap a private copy of a container and only expose
//     reading methods. Mutable returns a fresh copy for editing.
//   - Clone deep-copies the exported, reachable part of a value.
//   - View holds a value and hands out a fresh Clone on every Get, so no
//     caller ever touches the stored copy.
//
// Elements are copied shallowly by Slice, Map and Set. When elements are
// pointers or contain maps or slices, wrap them in these types too or use
// Clone.
package immutable
