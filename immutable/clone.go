package immutable

import "reflect"

// Clone returns a deep copy of v.
//
// Maps, slices, arrays, pointers, interfaces and exported struct fields are
// copied recursively. Unexported struct fields, functions and channels are
// shared with v. Pointer cycles and shared pointers are preserved: a pointer
// reached twice in v is copied once.
func Clone[T any](v T) T {
	out := new(T)
	c := cloner{seen: make(map[seenKey]reflect.Value)}
	c.copy(reflect.ValueOf(out).Elem(), reflect.ValueOf(&v).Elem())
	return *out
}

type seenKey struct {
	ptr uintptr
	typ reflect.Type
}

type cloner struct {
	seen map[seenKey]reflect.Value
}

// copy writes a deep copy of src into dst. dst must be settable.
func (c *cloner) copy(dst, src reflect.Value) {
	switch src.Kind() {
	case reflect.Pointer:
		if src.IsNil() {
			return
		}
		key := seenKey{src.Pointer(), src.Type()}
		if p, ok := c.seen[key]; ok {
			dst.Set(p)
			return
		}
		p := reflect.New(src.Type().Elem())
		c.seen[key] = p
		c.copy(p.Elem(), src.Elem())
		dst.Set(p)

	case reflect.Interface:
		if src.IsNil() {
			return
		}
		elem := reflect.New(src.Elem().Type()).Elem()
		c.copy(elem, src.Elem())
		dst.Set(elem)

	case reflect.Map:
		if src.IsNil() {
			return
		}
		m := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			k := reflect.New(src.Type().Key()).Elem()
			c.copy(k, iter.Key())
			v := reflect.New(src.Type().Elem()).Elem()
			c.copy(v, iter.Value())
			m.SetMapIndex(k, v)
		}
		dst.Set(m)

	case reflect.Slice:
		if src.IsNil() {
			return
		}
		s := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			c.copy(s.Index(i), src.Index(i))
		}
		dst.Set(s)

	case reflect.Array:
		for i := 0; i < src.Len(); i++ {
			c.copy(dst.Index(i), src.Index(i))
		}

	case reflect.Struct:
		// Copy the whole value first so unexported fields come along.
		dst.Set(src)
		t := src.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			c.copy(dst.Field(i), src.Field(i))
		}

	default:
		dst.Set(src)
	}
}
