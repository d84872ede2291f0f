package immutable

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceIsDetachedFromSource(t *testing.T) {
	src := []int{1, 2, 3}
	s := NewSlice(src)
	src[0] = 99

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.At(0))
	assert.Equal(t, []int{1, 2, 3}, slices.Collect(s.Values()))

	m := s.Mutable()
	m[1] = 42
	assert.Equal(t, 2, s.At(1))
}

func TestSliceAll(t *testing.T) {
	s := NewSlice([]string{"a", "b"})
	var idx []int
	var vals []string
	for i, v := range s.All() {
		idx = append(idx, i)
		vals = append(vals, v)
	}
	assert.Equal(t, []int{0, 1}, idx)
	assert.Equal(t, []string{"a", "b"}, vals)
}

func TestMapIsDetachedFromSource(t *testing.T) {
	src := map[string]int{"a": 1}
	m := NewMap(src)
	src["a"] = 2
	src["b"] = 3

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.False(t, m.Has("b"))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, map[string]int{"a": 1}, maps.Collect(m.All()))
	assert.Equal(t, []string{"a"}, slices.Collect(m.Keys()))

	mut := m.Mutable()
	mut["c"] = 4
	assert.False(t, m.Has("c"))
}

func TestZeroValuesAreUsable(t *testing.T) {
	var m Map[string, int]
	assert.Equal(t, 0, m.Len())
	assert.NotNil(t, m.Mutable())

	var s Set[int]
	assert.False(t, s.Has(1))
	assert.NotNil(t, s.Mutable())

	var sl Slice[int]
	assert.Equal(t, 0, sl.Len())
}

func TestSet(t *testing.T) {
	s := NewSet(1, 2, 2, 3)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(2))
	assert.False(t, s.Has(4))

	members := slices.Sorted(s.All())
	assert.Equal(t, []int{1, 2, 3}, members)

	mut := s.Mutable()
	mut[4] = struct{}{}
	assert.False(t, s.Has(4))
}

type record struct {
	ID   int
	Name string
}

type deep struct {
	A string
	B []int
	C struct {
		D string
		E []int
	}
	J      []record
	L      map[record]*record
	P      *record
	Q      *record
	Any    any
	Fn     func() int
	Arr    [2][]int
	hidden []int
}

func TestCloneDeep(t *testing.T) {
	shared := &record{ID: 1, Name: "zxc"}
	src := deep{
		A:      "asdf",
		B:      []int{123, 234},
		J:      []record{{ID: 1, Name: "c"}},
		L:      map[record]*record{{ID: 1}: {ID: 789}},
		P:      shared,
		Q:      shared,
		Any:    map[string][]int{"k": {1}},
		Fn:     func() int { return 7 },
		Arr:    [2][]int{{1}, {2}},
		hidden: []int{5},
	}
	src.C.D = "zxc"
	src.C.E = []int{1, 2, 3}

	c := Clone(src)

	c.B[0] = 0
	c.C.E[0] = 0
	c.J[0].Name = "changed"
	c.L[record{ID: 1}].ID = 0
	c.P.Name = "changed"
	c.Any.(map[string][]int)["k"][0] = 0
	c.Arr[0][0] = 0

	assert.Equal(t, []int{123, 234}, src.B)
	assert.Equal(t, []int{1, 2, 3}, src.C.E)
	assert.Equal(t, "c", src.J[0].Name)
	assert.Equal(t, 789, src.L[record{ID: 1}].ID)
	assert.Equal(t, "zxc", shared.Name)
	assert.Equal(t, []int{1}, src.Any.(map[string][]int)["k"])
	assert.Equal(t, []int{1}, src.Arr[0])

	assert.Same(t, c.P, c.Q, "shared pointers stay shared in the copy")
	assert.NotSame(t, src.P, c.P)
	assert.Equal(t, 7, c.Fn())
	assert.Equal(t, []int{5}, c.hidden, "unexported fields are copied shallowly")
}

type node struct {
	Name string
	Next *node
}

func TestCloneCycle(t *testing.T) {
	a := &node{Name: "a"}
	b := &node{Name: "b", Next: a}
	a.Next = b

	c := Clone(a)
	require.NotSame(t, a, c)
	assert.Equal(t, "b", c.Next.Name)
	assert.Same(t, c, c.Next.Next)
}

func TestCloneNilAndInterfaces(t *testing.T) {
	var p *record
	assert.Nil(t, Clone(p))

	var e error
	assert.Nil(t, Clone(e))

	var v any = 3
	assert.Equal(t, 3, Clone(v))
}

func TestView(t *testing.T) {
	src := &deep{A: "a", B: []int{1}}
	v := Freeze(src)
	src.B[0] = 99

	got := v.Get()
	assert.Equal(t, []int{1}, got.B)
	got.B[0] = 42

	v.Read(func(d *deep) {
		assert.Equal(t, []int{1}, d.B)
	})
}
