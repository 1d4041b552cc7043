package vm

import (
	"fmt"
	"strings"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Object is a composite runtime value. Scalars are held as int64, float64
// and string, and the null object is nil.
type Object interface {
	Inspect() string
}

// Collection is a set, list or bag. A set never holds two equal elements.
type Collection struct {
	Kind  typesystem.CollectionKind
	Elems []any
}

func NewCollection(kind typesystem.CollectionKind) *Collection {
	return &Collection{Kind: kind}
}

// Add inserts v, unless the collection is a set that already holds it.
func (c *Collection) Add(v any) {
	if c.Kind == typesystem.SetKind && c.Index(v) >= 0 {
		return
	}
	c.Elems = append(c.Elems, v)
}

// Remove deletes the first occurrence of v.
func (c *Collection) Remove(v any) {
	if i := c.Index(v); i >= 0 {
		c.Elems = append(c.Elems[:i:i], c.Elems[i+1:]...)
	}
}

// Index returns the position of the first element equal to v, or -1.
func (c *Collection) Index(v any) int {
	for i, e := range c.Elems {
		if equalValues(e, v) {
			return i
		}
	}
	return -1
}

func (c *Collection) Copy() *Collection {
	return &Collection{Kind: c.Kind, Elems: append([]any(nil), c.Elems...)}
}

func (c *Collection) Inspect() string {
	left, right := "{", "}"
	switch c.Kind {
	case typesystem.ListKind:
		left, right = "[", "]"
	case typesystem.BagKind:
		left, right = "{|", "|}"
	}
	return left + inspectAll(c.Elems) + right
}

// IntRange is the set of the integers from Lo to Hi included.
type IntRange struct {
	Lo, Hi int64
}

func (r *IntRange) Len() int {
	if r.Hi < r.Lo {
		return 0
	}
	return int(r.Hi - r.Lo + 1)
}

func (r *IntRange) Contains(i int64) bool {
	return i >= r.Lo && i <= r.Hi
}

func (r *IntRange) Inspect() string {
	return fmt.Sprintf("%d..%d", r.Lo, r.Hi)
}

type Tuple struct {
	Elems []any
}

func (t *Tuple) Inspect() string {
	return "<" + inspectAll(t.Elems) + ">"
}

// Array is indexed by the integers from 0.
type Array struct {
	Elems []any
}

func (a *Array) Inspect() string {
	return "#[" + inspectAll(a.Elems) + "]"
}

// Map is an array indexed by a set or an int range. Elems[i] is the value
// at the i-th index of Index.
type Map struct {
	Index Object
	Elems []any
}

// position returns the slot of key in the map, or -1.
func (m *Map) position(key any) int {
	switch idx := m.Index.(type) {
	case *IntRange:
		if i, ok := key.(int64); ok && idx.Contains(i) {
			return int(i - idx.Lo)
		}
	case *Collection:
		return idx.Index(key)
	}
	return -1
}

func (m *Map) keys() []any {
	switch idx := m.Index.(type) {
	case *IntRange:
		keys := make([]any, idx.Len())
		for i := range keys {
			keys[i] = idx.Lo + int64(i)
		}
		return keys
	case *Collection:
		return idx.Elems
	}
	return nil
}

func (m *Map) Inspect() string {
	var sb strings.Builder
	sb.WriteString("#[")
	for i, k := range m.keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(inspect(k))
		sb.WriteString(": ")
		sb.WriteString(inspect(m.Elems[i]))
	}
	sb.WriteString("]")
	return sb.String()
}

// Closure is a scope together with the environment it runs in. A live
// closure runs over the environment current when it is applied; the
// others carry a copy of the slots they capture.
type Closure struct {
	Scope *bytecode.ScopeInfo
	ints  []int64
	reals []float64
	objs  []any
	live  bool
}

func (c *Closure) Inspect() string {
	return fmt.Sprintf("<closure @%04d>", c.Scope.Address)
}

// Partial is a function applied to fewer arguments than it takes.
type Partial struct {
	F    any
	Args []any
}

func (p *Partial) Inspect() string {
	return fmt.Sprintf("<partial %s/%d>", inspect(p.F), len(p.Args))
}
