package ast

import (
	"sort"
	"strings"

	"github.com/funvibe/kernel/internal/typesystem"
)

// Tuple builds a positional tuple.
type Tuple struct {
	Base
	Elems []Expression
}

func NewTuple(elems ...Expression) *Tuple {
	return &Tuple{Elems: elems}
}

func (n *Tuple) Copy() Expression {
	c := NewTuple(copyAll(n.Elems)...)
	c.Token = n.Token
	return c
}

func (n *Tuple) TypedCopy() Expression {
	c := NewTuple(typedCopyAll(n.Elems)...)
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *Tuple) NumberOfSubexpressions() int { return len(n.Elems) }

func (n *Tuple) Subexpression(i int) Expression {
	if i < 0 || i >= len(n.Elems) {
		noSuch(n, i)
	}
	return n.Elems[i]
}

func (n *Tuple) SetSubexpression(i int, e Expression) {
	if i < 0 || i >= len(n.Elems) {
		noSuch(n, i)
	}
	n.Elems[i] = e
}

func (n *Tuple) String() string { return "<" + joinExpressions(n.Elems, ", ") + ">" }

// NamedTuple builds a tuple with named fields. Fields are kept sorted by
// name, so the field order of the source does not matter.
type NamedTuple struct {
	Base
	Fields []string
	Elems  []Expression
}

func NewNamedTuple(fields []string, elems []Expression) *NamedTuple {
	idx := make([]int, len(fields))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return fields[idx[a]] < fields[idx[b]] })
	n := &NamedTuple{Fields: make([]string, len(fields)), Elems: make([]Expression, len(elems))}
	for to, from := range idx {
		n.Fields[to] = fields[from]
		n.Elems[to] = elems[from]
	}
	return n
}

// DuplicateField returns a field named twice, if any.
func (n *NamedTuple) DuplicateField() (string, bool) {
	for i := 1; i < len(n.Fields); i++ {
		if n.Fields[i] == n.Fields[i-1] {
			return n.Fields[i], true
		}
	}
	return "", false
}

func (n *NamedTuple) Copy() Expression {
	c := &NamedTuple{Fields: append([]string(nil), n.Fields...), Elems: copyAll(n.Elems)}
	c.Token = n.Token
	return c
}

func (n *NamedTuple) TypedCopy() Expression {
	c := &NamedTuple{Fields: append([]string(nil), n.Fields...), Elems: typedCopyAll(n.Elems)}
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *NamedTuple) NumberOfSubexpressions() int { return len(n.Elems) }

func (n *NamedTuple) Subexpression(i int) Expression {
	if i < 0 || i >= len(n.Elems) {
		noSuch(n, i)
	}
	return n.Elems[i]
}

func (n *NamedTuple) SetSubexpression(i int, e Expression) {
	if i < 0 || i >= len(n.Elems) {
		noSuch(n, i)
	}
	n.Elems[i] = e
}

func (n *NamedTuple) String() string {
	parts := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		parts[i] = f + ": " + n.Elems[i].String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// TupleProjection selects a component of a tuple, either by 1-based
// position (an int constant) or by field name (a string constant).
type TupleProjection struct {
	Base
	Tuple Expression
	Field *Constant
	// Position is the 1-based component index, resolved by the checker.
	Position int
}

func NewTupleProjection(tuple Expression, field *Constant) *TupleProjection {
	n := &TupleProjection{Tuple: tuple, Field: field}
	if field.Kind == IntConstant {
		n.Position = int(field.Int)
	}
	return n
}

// ByName reports whether the projection names a field.
func (n *TupleProjection) ByName() bool { return n.Field.Kind == StringConstant }

func (n *TupleProjection) Copy() Expression {
	c := NewTupleProjection(n.Tuple.Copy(), n.Field.Copy().(*Constant))
	c.Token = n.Token
	return c
}

func (n *TupleProjection) TypedCopy() Expression {
	c := NewTupleProjection(n.Tuple.TypedCopy(), n.Field.Copy().(*Constant))
	c.Token = n.Token
	c.Position = n.Position
	return AddTypes(c, n)
}

func (n *TupleProjection) NumberOfSubexpressions() int { return 1 }

func (n *TupleProjection) Subexpression(i int) Expression {
	if i != 0 {
		noSuch(n, i)
	}
	return n.Tuple
}

func (n *TupleProjection) SetSubexpression(i int, e Expression) {
	if i != 0 {
		noSuch(n, i)
	}
	n.Tuple = e
}

func (n *TupleProjection) String() string {
	if n.ByName() {
		return n.Tuple.String() + "." + n.Field.Str
	}
	return n.Tuple.String() + "." + n.Field.String()
}

// NewCollection builds a set, list or bag from its elements.
type NewCollection struct {
	Base
	Kind  typesystem.CollectionKind
	Elems []Expression
	// ElemType is the ascribed element type of an empty collection, or nil.
	ElemType typesystem.Type
}

func NewCollectionOf(kind typesystem.CollectionKind, elems ...Expression) *NewCollection {
	return &NewCollection{Kind: kind, Elems: elems}
}

func (n *NewCollection) Copy() Expression {
	c := &NewCollection{Kind: n.Kind, Elems: copyAll(n.Elems), ElemType: n.ElemType}
	c.Token = n.Token
	return c
}

func (n *NewCollection) TypedCopy() Expression {
	c := &NewCollection{Kind: n.Kind, Elems: typedCopyAll(n.Elems), ElemType: n.ElemType}
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *NewCollection) NumberOfSubexpressions() int { return len(n.Elems) }

func (n *NewCollection) Subexpression(i int) Expression {
	if i < 0 || i >= len(n.Elems) {
		noSuch(n, i)
	}
	return n.Elems[i]
}

func (n *NewCollection) SetSubexpression(i int, e Expression) {
	if i < 0 || i >= len(n.Elems) {
		noSuch(n, i)
	}
	n.Elems[i] = e
}

func (n *NewCollection) String() string {
	open, closing := "{", "}"
	switch n.Kind {
	case typesystem.ListKind:
		open, closing = "[", "]"
	case typesystem.BagKind:
		open, closing = "{|", "|}"
	}
	return open + joinExpressions(n.Elems, ", ") + closing
}

// NewArray allocates an array filled with default values. Each dimension
// is either an int size or an index set; the first one is outermost.
type NewArray struct {
	Base
	ElemType typesystem.Type
	Dims     []Expression
}

func NewArrayOf(elem typesystem.Type, dims ...Expression) *NewArray {
	return &NewArray{ElemType: elem, Dims: dims}
}

func (n *NewArray) Copy() Expression {
	c := NewArrayOf(n.ElemType, copyAll(n.Dims)...)
	c.Token = n.Token
	return c
}

func (n *NewArray) TypedCopy() Expression {
	c := NewArrayOf(n.ElemType, typedCopyAll(n.Dims)...)
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *NewArray) NumberOfSubexpressions() int { return len(n.Dims) }

func (n *NewArray) Subexpression(i int) Expression {
	if i < 0 || i >= len(n.Dims) {
		noSuch(n, i)
	}
	return n.Dims[i]
}

func (n *NewArray) SetSubexpression(i int, e Expression) {
	if i < 0 || i >= len(n.Dims) {
		noSuch(n, i)
	}
	n.Dims[i] = e
}

func (n *NewArray) String() string {
	var b strings.Builder
	b.WriteString("new ")
	if n.ElemType != nil {
		b.WriteString(n.ElemType.String())
	}
	for _, d := range n.Dims {
		b.WriteString("[" + d.String() + "]")
	}
	return b.String()
}

// ArrayExtension builds an array from its elements. With an Indexable the
// result is a map over that index set.
type ArrayExtension struct {
	Base
	Elems     []Expression
	Indexable Expression
}

func NewArrayExtension(indexable Expression, elems ...Expression) *ArrayExtension {
	return &ArrayExtension{Elems: elems, Indexable: indexable}
}

func (n *ArrayExtension) Copy() Expression {
	var ix Expression
	if n.Indexable != nil {
		ix = n.Indexable.Copy()
	}
	c := NewArrayExtension(ix, copyAll(n.Elems)...)
	c.Token = n.Token
	return c
}

func (n *ArrayExtension) TypedCopy() Expression {
	var ix Expression
	if n.Indexable != nil {
		ix = n.Indexable.TypedCopy()
	}
	c := NewArrayExtension(ix, typedCopyAll(n.Elems)...)
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *ArrayExtension) NumberOfSubexpressions() int {
	if n.Indexable != nil {
		return len(n.Elems) + 1
	}
	return len(n.Elems)
}

func (n *ArrayExtension) Subexpression(i int) Expression {
	switch {
	case i >= 0 && i < len(n.Elems):
		return n.Elems[i]
	case i == len(n.Elems) && n.Indexable != nil:
		return n.Indexable
	}
	noSuch(n, i)
	return nil
}

func (n *ArrayExtension) SetSubexpression(i int, e Expression) {
	switch {
	case i >= 0 && i < len(n.Elems):
		n.Elems[i] = e
	case i == len(n.Elems) && n.Indexable != nil:
		n.Indexable = e
	default:
		noSuch(n, i)
	}
}

func (n *ArrayExtension) String() string {
	s := "[|" + joinExpressions(n.Elems, ", ") + "|]"
	if n.Indexable != nil {
		s += "@" + n.Indexable.String()
	}
	return s
}

// ArraySlot reads Array at Index.
type ArraySlot struct {
	Base
	Array Expression
	Index Expression
}

func NewArraySlot(array, index Expression) *ArraySlot {
	return &ArraySlot{Array: array, Index: index}
}

func (n *ArraySlot) Copy() Expression {
	c := NewArraySlot(n.Array.Copy(), n.Index.Copy())
	c.Token = n.Token
	return c
}

func (n *ArraySlot) TypedCopy() Expression {
	c := NewArraySlot(n.Array.TypedCopy(), n.Index.TypedCopy())
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *ArraySlot) NumberOfSubexpressions() int { return 2 }

func (n *ArraySlot) Subexpression(i int) Expression {
	switch i {
	case 0:
		return n.Array
	case 1:
		return n.Index
	}
	noSuch(n, i)
	return nil
}

func (n *ArraySlot) SetSubexpression(i int, e Expression) {
	switch i {
	case 0:
		n.Array = e
	case 1:
		n.Index = e
	default:
		noSuch(n, i)
	}
}

func (n *ArraySlot) String() string { return n.Array.String() + "[" + n.Index.String() + "]" }

// ArraySlotUpdate stores Value into a slot.
type ArraySlotUpdate struct {
	Base
	Slot  *ArraySlot
	Value Expression
}

func NewArraySlotUpdate(slot *ArraySlot, v Expression) *ArraySlotUpdate {
	return &ArraySlotUpdate{Slot: slot, Value: v}
}

func (n *ArraySlotUpdate) Copy() Expression {
	c := NewArraySlotUpdate(n.Slot.Copy().(*ArraySlot), n.Value.Copy())
	c.Token = n.Token
	return c
}

func (n *ArraySlotUpdate) TypedCopy() Expression {
	c := NewArraySlotUpdate(n.Slot.TypedCopy().(*ArraySlot), n.Value.TypedCopy())
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *ArraySlotUpdate) NumberOfSubexpressions() int { return 2 }

func (n *ArraySlotUpdate) Subexpression(i int) Expression {
	switch i {
	case 0:
		return n.Slot
	case 1:
		return n.Value
	}
	noSuch(n, i)
	return nil
}

func (n *ArraySlotUpdate) SetSubexpression(i int, e Expression) {
	switch i {
	case 0:
		n.Slot = e.(*ArraySlot)
	case 1:
		n.Value = e
	default:
		noSuch(n, i)
	}
}

func (n *ArraySlotUpdate) String() string { return n.Slot.String() + " := " + n.Value.String() }
