package typesystem

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// Type is the interface for all types of the kernel.
//
// Types are mutable union-find cells: a *TVar is bound in place by the
// Unifier. Code outside this package queries types through Deref, SortOf,
// IsBoxed and the helpers in sort.go and never inspects TVar.Ref directly.
type Type interface {
	String() string
	typ()
}

// TCon is a nullary type constant (int, real, char, bool, string, void, intrange).
type TCon struct {
	Name string
}

// Built-in type constants
var (
	Int      = TCon{Name: "int"}
	Real     = TCon{Name: "real"}
	Char     = TCon{Name: "char"}
	Bool     = TCon{Name: "bool"}
	String   = TCon{Name: "string"}
	Void     = TCon{Name: "void"}
	IntRange = TCon{Name: "intrange"}
)

func (t TCon) String() string { return t.Name }
func (TCon) typ()             {}

// TVar is a type variable. A bound variable forwards to Ref.
//
// Boxing variables are created when a polymorphic signature is instantiated;
// a value whose type chain passes through one is held in OBJECT form even
// when the chain ends on an int or real constant.
type TVar struct {
	ID     int64
	Ref    Type
	Boxing bool
}

var varCounter atomic.Int64

// NewVar returns a fresh unbound variable.
func NewVar() *TVar {
	return &TVar{ID: varCounter.Add(1)}
}

// NewBoxingVar returns a fresh unbound boxing variable.
func NewBoxingVar() *TVar {
	return &TVar{ID: varCounter.Add(1), Boxing: true}
}

func (t *TVar) String() string {
	if t.Ref != nil {
		return t.Ref.String()
	}
	if t.Boxing {
		return fmt.Sprintf("'b%d", t.ID)
	}
	return fmt.Sprintf("'t%d", t.ID)
}
func (*TVar) typ() {}

// TFunc is a function type. NoCurrying functions (let binders) unify only
// with functions of the same arity.
type TFunc struct {
	Params     []Type
	ReturnType Type
	NoCurrying bool
}

func NewFunc(ret Type, params ...Type) *TFunc {
	return &TFunc{Params: params, ReturnType: ret}
}

func (t *TFunc) String() string {
	var parts []string
	for _, p := range t.Params {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + t.ReturnType.String()
}
func (*TFunc) typ() {}

// CollectionKind distinguishes the three collection monoids.
type CollectionKind int

const (
	SetKind CollectionKind = iota
	ListKind
	BagKind
)

func (k CollectionKind) String() string {
	switch k {
	case SetKind:
		return "set"
	case ListKind:
		return "list"
	case BagKind:
		return "bag"
	}
	return "collection"
}

// TCollection is a set, list or bag of Elem.
type TCollection struct {
	Kind CollectionKind
	Elem Type
}

func NewSet(elem Type) *TCollection  { return &TCollection{Kind: SetKind, Elem: elem} }
func NewList(elem Type) *TCollection { return &TCollection{Kind: ListKind, Elem: elem} }
func NewBag(elem Type) *TCollection  { return &TCollection{Kind: BagKind, Elem: elem} }

func (t *TCollection) String() string {
	return t.Kind.String() + "(" + t.Elem.String() + ")"
}
func (*TCollection) typ() {}

// TArray maps the values of an index set (int, intrange or set) to Elem.
type TArray struct {
	Elem  Type
	Index Type
}

func (t *TArray) String() string {
	return "array[" + t.Index.String() + "](" + t.Elem.String() + ")"
}
func (*TArray) typ() {}

// TTuple is a positional tuple.
type TTuple struct {
	Elems []Type
}

func (t *TTuple) String() string {
	var parts []string
	for _, e := range t.Elems {
		parts = append(parts, e.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (*TTuple) typ() {}

// Field is one component of a named tuple.
type Field struct {
	Name string
	Type Type
}

// TNamedTuple is a tuple whose components are named. Fields are kept sorted
// by name, which is also their runtime layout order.
type TNamedTuple struct {
	Fields []Field
}

// NewNamedTuple sorts fields by name. Duplicate names are the caller's concern.
func NewNamedTuple(fields []Field) *TNamedTuple {
	fs := append([]Field(nil), fields...)
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].Name < fs[j].Name })
	return &TNamedTuple{Fields: fs}
}

// FieldIndex returns the position of name, or -1.
func (t *TNamedTuple) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (t *TNamedTuple) String() string {
	var parts []string
	for _, f := range t.Fields {
		parts = append(parts, f.Name+": "+f.Type.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (*TNamedTuple) typ() {}

// Deref follows bound variables to the representative of t.
func Deref(t Type) Type {
	for {
		v, ok := t.(*TVar)
		if !ok || v.Ref == nil {
			return t
		}
		t = v.Ref
	}
}

// TupleElems returns the component types of a positional or named tuple.
func TupleElems(t Type) ([]Type, bool) {
	switch tt := Deref(t).(type) {
	case *TTuple:
		return tt.Elems, true
	case *TNamedTuple:
		out := make([]Type, len(tt.Fields))
		for i, f := range tt.Fields {
			out[i] = f.Type
		}
		return out, true
	}
	return nil, false
}

// ElemType returns the element type of a collection or array, or nil.
func ElemType(t Type) Type {
	switch tt := Deref(t).(type) {
	case *TCollection:
		return tt.Elem
	case *TArray:
		return tt.Elem
	}
	return nil
}

// IsIndexSet reports whether t may index an array: int, intrange or a set.
func IsIndexSet(t Type) bool {
	switch tt := Deref(t).(type) {
	case TCon:
		return tt == Int || tt == IntRange
	case *TCollection:
		return tt.Kind == SetKind
	}
	return false
}

// Resolve returns a copy of t with every bound variable replaced by its
// binding. Unbound variables are kept.
func Resolve(t Type) Type {
	switch tt := Deref(t).(type) {
	case *TFunc:
		ps := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			ps[i] = Resolve(p)
		}
		return &TFunc{Params: ps, ReturnType: Resolve(tt.ReturnType), NoCurrying: tt.NoCurrying}
	case *TCollection:
		return &TCollection{Kind: tt.Kind, Elem: Resolve(tt.Elem)}
	case *TArray:
		return &TArray{Elem: Resolve(tt.Elem), Index: Resolve(tt.Index)}
	case *TTuple:
		es := make([]Type, len(tt.Elems))
		for i, e := range tt.Elems {
			es[i] = Resolve(e)
		}
		return &TTuple{Elems: es}
	case *TNamedTuple:
		fs := make([]Field, len(tt.Fields))
		for i, f := range tt.Fields {
			fs[i] = Field{Name: f.Name, Type: Resolve(f.Type)}
		}
		return &TNamedTuple{Fields: fs}
	default:
		return tt
	}
}
