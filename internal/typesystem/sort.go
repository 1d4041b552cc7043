package typesystem

// Sort is the runtime representation class of a value.
type Sort int

const (
	VoidSort Sort = iota
	IntSort
	RealSort
	ObjectSort
)

// NumSorts is the number of value-carrying sorts (int, real, object).
const NumSorts = 3

func (s Sort) String() string {
	switch s {
	case VoidSort:
		return "VOID"
	case IntSort:
		return "INT"
	case RealSort:
		return "REAL"
	case ObjectSort:
		return "OBJECT"
	}
	return "?"
}

// Suffix is the instruction suffix of s: I, R, O or V.
func (s Sort) Suffix() string {
	switch s {
	case IntSort:
		return "I"
	case RealSort:
		return "R"
	case ObjectSort:
		return "O"
	}
	return "V"
}

// Index maps int, real and object to 0, 1 and 2. Void has no index.
func (s Sort) Index() int {
	switch s {
	case IntSort:
		return 0
	case RealSort:
		return 1
	case ObjectSort:
		return 2
	}
	panic("typesystem: void sort has no index")
}

// SortAt is the inverse of Sort.Index.
func SortAt(i int) Sort {
	return [NumSorts]Sort{IntSort, RealSort, ObjectSort}[i]
}

// SortOf returns the unboxed sort of t. Unbound variables are OBJECT.
func SortOf(t Type) Sort {
	if c, ok := Deref(t).(TCon); ok {
		switch c {
		case Int, Char, Bool:
			return IntSort
		case Real:
			return RealSort
		case Void:
			return VoidSort
		}
	}
	return ObjectSort
}

// IsVoid reports whether t is currently bound to void.
func IsVoid(t Type) bool {
	return SortOf(t) == VoidSort
}

// IsBoxed reports whether a value of type t is held in OBJECT form although
// its sort is INT or REAL. That is the case when the binding chain from t
// passes through a boxing variable.
func IsBoxed(t Type) bool {
	boxing := false
	for {
		v, ok := t.(*TVar)
		if !ok {
			break
		}
		if v.Boxing {
			boxing = true
		}
		if v.Ref == nil {
			return false
		}
		t = v.Ref
	}
	if !boxing {
		return false
	}
	s := SortOf(t)
	return s == IntSort || s == RealSort
}

// BoxSortOf is the sort a value of type t actually has at runtime.
func BoxSortOf(t Type) Sort {
	if IsBoxed(t) {
		return ObjectSort
	}
	return SortOf(t)
}

// Rank is the collection nesting depth of t.
func Rank(t Type) int {
	if c, ok := Deref(t).(*TCollection); ok {
		return 1 + Rank(c.Elem)
	}
	return 0
}

// Arity is the number of parameters of a function type, or 0.
func Arity(t Type) int {
	if f, ok := Deref(t).(*TFunc); ok {
		return len(f.Params)
	}
	return 0
}

// AsFunc returns the function type t is bound to.
func AsFunc(t Type) (*TFunc, bool) {
	f, ok := Deref(t).(*TFunc)
	return f, ok
}

// Domain returns the i-th parameter type of a function type.
func Domain(t Type, i int) Type {
	f, ok := AsFunc(t)
	if !ok || i < 0 || i >= len(f.Params) {
		return nil
	}
	return f.Params[i]
}

// Range returns the return type of a function type.
func Range(t Type) Type {
	if f, ok := AsFunc(t); ok {
		return f.ReturnType
	}
	return nil
}

// DomainIsBoxed reports whether the i-th parameter of f is passed boxed.
func DomainIsBoxed(f Type, i int) bool {
	d := Domain(f, i)
	return d != nil && IsBoxed(d)
}

// RangeIsBoxed reports whether f returns its result boxed.
func RangeIsBoxed(f Type) bool {
	r := Range(f)
	return r != nil && IsBoxed(r)
}

// DomainBoxSort is the runtime sort of the i-th argument of f.
func DomainBoxSort(f Type, i int) Sort {
	return BoxSortOf(Domain(f, i))
}

// RangeBoxSort is the runtime sort of the result of f.
func RangeBoxSort(f Type) Sort {
	return BoxSortOf(Range(f))
}
