package typesystem

// Unifier binds type variables in place. Bindings made while a cut point is
// open are journaled so UndoCutPoint can take them back.
type Unifier struct {
	trail []func()
	cuts  []int
}

func NewUnifier() *Unifier {
	return &Unifier{}
}

// Trail records an undo action. Tree rewrites made during checking use it so
// a failed alternative can be rolled back together with its bindings.
func (u *Unifier) Trail(undo func()) {
	if len(u.cuts) == 0 {
		return
	}
	u.trail = append(u.trail, undo)
}

// PushCutPoint opens a backtracking region.
func (u *Unifier) PushCutPoint() {
	u.cuts = append(u.cuts, len(u.trail))
}

// PopCutPoint closes the innermost region and keeps its effects. They stay on
// the trail, so an enclosing region can still undo them.
func (u *Unifier) PopCutPoint() {
	if len(u.cuts) == 0 {
		panic("typesystem: PopCutPoint without cut point")
	}
	u.cuts = u.cuts[:len(u.cuts)-1]
	if len(u.cuts) == 0 {
		u.trail = u.trail[:0]
	}
}

// UndoCutPoint reverts every effect recorded since the innermost cut point.
// The cut point stays open.
func (u *Unifier) UndoCutPoint() {
	if len(u.cuts) == 0 {
		panic("typesystem: UndoCutPoint without cut point")
	}
	mark := u.cuts[len(u.cuts)-1]
	for i := len(u.trail) - 1; i >= mark; i-- {
		u.trail[i]()
	}
	u.trail = u.trail[:mark]
}

func (u *Unifier) bind(v *TVar, t Type) {
	v.Ref = t
	u.Trail(func() { v.Ref = nil })
}

// Unify makes a and b equal or returns a *UnifyError.
func (u *Unifier) Unify(a, b Type) error {
	return u.unify(a, b, a, b)
}

func (u *Unifier) unify(a, b, topA, topB Type) error {
	da, db := Deref(a), Deref(b)
	if da == db {
		return nil
	}
	va, aIsVar := da.(*TVar)
	vb, bIsVar := db.(*TVar)
	switch {
	case aIsVar && bIsVar:
		// The boxing side forwards to the plain side so the plain chain
		// stays unboxed.
		if va.Boxing && !vb.Boxing {
			u.bind(va, vb)
		} else {
			u.bind(vb, va)
		}
		return nil
	case aIsVar:
		if occurs(va, db) {
			return newUnifyError(topA, topB, "infinite type")
		}
		u.bind(va, db)
		return nil
	case bIsVar:
		if occurs(vb, da) {
			return newUnifyError(topA, topB, "infinite type")
		}
		u.bind(vb, da)
		return nil
	}

	switch ta := da.(type) {
	case TCon:
		if tb, ok := db.(TCon); ok && ta == tb {
			return nil
		}
	case *TFunc:
		if tb, ok := db.(*TFunc); ok {
			return u.unifyFunc(ta, tb, topA, topB)
		}
	case *TCollection:
		if tb, ok := db.(*TCollection); ok && ta.Kind == tb.Kind {
			return u.unify(ta.Elem, tb.Elem, topA, topB)
		}
	case *TArray:
		if tb, ok := db.(*TArray); ok {
			if err := u.unify(ta.Index, tb.Index, topA, topB); err != nil {
				return err
			}
			return u.unify(ta.Elem, tb.Elem, topA, topB)
		}
	case *TTuple:
		if tb, ok := db.(*TTuple); ok && len(ta.Elems) == len(tb.Elems) {
			for i := range ta.Elems {
				if err := u.unify(ta.Elems[i], tb.Elems[i], topA, topB); err != nil {
					return err
				}
			}
			return nil
		}
	case *TNamedTuple:
		if tb, ok := db.(*TNamedTuple); ok && len(ta.Fields) == len(tb.Fields) {
			for i := range ta.Fields {
				if ta.Fields[i].Name != tb.Fields[i].Name {
					return newUnifyError(topA, topB, "field "+ta.Fields[i].Name+" does not match "+tb.Fields[i].Name)
				}
				if err := u.unify(ta.Fields[i].Type, tb.Fields[i].Type, topA, topB); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return newUnifyError(topA, topB, "")
}

// unifyFunc unifies two function types. Differing arities are reconciled by
// currying the longer one unless either side forbids it.
func (u *Unifier) unifyFunc(fa, fb *TFunc, topA, topB Type) error {
	if len(fa.Params) == len(fb.Params) {
		for i := range fa.Params {
			if err := u.unify(fa.Params[i], fb.Params[i], topA, topB); err != nil {
				return err
			}
		}
		return u.unify(fa.ReturnType, fb.ReturnType, topA, topB)
	}
	if fa.NoCurrying || fb.NoCurrying {
		return newUnifyError(topA, topB, "arity mismatch")
	}
	short, long := fa, fb
	if len(short.Params) > len(long.Params) {
		short, long = long, short
	}
	k := len(short.Params)
	for i := 0; i < k; i++ {
		if err := u.unify(short.Params[i], long.Params[i], topA, topB); err != nil {
			return err
		}
	}
	rest := &TFunc{Params: long.Params[k:], ReturnType: long.ReturnType}
	return u.unify(short.ReturnType, rest, topA, topB)
}

func occurs(v *TVar, t Type) bool {
	switch tt := Deref(t).(type) {
	case *TVar:
		return tt == v
	case *TFunc:
		for _, p := range tt.Params {
			if occurs(v, p) {
				return true
			}
		}
		return occurs(v, tt.ReturnType)
	case *TCollection:
		return occurs(v, tt.Elem)
	case *TArray:
		return occurs(v, tt.Elem) || occurs(v, tt.Index)
	case *TTuple:
		for _, e := range tt.Elems {
			if occurs(v, e) {
				return true
			}
		}
	case *TNamedTuple:
		for _, f := range tt.Fields {
			if occurs(v, f.Type) {
				return true
			}
		}
	}
	return false
}

// Instantiate copies a type scheme, replacing each unbound variable by a
// fresh boxing variable. Occurrences of one variable share its replacement.
func Instantiate(t Type) Type {
	return instantiate(t, map[*TVar]*TVar{})
}

func instantiate(t Type, m map[*TVar]*TVar) Type {
	switch tt := Deref(t).(type) {
	case *TVar:
		if r, ok := m[tt]; ok {
			return r
		}
		r := NewBoxingVar()
		m[tt] = r
		return r
	case *TFunc:
		ps := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			ps[i] = instantiate(p, m)
		}
		return &TFunc{Params: ps, ReturnType: instantiate(tt.ReturnType, m), NoCurrying: tt.NoCurrying}
	case *TCollection:
		return &TCollection{Kind: tt.Kind, Elem: instantiate(tt.Elem, m)}
	case *TArray:
		return &TArray{Elem: instantiate(tt.Elem, m), Index: instantiate(tt.Index, m)}
	case *TTuple:
		es := make([]Type, len(tt.Elems))
		for i, e := range tt.Elems {
			es[i] = instantiate(e, m)
		}
		return &TTuple{Elems: es}
	case *TNamedTuple:
		fs := make([]Field, len(tt.Fields))
		for i, f := range tt.Fields {
			fs[i] = Field{Name: f.Name, Type: instantiate(f.Type, m)}
		}
		return &TNamedTuple{Fields: fs}
	default:
		return tt
	}
}

// IsPolymorphic reports whether t still contains unbound variables.
func IsPolymorphic(t Type) bool {
	switch tt := Deref(t).(type) {
	case *TVar:
		return true
	case *TFunc:
		for _, p := range tt.Params {
			if IsPolymorphic(p) {
				return true
			}
		}
		return IsPolymorphic(tt.ReturnType)
	case *TCollection:
		return IsPolymorphic(tt.Elem)
	case *TArray:
		return IsPolymorphic(tt.Elem) || IsPolymorphic(tt.Index)
	case *TTuple:
		for _, e := range tt.Elems {
			if IsPolymorphic(e) {
				return true
			}
		}
	case *TNamedTuple:
		for _, f := range tt.Fields {
			if IsPolymorphic(f.Type) {
				return true
			}
		}
	}
	return false
}

// Equivalent reports whether a and b are equal up to a consistent renaming
// of their unbound variables.
func Equivalent(a, b Type) bool {
	return equivalent(a, b, map[*TVar]*TVar{}, map[*TVar]*TVar{})
}

func equivalent(a, b Type, ab, ba map[*TVar]*TVar) bool {
	da, db := Deref(a), Deref(b)
	va, aIsVar := da.(*TVar)
	vb, bIsVar := db.(*TVar)
	if aIsVar || bIsVar {
		if !aIsVar || !bIsVar {
			return false
		}
		if m, ok := ab[va]; ok {
			return m == vb
		}
		if m, ok := ba[vb]; ok {
			return m == va
		}
		ab[va], ba[vb] = vb, va
		return true
	}
	switch ta := da.(type) {
	case TCon:
		tb, ok := db.(TCon)
		return ok && ta == tb
	case *TFunc:
		tb, ok := db.(*TFunc)
		if !ok || len(ta.Params) != len(tb.Params) {
			return false
		}
		for i := range ta.Params {
			if !equivalent(ta.Params[i], tb.Params[i], ab, ba) {
				return false
			}
		}
		return equivalent(ta.ReturnType, tb.ReturnType, ab, ba)
	case *TCollection:
		tb, ok := db.(*TCollection)
		return ok && ta.Kind == tb.Kind && equivalent(ta.Elem, tb.Elem, ab, ba)
	case *TArray:
		tb, ok := db.(*TArray)
		return ok && equivalent(ta.Index, tb.Index, ab, ba) && equivalent(ta.Elem, tb.Elem, ab, ba)
	case *TTuple:
		tb, ok := db.(*TTuple)
		if !ok || len(ta.Elems) != len(tb.Elems) {
			return false
		}
		for i := range ta.Elems {
			if !equivalent(ta.Elems[i], tb.Elems[i], ab, ba) {
				return false
			}
		}
		return true
	case *TNamedTuple:
		tb, ok := db.(*TNamedTuple)
		if !ok || len(ta.Fields) != len(tb.Fields) {
			return false
		}
		for i := range ta.Fields {
			if ta.Fields[i].Name != tb.Fields[i].Name || !equivalent(ta.Fields[i].Type, tb.Fields[i].Type, ab, ba) {
				return false
			}
		}
		return true
	}
	return false
}
