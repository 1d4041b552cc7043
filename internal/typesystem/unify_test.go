package typesystem

import (
	"errors"
	"testing"
)

func TestSortOf(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want Sort
	}{
		{"int", Int, IntSort},
		{"char", Char, IntSort},
		{"bool", Bool, IntSort},
		{"real", Real, RealSort},
		{"void", Void, VoidSort},
		{"string", String, ObjectSort},
		{"set", NewSet(Int), ObjectSort},
		{"unbound", NewVar(), ObjectSort},
		{"bound", &TVar{Ref: Real}, RealSort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SortOf(tt.typ); got != tt.want {
				t.Errorf("got=%s, want=%s", got, tt.want)
			}
		})
	}
}

func TestRank(t *testing.T) {
	if got := Rank(Int); got != 0 {
		t.Errorf("got=%d, want=0", got)
	}
	if got := Rank(NewSet(NewList(Int))); got != 2 {
		t.Errorf("got=%d, want=2", got)
	}
	v := NewVar()
	v.Ref = NewBag(Real)
	if got := Rank(v); got != 1 {
		t.Errorf("got=%d, want=1", got)
	}
}

func TestUnifyBindsPlainSideUnboxed(t *testing.T) {
	u := NewUnifier()
	b := NewBoxingVar()
	p := NewVar()
	if err := u.Unify(b, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := u.Unify(p, Int); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsBoxed(b) {
		t.Error("boxing variable bound to int should be boxed")
	}
	if IsBoxed(p) {
		t.Error("plain variable bound to int should not be boxed")
	}
	if BoxSortOf(b) != ObjectSort || BoxSortOf(p) != IntSort {
		t.Errorf("box sorts: got=%s,%s want=OBJECT,INT", BoxSortOf(b), BoxSortOf(p))
	}
}

func TestBoxedOnlyForPrimitiveSorts(t *testing.T) {
	u := NewUnifier()
	b := NewBoxingVar()
	if err := u.Unify(b, String); err != nil {
		t.Fatal(err)
	}
	if IsBoxed(b) {
		t.Error("object-sorted binding is never boxed")
	}
}

func TestUnifyStructural(t *testing.T) {
	u := NewUnifier()
	a := NewVar()
	if err := u.Unify(NewSet(a), NewSet(Real)); err != nil {
		t.Fatal(err)
	}
	if SortOf(a) != RealSort {
		t.Errorf("got=%s, want=REAL", SortOf(a))
	}
	err := u.Unify(NewSet(Int), NewList(Int))
	var ue *UnifyError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnifyError, got %v", err)
	}
}

func TestOccursCheck(t *testing.T) {
	u := NewUnifier()
	a := NewVar()
	if err := u.Unify(a, NewList(a)); err == nil {
		t.Error("expected infinite type error")
	}
}

func TestCurriedFunctionUnification(t *testing.T) {
	u := NewUnifier()
	// (int) -> (int) -> int  ~  (int, int) -> 'r
	f := NewFunc(NewFunc(Int, Int), Int)
	r := NewVar()
	if err := u.Unify(f, NewFunc(r, Int, Int)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if SortOf(r) != IntSort {
		t.Errorf("got=%s, want=int", Resolve(r))
	}

	g := NewFunc(Int, Int, Int)
	g.NoCurrying = true
	if err := u.Unify(g, NewFunc(NewVar(), Int)); err == nil {
		t.Error("no-currying function must not unify with a shorter one")
	}
}

func TestCutPointUndo(t *testing.T) {
	u := NewUnifier()
	a := NewVar()
	u.PushCutPoint()
	if err := u.Unify(a, Int); err != nil {
		t.Fatal(err)
	}
	undone := false
	u.Trail(func() { undone = true })
	u.UndoCutPoint()
	if Deref(a) != a {
		t.Errorf("binding survived undo: %s", a)
	}
	if !undone {
		t.Error("trailed action was not undone")
	}
	if err := u.Unify(a, Real); err != nil {
		t.Fatal(err)
	}
	u.PopCutPoint()
	if SortOf(a) != RealSort {
		t.Errorf("got=%s, want=real", a)
	}
}

func TestInstantiate(t *testing.T) {
	a := NewVar()
	scheme := NewFunc(a, a, Int)
	inst, ok := Instantiate(scheme).(*TFunc)
	if !ok {
		t.Fatalf("instantiate returned %T", inst)
	}
	p0, ok := inst.Params[0].(*TVar)
	if !ok || !p0.Boxing {
		t.Fatalf("expected fresh boxing variable, got %s", inst.Params[0])
	}
	if inst.ReturnType != inst.Params[0] {
		t.Error("occurrences of one variable must share their replacement")
	}
	if p0 == a {
		t.Error("scheme variable leaked into instance")
	}
	if inst.Params[1] != Type(Int) {
		t.Errorf("got=%s, want=int", inst.Params[1])
	}
}

func TestDomainAndRangeBoxing(t *testing.T) {
	u := NewUnifier()
	a := NewVar()
	f := Instantiate(NewFunc(a, a)).(*TFunc)
	if err := u.Unify(f, NewFunc(NewVar(), Int)); err != nil {
		t.Fatal(err)
	}
	if !DomainIsBoxed(f, 0) || !RangeIsBoxed(f) {
		t.Error("instantiated identity on int should take and return boxed values")
	}
	if DomainBoxSort(f, 0) != ObjectSort {
		t.Errorf("got=%s, want=OBJECT", DomainBoxSort(f, 0))
	}
}

func TestDisallowVoid(t *testing.T) {
	if err := DisallowVoid(Void, "argument"); err == nil {
		t.Error("expected error for void")
	}
	if err := DisallowVoid(NewVar(), "argument"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNamedTupleSortsFields(t *testing.T) {
	nt := NewNamedTuple([]Field{{"b", Int}, {"a", Real}})
	if nt.Fields[0].Name != "a" || nt.FieldIndex("b") != 1 {
		t.Errorf("got=%s, want fields sorted by name", nt)
	}
}

func TestEquivalent(t *testing.T) {
	a, b := NewVar(), NewVar()
	tests := []struct {
		name string
		x, y Type
		want bool
	}{
		{"renamed", NewFunc(a, a), NewFunc(b, b), true},
		{"not injective", NewFunc(a, a), NewFunc(NewVar(), NewVar()), false},
		{"constants", NewSet(Int), NewSet(Int), true},
		{"kinds", NewSet(Int), NewBag(Int), false},
		{"var and constant", NewList(a), NewList(Int), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equivalent(tt.x, tt.y); got != tt.want {
				t.Errorf("got=%v, want=%v", got, tt.want)
			}
		})
	}
}
