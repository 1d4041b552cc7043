package ast

import (
	"testing"

	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/typesystem"
)

func TestNewScope_FlattensNestedScope(t *testing.T) {
	x, y := NewParameter("x"), NewParameter("y")
	inner := NewScope([]*Parameter{y}, NewDummy("y"))
	s := NewScope([]*Parameter{x}, inner)

	if len(s.Params) != 2 {
		t.Fatalf("params: got=%d, want=2", len(s.Params))
	}
	if s.Params[0] != x || s.Params[1] != y {
		t.Errorf("params: got=%v, want=[x y]", paramList(s.Params))
	}
	if _, ok := s.Body.(*Dummy); !ok {
		t.Errorf("body: got=%T, want=*Dummy", s.Body)
	}
}

func TestNewScope_NoParamsIsVoid(t *testing.T) {
	s := NewScope(nil, NewInt(1))
	if len(s.Params) != 1 || !typesystem.IsVoid(s.Params[0].Type()) {
		t.Fatalf("got params=%v, want a single void parameter", s.Params)
	}
	s.SetSortedArities()
	if !s.VoidArity() {
		t.Errorf("arity: got=%v, want all zero", s.Arity)
	}
}

func TestNewAbstraction_MergesNested(t *testing.T) {
	inner := NewAbstraction([]*Parameter{NewParameter("y")}, NewDummy("y"))
	inner.Exitable = false
	a := NewAbstraction([]*Parameter{NewParameter("x")}, inner)
	if len(a.Params) != 2 {
		t.Fatalf("params: got=%d, want=2", len(a.Params))
	}
	if a.Exitable {
		t.Errorf("exitable: got=true, want=false")
	}
}

func TestApplication_Flatten(t *testing.T) {
	f := NewDummy("f")
	app := NewApplication(NewApplication(f, NewInt(1)), NewInt(2)).Flatten()
	if app.Function != f {
		t.Fatalf("function: got=%v, want=f", app.Function)
	}
	if got := app.String(); got != "f(1, 2)" {
		t.Errorf("got=%q, want=%q", got, "f(1, 2)")
	}
}

func TestApplication_NoArgsIsVoid(t *testing.T) {
	app := NewApplication(NewDummy("f"))
	c, ok := app.Args[0].(*Constant)
	if len(app.Args) != 1 || !ok || !c.IsVoid() {
		t.Fatalf("args: got=%v, want=[()]", app.Args)
	}
}

func TestSubexpression_OutOfRangePanics(t *testing.T) {
	defer func() {
		r := recover()
		if _, ok := r.(NoSuchSubexpression); !ok {
			t.Fatalf("recovered %v, want NoSuchSubexpression", r)
		}
	}()
	NewIfThenElse(NewBool(true), NewInt(1), NewInt(2)).Subexpression(3)
}

func TestSubstitute_ScopeHidesParams(t *testing.T) {
	x := NewParameter("x")
	body := NewApplication(NewDummy("+"), NewDummy("x"), NewDummy("y"))
	s := NewScope([]*Parameter{x}, body)

	Substitute(s, map[string]Expression{"x": NewInt(1), "y": NewInt(2)}, true)

	if got := s.Body.String(); got != "+(x, 2)" {
		t.Errorf("got=%q, want=%q", got, "+(x, 2)")
	}
}

func TestSubstitute_RawComprehensionOpaqueGenerator(t *testing.T) {
	c := NewComprehension(NewDummy("+"), NewInt(0),
		NewDummy("x"),
		[]Expression{NewDummy("x"), nil},
		[]Expression{NewDummy("x"), NewDummy("x")},
		config.InPlaceDefault)

	Substitute(c, map[string]Expression{"x": NewDummy("s")}, true)

	if got := c.Raw.Exprs[0].String(); got != "s" {
		t.Errorf("generator collection: got=%q, want=%q", got, "s")
	}
	if got := c.Raw.Exprs[1].String(); got != "x" {
		t.Errorf("filter: got=%q, want=%q", got, "x")
	}
	if got := c.Raw.Expr.String(); got != "x" {
		t.Errorf("expression: got=%q, want=%q", got, "x")
	}
}

func TestContainsFreeName(t *testing.T) {
	y := NewParameter("y")
	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{"dummy", NewDummy("x"), true},
		{"other", NewDummy("z"), false},
		{"bound", NewScope([]*Parameter{NewParameter("x")}, NewDummy("x")), false},
		{"free under scope", NewScope([]*Parameter{y}, NewDummy("x")), true},
		{"assignment", NewDummyAssignment("x", NewInt(1)), true},
		{"hidden by generator", NewComprehension(NewDummy("+"), NewInt(0), NewDummy("x"),
			[]Expression{NewDummy("x")}, []Expression{NewDummy("s")}, config.InPlaceDefault), false},
		{"generator collection", NewComprehension(NewDummy("+"), NewInt(0), NewInt(1),
			[]Expression{NewDummy("y")}, []Expression{NewDummy("x")}, config.InPlaceDefault), true},
	}
	for _, tt := range tests {
		if got := ContainsFreeName(tt.expr, "x"); got != tt.want {
			t.Errorf("%s: got=%v, want=%v", tt.name, got, tt.want)
		}
	}
}

func TestShiftOffsets(t *testing.T) {
	outer := NewParameter("o")
	outer.SetType(typesystem.Int)
	inner := NewParameter("i")
	inner.SetType(typesystem.Int)

	free := NewLocal(outer)
	free.Offset = 1
	bound := NewLocal(inner)
	bound.Offset = 0
	s := NewScope([]*Parameter{inner}, NewApplication(NewDummy("+"), bound, free))
	s.SetSortedArities()

	// The scope body is resolved except for the callee; shift the locals only.
	ShiftOffsets(s.Body.(*Application).Args[0], Sorts{2, 0, 0}, Sorts{1, 0, 0})
	ShiftOffsets(s.Body.(*Application).Args[1], Sorts{2, 0, 0}, Sorts{1, 0, 0})

	if bound.Offset != 0 {
		t.Errorf("bound offset: got=%d, want=0", bound.Offset)
	}
	if free.Offset != 3 {
		t.Errorf("free offset: got=%d, want=3", free.Offset)
	}
}

func TestCapturedSpan(t *testing.T) {
	a := NewParameter("a")
	a.SetType(typesystem.Real)
	b := NewParameter("b")
	b.SetType(typesystem.String)
	x := NewParameter("x")
	x.SetType(typesystem.Real)

	la, lb, lx := NewLocal(a), NewLocal(b), NewLocal(x)
	lx.Offset, la.Offset, lb.Offset = 0, 2, 0
	abs := NewAbstraction([]*Parameter{x}, NewSequence(lx, la, lb))
	abs.SetSortedArities()

	got := CapturedSpan(abs, Sorts{})
	want := Sorts{0, 2, 1}
	if got != want {
		t.Errorf("got=%v, want=%v", got, want)
	}
}

func TestLinkScopeTree(t *testing.T) {
	inner := NewComprehension(NewDummy("+"), NewInt(0), NewDummy("y"),
		[]Expression{NewDummy("y")}, []Expression{NewDummy("t")}, config.InPlaceDefault)
	outer := NewComprehension(NewDummy("+"), NewInt(0), inner,
		[]Expression{NewDummy("x")}, []Expression{NewDummy("s")}, config.InPlaceDefault)
	s := NewScope([]*Parameter{NewParameter("s")}, outer)

	if got := LinkScopeTree(s, nil); got != 2 {
		t.Fatalf("count: got=%d, want=2", got)
	}
	if s.NestedComprehensions() != 2 {
		t.Errorf("scope nested: got=%d, want=2", s.NestedComprehensions())
	}
	if outer.NestedComprehensions() != 1 {
		t.Errorf("outer nested: got=%d, want=1", outer.NestedComprehensions())
	}
	if EnclosingOf(inner) != outer || EnclosingOf(outer) != s {
		t.Errorf("enclosing links are wrong")
	}
	if got := LinkScopeTree(s, nil); got != 2 {
		t.Errorf("relink: got=%d, want=2", got)
	}
}

func TestNewNamedTuple_SortsFields(t *testing.T) {
	n := NewNamedTuple([]string{"b", "a", "c"}, []Expression{NewInt(2), NewInt(1), NewInt(3)})
	if got := n.String(); got != "<a: 1, b: 2, c: 3>" {
		t.Errorf("got=%q", got)
	}
	if _, dup := n.DuplicateField(); dup {
		t.Errorf("unexpected duplicate")
	}
	d := NewNamedTuple([]string{"a", "a"}, []Expression{NewInt(1), NewInt(2)})
	if f, dup := d.DuplicateField(); !dup || f != "a" {
		t.Errorf("duplicate: got=(%q, %v), want=(a, true)", f, dup)
	}
}

func TestEqual(t *testing.T) {
	p := NewParameter("p")
	tests := []struct {
		a, b Expression
		want bool
	}{
		{NewDummy("max"), NewDummy("max"), true},
		{NewDummy("max"), NewDummy("min"), false},
		{NewInt(0), NewInt(0), true},
		{NewInt(0), NewReal(0), false},
		{NewNull(), NewInt(0), true},
		{NewLocal(p), NewLocal(p), true},
		{NewTuple(), NewTuple(), false},
	}
	for i, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("%d: Equal(%v, %v) got=%v, want=%v", i, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScopeCopy_RebindsLocals(t *testing.T) {
	x := NewParameter("x")
	s := NewScope([]*Parameter{x}, NewLocal(x))
	c := s.Copy().(*Scope)

	if c.Params[0] == x {
		t.Fatalf("copy shares the parameter")
	}
	if got := c.Body.(*Local).Param; got != c.Params[0] {
		t.Errorf("copied local refers to %p, want the copied parameter %p", got, c.Params[0])
	}
	if s.Body.(*Local).Param != x {
		t.Errorf("original local was rebound")
	}
}

func TestAddType_KeepsFirstAsCell(t *testing.T) {
	d := NewDummy("x")
	AddType(d, typesystem.Int)
	AddType(d, typesystem.Real)
	AddType(d, typesystem.Int)
	if d.Type() != typesystem.Int {
		t.Errorf("cell: got=%v, want=int", d.Type())
	}
	if got := len(d.OtherTypes()); got != 1 {
		t.Errorf("others: got=%d, want=1", got)
	}
}

func TestLatches(t *testing.T) {
	n := NewInt(1)
	if n.Node().LockTypeCheck() {
		t.Fatalf("first lock reported already locked")
	}
	if !n.Node().LockTypeCheck() {
		t.Fatalf("second lock reported unlocked")
	}
	n.Node().UnlockTypeCheck()
	if n.Node().LockTypeCheck() {
		t.Errorf("lock after unlock reported already locked")
	}
}
