package symbols

import (
	"testing"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/typesystem"
)

func TestBuiltinsRegistered(t *testing.T) {
	tables := NewTables()
	tests := []struct {
		name    string
		entries int
	}{
		{"+", 2},
		{"==", 1},
		{"size", 4},
		{"in", 3},
		{"first", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := tables.Lookup(tt.name)
			if !ok {
				t.Fatalf("%s is not defined", tt.name)
			}
			if got := len(s.Entries()); got != tt.entries {
				t.Errorf("got=%d, want=%d", got, tt.entries)
			}
		})
	}
	if _, ok := tables.Lookup("nope"); ok {
		t.Error("undefined symbol must not be found")
	}
	eq, _ := tables.Lookup("==")
	if b := eq.Entries()[0].(*BuiltinEntry); !b.IsDummy() {
		t.Error("equality is expanded by the compiler")
	}
}

func TestRegisterCodeEntryPromotesProvisional(t *testing.T) {
	tables := NewEmptyTables()
	s := tables.Symbol("f")
	cell := typesystem.NewVar()
	p := s.Provisional(cell)
	if !p.IsProvisional() || !s.IsDefined() {
		t.Fatal("provisional entry must define the symbol")
	}
	d := s.RegisterCodeEntry(typesystem.NewFunc(typesystem.Int, typesystem.Int))
	if d != p || d.IsProvisional() {
		t.Error("registration must reuse the provisional entry")
	}
	again := s.RegisterCodeEntry(typesystem.NewFunc(typesystem.Int, typesystem.Int))
	if again != d || len(s.Entries()) != 1 {
		t.Error("redefinition with an equivalent type must reuse the entry")
	}
	other := s.RegisterCodeEntry(typesystem.NewFunc(typesystem.Real, typesystem.Real))
	if other == d || len(s.Entries()) != 2 {
		t.Error("a different type adds an overload")
	}
}

func TestUnsafeRelease(t *testing.T) {
	tables := NewEmptyTables()
	f := tables.Symbol("f").RegisterCodeEntry(typesystem.Int)
	g := tables.Symbol("g").RegisterCodeEntry(typesystem.Real)

	// f refers to g before g is compiled, and to itself.
	f.DependOn(g)
	f.DependOn(f)
	f.SetCode(bytecode.Code{bytecode.Simple(bytecode.CALL), bytecode.Simple(bytecode.END)})
	f.ReleaseUnsafeEntries()
	if f.IsSafe() {
		t.Fatal("f must wait for g")
	}
	if got := f.WaitingOn(); len(got) != 1 || got[0] != "g" {
		t.Errorf("got=%v, want=[g]", got)
	}

	g.SetCode(bytecode.Code{bytecode.Simple(bytecode.PUSH_VALUE_R), bytecode.Simple(bytecode.END)})
	g.ReleaseUnsafeEntries()
	if !f.IsSafe() {
		t.Error("installing g must release f")
	}
}

func TestInlinable(t *testing.T) {
	tables := NewEmptyTables()
	tables.SetInlineThreshold(2)
	e := tables.Symbol("k").RegisterCodeEntry(typesystem.Int)
	if e.IsInlinable() {
		t.Error("an entry without code is not inlinable")
	}
	e.SetCode(bytecode.Code{{Op: bytecode.PUSH_VALUE_I, Int: 1}, bytecode.Simple(bytecode.END), bytecode.Simple(bytecode.RETURN_I)})
	if !e.IsInlinable() {
		t.Error("short straight-line code is inlinable")
	}
	e.SetInlinable(false)
	if e.IsInlinable() {
		t.Error("SetInlinable(false) must win")
	}
	long := tables.Symbol("l").RegisterCodeEntry(typesystem.Int)
	long.SetCode(bytecode.Code{bytecode.Simple(bytecode.PUSH_TRUE), bytecode.Simple(bytecode.PUSH_TRUE), bytecode.Simple(bytecode.ADD_II), bytecode.Simple(bytecode.END)})
	if long.IsInlinable() {
		t.Error("code longer than the threshold is not inlinable")
	}
}

func TestDefineProjection(t *testing.T) {
	tables := NewEmptyTables()
	tuple := typesystem.NewNamedTuple([]typesystem.Field{{Name: "y", Type: typesystem.Real}, {Name: "x", Type: typesystem.Int}})
	p, ok := tables.DefineProjection("y", tuple)
	if !ok {
		t.Fatal("y is a field")
	}
	if p.Position != 2 || p.FieldSort() != typesystem.RealSort {
		t.Errorf("got=%d,%s want=2,REAL", p.Position, p.FieldSort())
	}
	if _, ok := tables.DefineProjection("z", tuple); ok {
		t.Error("z is not a field")
	}
	if tables.IsDefinedScalar("y") {
		t.Error("a projection is a function")
	}
}

func TestDeclareFields(t *testing.T) {
	tables := NewEmptyTables()
	entries := tables.DeclareFields([]string{"weight", "age"})
	if len(entries) != 2 {
		t.Fatalf("got=%d accessors, want=2", len(entries))
	}
	s, ok := tables.Lookup("weight")
	if !ok {
		t.Fatal("weight is not defined")
	}
	p, ok := s.Entries()[0].(*ProjectionEntry)
	if !ok {
		t.Fatalf("got=%T, want=*ProjectionEntry", s.Entries()[0])
	}
	if p.Position != 2 {
		t.Errorf("position got=%d, want=2", p.Position)
	}

	if again := tables.DeclareFields([]string{"age", "weight"}); len(again) != 0 {
		t.Errorf("redeclared shape got=%d accessors, want=0", len(again))
	}
	if other := tables.DeclareFields([]string{"age"}); len(other) != 1 {
		t.Errorf("new shape got=%d accessors, want=1", len(other))
	}
	if s, _ := tables.Lookup("age"); len(s.Entries()) != 2 {
		t.Errorf("age got=%d entries, want=2", len(s.Entries()))
	}
}
