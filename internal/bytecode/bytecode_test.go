package bytecode

import (
	"strings"
	"testing"

	"github.com/funvibe/kernel/internal/typesystem"
)

func TestOpcodeNamesComplete(t *testing.T) {
	for op := NOP; op < numOpcodes; op++ {
		if _, ok := OpcodeNames[op]; !ok {
			t.Errorf("opcode %d has no name", op)
		}
	}
	for op, name := range OpcodeNames {
		got, ok := Lookup(name)
		if !ok || got != op {
			t.Errorf("Lookup(%q) got=%v, want=%v", name, got, op)
		}
	}
}

func TestRelocateOnlyMovesJumps(t *testing.T) {
	j := Jump(JUMP_ON_FALSE, 4).Relocate(10)
	if j.Address() != 14 {
		t.Errorf("got=%d, want=14", j.Address())
	}
	p := Instruction{Op: PUSH_VALUE_I, Int: 4}.Relocate(10)
	if p.Int != 4 {
		t.Errorf("got=%d, want=4", p.Int)
	}
}

func TestIsPush(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		sort typesystem.Sort
		want bool
	}{
		{"int literal", Instruction{Op: PUSH_VALUE_I}, typesystem.IntSort, true},
		{"int literal as real", Instruction{Op: PUSH_VALUE_I}, typesystem.RealSort, false},
		{"real local", Instruction{Op: PUSH_OFFSET_R}, typesystem.RealSort, true},
		{"null object", Simple(PUSH_NULL), typesystem.ObjectSort, true},
		{"call", Simple(CALL), typesystem.ObjectSort, false},
		{"boxing", Simple(I_TO_O), typesystem.ObjectSort, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.IsPush(tt.sort); got != tt.want {
				t.Errorf("got=%v, want=%v", got, tt.want)
			}
		})
	}
}

func TestBySort(t *testing.T) {
	if got := Return(typesystem.RealSort); got != RETURN_R {
		t.Errorf("got=%s, want=RETURN_R", got)
	}
	if got := Return(typesystem.VoidSort); got != RETURN_V {
		t.Errorf("got=%s, want=RETURN_V", got)
	}
	if got := Pop(typesystem.ObjectSort); got != POP_O {
		t.Errorf("got=%s, want=POP_O", got)
	}
	if got := SET_ADD_R.SortIn(SET_ADD_I, SET_ADD_R, SET_ADD_O); got != typesystem.RealSort {
		t.Errorf("got=%s, want=REAL", got)
	}
}

type namedCode string

func (n namedCode) Name() string { return string(n) }
func (n namedCode) Code() Code   { return nil }

func TestDisassemble(t *testing.T) {
	scope := &ScopeInfo{Address: 5, Frame: [3]int{1, 0, 0}}
	scope.Arity[0] = 1
	code := Code{
		{Op: PUSH_CLOSURE, Scope: scope},
		{Op: APPLY, Call: &CallInfo{ArgSorts: []typesystem.Sort{typesystem.IntSort}, ResultSort: typesystem.IntSort}},
		Jump(JUMP, 4),
		{Op: CALL, Entry: namedCode("f")},
		Simple(END),
		{Op: PUSH_OFFSET_I, Int: 0},
		{Op: PUSH_VALUE_R, Real: 1.5},
		{Op: APPLY_COLL_HOM_I, Hom: &HomInfo{Tally: typesystem.IntSort, Identity: typesystem.ObjectSort, Result: typesystem.ObjectSort}},
		{Op: APPLY_SLICED_HOM_O, Hom: &HomInfo{Slices: [][]int{{2, 1}}, Identity: typesystem.IntSort, Result: typesystem.IntSort}},
		Simple(RETURN_I),
	}
	want := strings.Join([]string{
		"== test ==",
		"0000 PUSH_CLOSURE @0005 arity=1/0/0 frame=1/0/0",
		"0001 APPLY (INT) -> I",
		"0002 JUMP 0004",
		"0003 CALL f",
		"0004 END",
		"0005 PUSH_OFFSET_I 0",
		"0006 PUSH_VALUE_R 1.5",
		"0007 APPLY_COLL_HOM_I tally=I id=O result=O",
		"0008 APPLY_SLICED_HOM_O id=I result=I slice=[2,1]",
		"0009 RETURN_I",
		"",
	}, "\n")
	if got := Disassemble(code, "test"); got != want {
		t.Errorf("got=\n%s\nwant=\n%s", got, want)
	}
}

func TestIsDummy(t *testing.T) {
	if !DUMMY_AND.IsDummy() || !DUMMY_PREV.IsDummy() {
		t.Error("placeholders must be dummies")
	}
	if APPLY_SLICED_COLL_FHOM_O.IsDummy() || NOP.IsDummy() {
		t.Error("real instructions are not dummies")
	}
}
