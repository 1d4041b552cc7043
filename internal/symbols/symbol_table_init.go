package symbols

import (
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/typesystem"
)

// RegisterBuiltins installs the builtin library into t.
func RegisterBuiltins(t *Tables) {
	I, R, B := typesystem.Int, typesystem.Real, typesystem.Bool
	fn := typesystem.NewFunc

	// Arithmetic
	arith := []struct {
		name   string
		ii, rr bytecode.Opcode
	}{
		{"+", bytecode.ADD_II, bytecode.ADD_RR},
		{"-", bytecode.SUB_II, bytecode.SUB_RR},
		{"*", bytecode.MUL_II, bytecode.MUL_RR},
		{"/", bytecode.DIV_II, bytecode.DIV_RR},
		{"max", bytecode.MAX_II, bytecode.MAX_RR},
		{"min", bytecode.MIN_II, bytecode.MIN_RR},
	}
	for _, a := range arith {
		t.DefineBuiltin(a.name, fn(I, I, I), a.ii)
		t.DefineBuiltin(a.name, fn(R, R, R), a.rr)
	}
	t.DefineBuiltin("%", fn(I, I, I), bytecode.MOD_II)
	t.DefineBuiltin("neg", fn(I, I), bytecode.MINUS_I)
	t.DefineBuiltin("neg", fn(R, R), bytecode.MINUS_R)

	// Comparison
	cmp := []struct {
		name   string
		ii, rr bytecode.Opcode
	}{
		{"<", bytecode.LT_II, bytecode.LT_RR},
		{"<=", bytecode.LTE_II, bytecode.LTE_RR},
		{">", bytecode.GT_II, bytecode.GT_RR},
		{">=", bytecode.GTE_II, bytecode.GTE_RR},
	}
	for _, c := range cmp {
		t.DefineBuiltin(c.name, fn(B, I, I), c.ii)
		t.DefineBuiltin(c.name, fn(B, R, R), c.rr)
	}

	t.DefineBuiltin(config.NotName, fn(B, B), bytecode.NOT)
	t.DefineBuiltin(config.IntToRealName, fn(R, I), bytecode.I_TO_R)
	t.DefineBuiltin(config.RangeName, fn(typesystem.IntRange, I, I), bytecode.RANGE)

	// Placeholders
	t.DefineBuiltin(config.AndName, fn(B, B, B), bytecode.DUMMY_AND)
	t.DefineBuiltin(config.OrName, fn(B, B, B), bytecode.DUMMY_OR)
	a := typesystem.NewVar()
	t.DefineBuiltin(config.EqualityName, fn(B, a, a), bytecode.DUMMY_EQU)
	a = typesystem.NewVar()
	t.DefineBuiltin(config.InequalityName, fn(B, a, a), bytecode.DUMMY_NEQ)
	t.DefineBuiltin(config.ConcatName, fn(typesystem.String, typesystem.NewVar(), typesystem.NewVar()), bytecode.DUMMY_STRCON)
	t.DefineBuiltin(config.WriteName, fn(typesystem.Void, typesystem.NewVar()), bytecode.DUMMY_WRITE)

	a = typesystem.NewVar()
	t.DefineBuiltin("size", fn(I, &typesystem.TArray{Elem: a, Index: typesystem.NewVar()}), bytecode.DUMMY_SIZE)

	for _, mk := range []func(typesystem.Type) *typesystem.TCollection{typesystem.NewSet, typesystem.NewList, typesystem.NewBag} {
		a = typesystem.NewVar()
		t.DefineBuiltin("size", fn(I, mk(a)), bytecode.SIZE)
		a = typesystem.NewVar()
		t.DefineBuiltin("add", fn(mk(a), a, mk(a)), bytecode.DUMMY_SET_ADD)
		a = typesystem.NewVar()
		t.DefineBuiltin("rmv", fn(mk(a), a, mk(a)), bytecode.DUMMY_SET_RMV)
		a = typesystem.NewVar()
		t.DefineBuiltin(config.InName, fn(B, a, mk(a)), bytecode.DUMMY_BELONGS)
	}

	for _, mk := range []func(typesystem.Type) *typesystem.TCollection{typesystem.NewSet, typesystem.NewList} {
		a = typesystem.NewVar()
		t.DefineBuiltin("first", fn(a, mk(a)), bytecode.DUMMY_FIRST)
		a = typesystem.NewVar()
		t.DefineBuiltin("last", fn(a, mk(a)), bytecode.DUMMY_LAST)
		a = typesystem.NewVar()
		t.DefineBuiltin("ord", fn(I, mk(a), a), bytecode.DUMMY_ORD)
		a = typesystem.NewVar()
		t.DefineBuiltin("next", fn(a, mk(a), a), bytecode.DUMMY_NEXT)
		a = typesystem.NewVar()
		t.DefineBuiltin("prev", fn(a, mk(a), a), bytecode.DUMMY_PREV)
	}
}
