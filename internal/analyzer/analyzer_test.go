package analyzer

import (
	"testing"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

func call(f string, args ...ast.Expression) *ast.Application {
	return ast.NewApplication(ast.NewDummy(f), args...)
}

func params(names ...string) []*ast.Parameter {
	ps := make([]*ast.Parameter, len(names))
	for i, n := range names {
		ps[i] = ast.NewParameter(n)
	}
	return ps
}

func analyze(t *testing.T, e ast.Expression) ast.Expression {
	t.Helper()
	out, err := New(symbols.NewTables(), nil).Analyze(e)
	if err != nil {
		t.Fatalf("Analyze(%s): %v", e, err)
	}
	return out
}

func analyzeError(t *testing.T, e ast.Expression) diagnostics.ErrorCode {
	t.Helper()
	_, err := New(symbols.NewTables(), nil).Analyze(e)
	if err == nil {
		t.Fatalf("Analyze(%s): got no error", e)
	}
	return diagnostics.CodeOf(err)
}

func TestSanitizeNames_LocalShadowsGlobal(t *testing.T) {
	ps := params("max")
	let := ast.NewLet(ps, []ast.Expression{ast.NewInt(1)}, ast.NewDummy("max"))
	a := New(symbols.NewTables(), nil)
	out, err := a.SanitizeNames(let, NewParameterStack())
	if err != nil {
		t.Fatalf("SanitizeNames: %v", err)
	}
	body := out.(*ast.Let).Scope().Body
	l, ok := body.(*ast.Local)
	if !ok {
		t.Fatalf("body: got=%T, want=*ast.Local", body)
	}
	if l.Param != ps[0] {
		t.Errorf("local bound to the wrong parameter")
	}
}

func TestSanitizeNames_Assignments(t *testing.T) {
	a := New(symbols.NewTables(), nil)
	ps := params("x")
	let := ast.NewLet(ps, []ast.Expression{ast.NewInt(1)}, ast.NewDummyAssignment("x", ast.NewInt(2)))
	out, err := a.SanitizeNames(let, NewParameterStack())
	if err != nil {
		t.Fatalf("SanitizeNames: %v", err)
	}
	if _, ok := out.(*ast.Let).Scope().Body.(*ast.LocalAssignment); !ok {
		t.Errorf("got=%T, want=*ast.LocalAssignment", out.(*ast.Let).Scope().Body)
	}

	out, err = a.SanitizeNames(ast.NewDummyAssignment("counter", ast.NewInt(2)), NewParameterStack())
	if err != nil {
		t.Fatalf("SanitizeNames: %v", err)
	}
	if _, ok := out.(*ast.GlobalAssignment); !ok {
		t.Errorf("got=%T, want=*ast.GlobalAssignment", out)
	}

	_, err = a.SanitizeNames(ast.NewDummyAssignment("+", ast.NewInt(2)), NewParameterStack())
	if got := diagnostics.CodeOf(err); got != diagnostics.ErrA001 {
		t.Errorf("builtin assignment: got=%q, want=%q", got, diagnostics.ErrA001)
	}
}

func TestTypeCheck_OverloadSelection(t *testing.T) {
	tests := []struct {
		name string
		expr *ast.Application
		want typesystem.Type
		op   bytecode.Opcode
	}{
		{"int", call("+", ast.NewInt(1), ast.NewInt(2)), typesystem.Int, bytecode.ADD_II},
		{"real", call("+", ast.NewReal(1), ast.NewReal(2)), typesystem.Real, bytecode.ADD_RR},
		{"comparison", call("<", ast.NewReal(1), ast.NewReal(2)), typesystem.Bool, bytecode.LT_RR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := analyze(t, tt.expr).(*ast.Application)
			if got := typesystem.Deref(out.CheckedType()); got != tt.want {
				t.Errorf("type: got=%v, want=%v", got, tt.want)
			}
			g := out.Function.(*ast.Global)
			b, ok := g.Entry.(*symbols.BuiltinEntry)
			if !ok {
				t.Fatalf("entry: got=%T, want=*symbols.BuiltinEntry", g.Entry)
			}
			if b.Instruction.Op != tt.op {
				t.Errorf("entry: got=%v, want=%v", b.Instruction.Op, tt.op)
			}
		})
	}
}

func TestTypeCheck_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expression
		want diagnostics.ErrorCode
	}{
		{"mismatch", call("+", ast.NewInt(1), ast.NewString("a")), diagnostics.ErrT001},
		{"duplicate field", ast.NewNamedTuple([]string{"a", "a"}, []ast.Expression{ast.NewInt(1), ast.NewInt(2)}), diagnostics.ErrT002},
		{"void component", ast.NewTuple(ast.NewInt(1), ast.NewVoid()), diagnostics.ErrT003},
		{"undefined", call("nowhere", ast.NewInt(1)), diagnostics.ErrT004},
		{"bad dimension", ast.NewArrayOf(typesystem.Int, ast.NewString("ten")), diagnostics.ErrT005},
		{"position out of range", ast.NewTupleProjection(ast.NewTuple(ast.NewInt(1)), ast.NewInt(2)), diagnostics.ErrT006},
		{"name on a plain tuple", ast.NewTupleProjection(ast.NewTuple(ast.NewInt(1)), ast.NewString("a")), diagnostics.ErrT006},
		{"projection of an int", ast.NewTupleProjection(ast.NewInt(1), ast.NewInt(1)), diagnostics.ErrT006},
		{"exit at top level", ast.NewExitWithValue(ast.NewInt(1)), diagnostics.ErrT007},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := analyzeError(t, tt.expr); got != tt.want {
				t.Errorf("code: got=%q, want=%q", got, tt.want)
			}
		})
	}
}

func TestTypeCheck_NamedProjection(t *testing.T) {
	tuple := ast.NewNamedTuple([]string{"b", "a"}, []ast.Expression{ast.NewString("s"), ast.NewInt(1)})
	out := analyze(t, ast.NewTupleProjection(tuple, ast.NewString("b"))).(*ast.TupleProjection)
	if out.Position != 2 {
		t.Errorf("position: got=%d, want=2", out.Position)
	}
	if got := typesystem.Deref(out.CheckedType()); got != typesystem.String {
		t.Errorf("type: got=%v, want=string", got)
	}
}

func TestTypeCheck_CurriedApplication(t *testing.T) {
	x, y := params("x")[0], params("y")[0]
	inner := ast.NewAbstraction([]*ast.Parameter{y}, call("+", ast.NewDummy("x"), ast.NewDummy("y")))
	outer := ast.NewAbstraction([]*ast.Parameter{x}, ast.NewSequence(inner))
	app := ast.NewApplication(outer, ast.NewInt(1), ast.NewInt(2))

	out := analyze(t, app).(*ast.Application)
	if len(out.Args) != 1 {
		t.Fatalf("args: got=%d, want=1", len(out.Args))
	}
	split, ok := out.Function.(*ast.Application)
	if !ok {
		t.Fatalf("function: got=%T, want=*ast.Application", out.Function)
	}
	if split.Function != outer {
		t.Errorf("inner application does not apply the abstraction")
	}
	if got := typesystem.Deref(out.CheckedType()); got != typesystem.Int {
		t.Errorf("type: got=%v, want=int", got)
	}
}

func TestTypeCheck_UndecidedTakesSecondReading(t *testing.T) {
	u := ast.NewUndecided(call("+", ast.NewInt(1), ast.NewString("a")), ast.NewInt(7))
	out := analyze(t, u)
	c, ok := out.(*ast.Constant)
	if !ok || c.Int != 7 {
		t.Fatalf("got=%v, want the constant 7", out)
	}
}

func TestTypeCheck_ExitWithValue(t *testing.T) {
	x := params("x")[0]
	body := ast.NewIfThenElse(call(">", ast.NewDummy("x"), ast.NewInt(0)),
		ast.NewExitWithValue(ast.NewInt(1)), ast.NewInt(2))
	abs := ast.NewAbstraction([]*ast.Parameter{x}, body)
	out := analyze(t, abs)
	ft, ok := typesystem.AsFunc(out.CheckedType())
	if !ok {
		t.Fatalf("type: got=%v, want a function", out.CheckedType())
	}
	if got := typesystem.Deref(ft.ReturnType); got != typesystem.Int {
		t.Errorf("result: got=%v, want=int", got)
	}
}

func TestTypeCheck_VoidAssignments(t *testing.T) {
	cfg := config.Default()
	cfg.VoidAssignments = true
	ps := params("x")
	let := ast.NewLet(ps, []ast.Expression{ast.NewInt(1)}, ast.NewDummyAssignment("x", ast.NewInt(2)))
	out, err := New(symbols.NewTables(), cfg).Analyze(let)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !typesystem.IsVoid(out.CheckedType()) {
		t.Errorf("type: got=%v, want=void", out.CheckedType())
	}
}

func TestTypeCheck_RecursiveDefinition(t *testing.T) {
	tables := symbols.NewTables()
	n := params("n")[0]
	body := ast.NewIfThenElse(call("<", ast.NewDummy("n"), ast.NewInt(2)),
		ast.NewInt(1),
		call("*", ast.NewDummy("n"), call("fact", call("-", ast.NewDummy("n"), ast.NewInt(1)))))
	def := ast.NewDefinition(tables.Symbol("fact"), ast.NewAbstraction([]*ast.Parameter{n}, body))

	out, err := New(tables, nil).Analyze(def)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	d := out.(*ast.Definition)
	if d.Entry == nil || d.Entry.IsProvisional() {
		t.Fatalf("entry: got=%v, want a registered entry", d.Entry)
	}
	want := typesystem.NewFunc(typesystem.Int, typesystem.Int)
	if !typesystem.Equivalent(d.Entry.Type(), want) {
		t.Errorf("type: got=%v, want=%v", d.Entry.Type(), want)
	}
}

func TestAnalyze_FailedDefinitionDropsProvisional(t *testing.T) {
	tables := symbols.NewTables()
	def := ast.NewDefinition(tables.Symbol("bad"), call("+", ast.NewInt(1), ast.NewString("a")))
	if _, err := New(tables, nil).Analyze(def); err == nil {
		t.Fatalf("got no error")
	}
	if tables.Symbol("bad").IsDefined() {
		t.Errorf("symbol still defined after a failed definition")
	}
}

func TestAnalyze_Comprehension(t *testing.T) {
	set := ast.NewCollectionOf(typesystem.SetKind, ast.NewInt(1), ast.NewInt(2), ast.NewInt(3))
	c := ast.NewComprehension(ast.NewDummy("+"), ast.NewInt(0), ast.NewDummy("x"),
		[]ast.Expression{ast.NewDummy("x")}, []ast.Expression{set}, config.InPlaceDefault)

	out := analyze(t, c)
	let, ok := out.(*ast.Let)
	if !ok {
		t.Fatalf("got=%T, want=*ast.Let", out)
	}
	if got := typesystem.Deref(let.CheckedType()); got != typesystem.Int {
		t.Errorf("type: got=%v, want=int", got)
	}
	op := let.Args[0].(*ast.Global)
	if b := op.Entry.(*symbols.BuiltinEntry); b.Instruction.Op != bytecode.ADD_II {
		t.Errorf("monoid operation: got=%v, want=ADD_II", b.Instruction.Op)
	}
	if _, ok := let.Scope().Body.(*ast.Homomorphism); !ok {
		t.Errorf("body: got=%T, want=*ast.Homomorphism", let.Scope().Body)
	}
}

func TestSanitizeSorts_Offsets(t *testing.T) {
	ps := params("i", "r", "j")
	let := ast.NewLet(ps,
		[]ast.Expression{ast.NewInt(1), ast.NewReal(2), ast.NewInt(3)},
		ast.NewTuple(ast.NewDummy("i"), ast.NewDummy("r"), ast.NewDummy("j")))

	out := analyze(t, let).(*ast.Let)
	tuple := out.Scope().Body.(*ast.Tuple)
	want := []int{1, 0, 0}
	for k, e := range tuple.Elems {
		if got := e.(*ast.Local).Offset; got != want[k] {
			t.Errorf("offset of %s: got=%d, want=%d", e, got, want[k])
		}
	}
	if got := out.Scope().Arity; got != [typesystem.NumSorts]int{2, 1, 0} {
		t.Errorf("arity: got=%v, want=[2 1 0]", got)
	}
}

func TestSanitizeSorts_FrameSize(t *testing.T) {
	ps := params("a", "b")
	y := params("y")[0]
	abs := ast.NewAbstraction([]*ast.Parameter{y}, call("+", ast.NewDummy("a"), ast.NewDummy("y")))
	let := ast.NewLet(ps, []ast.Expression{ast.NewInt(1), ast.NewInt(2)}, abs)

	analyze(t, let)
	if got := abs.FrameSize; got != [typesystem.NumSorts]int{2, 0, 0} {
		t.Errorf("frame: got=%v, want=[2 0 0]", got)
	}
}
