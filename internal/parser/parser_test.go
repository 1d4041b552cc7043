package parser

import (
	"testing"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/pipeline"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/token"
	"github.com/funvibe/kernel/internal/typesystem"
)

func parseOne(t *testing.T, input string) ast.Expression {
	t.Helper()
	exprs, err := New(symbols.NewTables()).ParseDocument([]byte(input))
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	if len(exprs) != 1 {
		t.Fatalf("got=%d expressions, want=1", len(exprs))
	}
	return exprs[0]
}

func TestScalars(t *testing.T) {
	tests := []struct {
		input string
		kind  ast.ConstantKind
		check func(c *ast.Constant) bool
	}{
		{"42", ast.IntConstant, func(c *ast.Constant) bool { return c.Int == 42 }},
		{"0x10", ast.IntConstant, func(c *ast.Constant) bool { return c.Int == 16 }},
		{"1.5", ast.RealConstant, func(c *ast.Constant) bool { return c.Real == 1.5 }},
		{"true", ast.BoolConstant, func(c *ast.Constant) bool { return c.Bool }},
		{"null", ast.NullConstant, func(c *ast.Constant) bool { return true }},
		{`"hi"`, ast.StringConstant, func(c *ast.Constant) bool { return c.Str == "hi" }},
		{"!str 12", ast.StringConstant, func(c *ast.Constant) bool { return c.Str == "12" }},
		{"!char é", ast.CharConstant, func(c *ast.Constant) bool { return c.Int == 'é' }},
		{"!void x", ast.VoidConstant, func(c *ast.Constant) bool { return true }},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, ok := parseOne(t, tt.input).(*ast.Constant)
			if !ok {
				t.Fatalf("not a constant")
			}
			if c.Kind != tt.kind || !tt.check(c) {
				t.Errorf("got=%+v, want kind %v", c, tt.kind)
			}
		})
	}
}

func TestNames(t *testing.T) {
	for _, input := range []string{"x", "+", `!name "-"`} {
		if _, ok := parseOne(t, input).(*ast.Dummy); !ok {
			t.Errorf("%s: not a name", input)
		}
	}
}

func TestForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(e ast.Expression) bool
	}{
		{"application", `[f, 1, 2]`, func(e ast.Expression) bool {
			a, ok := e.(*ast.Application)
			return ok && len(a.Args) == 2
		}},
		{"abstraction", `{fn: [x, {y: int}], body: x, exitable: true}`, func(e ast.Expression) bool {
			a, ok := e.(*ast.Abstraction)
			return ok && a.Exitable
		}},
		{"let", `{let: [{x: 1}, {y: 2, type: real}], in: x}`, func(e ast.Expression) bool {
			l, ok := e.(*ast.Let)
			return ok && len(l.Args) == 2
		}},
		{"definition", `{def: f, body: 1}`, func(e ast.Expression) bool {
			d, ok := e.(*ast.Definition)
			return ok && d.Symbol.Name() == "f"
		}},
		{"if without else", `{if: [c, 1]}`, func(e ast.Expression) bool {
			_, ok := e.(*ast.IfThenElse)
			return ok
		}},
		{"and", `{and: [a, b]}`, func(e ast.Expression) bool { _, ok := e.(*ast.And); return ok }},
		{"or", `{or: [a, b]}`, func(e ast.Expression) bool { _, ok := e.(*ast.Or); return ok }},
		{"sequence", `{seq: [a, b, c]}`, func(e ast.Expression) bool { _, ok := e.(*ast.Sequence); return ok }},
		{"loop", `{while: [a, b]}`, func(e ast.Expression) bool { _, ok := e.(*ast.Loop); return ok }},
		{"exit", `{exit: 1}`, func(e ast.Expression) bool { _, ok := e.(*ast.ExitWithValue); return ok }},
		{"assign", `{assign: [x, 1]}`, func(e ast.Expression) bool { _, ok := e.(*ast.DummyAssignment); return ok }},
		{"projection by position", `{proj: [t, 2]}`, func(e ast.Expression) bool {
			p, ok := e.(*ast.TupleProjection)
			return ok && p.Field.Kind == ast.IntConstant && p.Field.Int == 2
		}},
		{"projection by name", `{proj: [t, size]}`, func(e ast.Expression) bool {
			p, ok := e.(*ast.TupleProjection)
			return ok && p.Field.Kind == ast.StringConstant && p.Field.Str == "size"
		}},
		{"bag", `{bag: [1, 1]}`, func(e ast.Expression) bool {
			c, ok := e.(*ast.NewCollection)
			return ok && c.Kind == typesystem.BagKind && len(c.Elems) == 2
		}},
		{"array", `{array: [3, 4], of: real}`, func(e ast.Expression) bool {
			a, ok := e.(*ast.NewArray)
			return ok && len(a.Dims) == 2 && a.ElemType == typesystem.Real
		}},
		{"items", `{items: [1, 2], index: s}`, func(e ast.Expression) bool {
			a, ok := e.(*ast.ArrayExtension)
			return ok && a.Indexable != nil && len(a.Elems) == 2
		}},
		{"either", `{either: [a, b]}`, func(e ast.Expression) bool {
			_, ok := e.(*ast.UndecidedExpression)
			return ok
		}},
		{"ascription", `{as: [x, "set(int)"]}`, func(e ast.Expression) bool {
			c, ok := typesystem.Deref(e.Type()).(*typesystem.TCollection)
			return ok && c.Kind == typesystem.SetKind
		}},
		{"comprehension", `{comp: [+, 0], yield: x, where: [{gen: [x, s]}, [<, x, 3]], in_place: disabled}`, func(e ast.Expression) bool {
			_, ok := e.(*ast.Comprehension)
			return ok
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if e := parseOne(t, tt.input); !tt.check(e) {
				t.Errorf("got=%T", e)
			}
		})
	}
}

func TestCallTag(t *testing.T) {
	if _, ok := parseOne(t, "!call\n- f\n- 1\n").(*ast.Application); !ok {
		t.Errorf("a tagged block list should be one application")
	}
}

func TestDocumentUnits(t *testing.T) {
	exprs, err := New(symbols.NewTables()).ParseDocument([]byte("- 1\n- 2\n---\n[f, x]\n"))
	if err != nil {
		t.Fatal(err)
	}
	// The flow list of the second document is one application.
	if len(exprs) != 3 {
		t.Errorf("got=%d, want=3", len(exprs))
	}
}

func TestRecordShapesDeclareAccessors(t *testing.T) {
	tests := []struct {
		input  string
		fields []string
	}{
		{`{record: {weight: 10, age: 1}}`, []string{"age", "weight"}},
		{`{fn: [{p: "(name: string, id: int)"}], body: p}`, []string{"id", "name"}},
		{`{as: [s, "set((x: real, y: real))"]}`, []string{"x", "y"}},
	}
	for _, tt := range tests {
		tables := symbols.NewTables()
		if _, err := New(tables).ParseDocument([]byte(tt.input)); err != nil {
			t.Fatalf("%s: %s", tt.input, err)
		}
		for i, name := range tt.fields {
			s, ok := tables.Lookup(name)
			if !ok {
				t.Errorf("%s: %s is not declared", tt.input, name)
				continue
			}
			var p *symbols.ProjectionEntry
			for _, e := range s.Entries() {
				if pe, ok := e.(*symbols.ProjectionEntry); ok {
					p = pe
				}
			}
			if p == nil || p.Position != i+1 {
				t.Errorf("%s: %s got=%v, want a projection at %d", tt.input, name, p, i+1)
			}
		}
	}
}

func TestPositionsFromYAML(t *testing.T) {
	e := parseOne(t, "\n- [f,\n    x]\n")
	a := e.(*ast.Application)
	tok := a.Args[0].GetToken()
	if tok.Line != 3 || tok.Column != 5 {
		t.Errorf("got=%d:%d, want=3:5", tok.Line, tok.Column)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown form", `{frob: 1}`},
		{"missing body", `{fn: [x]}`},
		{"empty application", `[]`},
		{"bad arity", `{and: [a]}`},
		{"bad char", `!char ab`},
		{"bad type", `{as: [x, "set(int"]}`},
		{"bad in_place", `{comp: [+, 0], yield: x, in_place: sometimes}`},
		{"duplicate key", `{fn: [x], body: x, body: y}`},
		{"malformed yaml", `[1, 2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(symbols.NewTables()).ParseDocument([]byte(tt.input))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if code := diagnostics.CodeOf(err); code != diagnostics.ErrL001 {
				t.Errorf("got=%q, want=%q", code, diagnostics.ErrL001)
			}
		})
	}
}

func TestParserProcessor(t *testing.T) {
	src := "- {def: sq, body: {fn: [x], body: x}}\n- [sq, 2]\n"
	ctx := pipeline.NewPipelineContext([]byte(src), "doc.yaml", config.Default())
	ctx = (&ParserProcessor{}).Process(ctx)
	if len(ctx.Errors) > 0 {
		t.Fatalf("parse error: %s", ctx.Errors[0])
	}
	names := []string{"sq", "#2"}
	if len(ctx.Units) != len(names) {
		t.Fatalf("got=%d units, want=%d", len(ctx.Units), len(names))
	}
	for i, u := range ctx.Units {
		if u.Name != names[i] {
			t.Errorf("unit %d: got=%s, want=%s", i, u.Name, names[i])
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"int", "int"},
		{"set(real)", "set(real)"},
		{"list(bag(char))", "list(bag(char))"},
		{"array(bool)", "array[int](bool)"},
		{"array[intrange](string)", "array[intrange](string)"},
		{"(int, real)", "(int, real)"},
		{"(b: real, a: int)", "(a: int, b: real)"},
		{"(int, set(char)) -> bool", "(int, set(char)) -> bool"},
		{"() -> int", "(void) -> int"},
		{"(int)", "int"},
		{"()", "void"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseType(tt.input, token.Token{})
			if err != nil {
				t.Fatalf("ParseType: %s", err)
			}
			if got.String() != tt.want {
				t.Errorf("got=%s, want=%s", got, tt.want)
			}
		})
	}
}

func TestParseTypeSharesVariables(t *testing.T) {
	got, err := ParseType("(a, a) -> b", token.Token{})
	if err != nil {
		t.Fatal(err)
	}
	fn := got.(*typesystem.TFunc)
	if fn.Params[0] != fn.Params[1] {
		t.Errorf("the two a's are different variables")
	}
	if fn.Params[0] == fn.ReturnType {
		t.Errorf("a and b are the same variable")
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, input := range []string{"set", "set(int", "(a: int, real)", "int int", "array[int(real)", "#"} {
		_, err := ParseType(input, token.Token{Line: 2, Column: 5})
		if err == nil {
			t.Errorf("%q: expected an error", input)
			continue
		}
		if code := diagnostics.CodeOf(err); code != diagnostics.ErrL001 {
			t.Errorf("%q: got=%q, want=%q", input, code, diagnostics.ErrL001)
		}
	}
}
