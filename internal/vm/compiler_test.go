package vm

import (
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/typesystem"
)

// TestGolden compiles and runs the archives under testdata. An archive
// holds:
//
//	input.yaml  the document
//	opcodes     opcodes the last unit's code must contain, in order
//	absent      opcodes the last unit's code must not contain
//	result      the formatted value of the last unit
//	config      optional kernel.yaml content
//
// An opcode written ENTER+lco only matches an ENTER flagged for last-call
// optimization.
func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no golden files")
	}
	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			if err != nil {
				t.Fatal(err)
			}
			sections := make(map[string]string)
			for _, f := range ar.Files {
				sections[f.Name] = string(f.Data)
			}

			cfg := config.Default()
			if c, ok := sections["config"]; ok {
				if cfg, err = config.ParseConfig([]byte(c), file); err != nil {
					t.Fatal(err)
				}
			}
			ctx := compileDocument(t, sections["input.yaml"], cfg)
			last := ctx.Units[len(ctx.Units)-1]

			if want, ok := sections["opcodes"]; ok {
				checkOpcodes(t, last.Code, strings.Fields(want))
			}
			if absent, ok := sections["absent"]; ok {
				checkAbsent(t, last.Code, strings.Fields(absent))
			}
			if want, ok := sections["result"]; ok {
				v, err := runDocument(t, New(), sections["input.yaml"], cfg)
				if err != nil {
					t.Fatalf("runtime error: %s", err)
				}
				if _, isDef := last.Expr.(*ast.Definition); isDef {
					t.Fatal("the last unit of a golden document must be an expression")
				}
				got := Format(v, last.Expr.CheckedType())
				if got != strings.TrimSpace(want) {
					t.Errorf("got=%s, want=%s", got, strings.TrimSpace(want))
				}
			}
		})
	}
}

// checkOpcodes reports the first of want not found in code, in order.
func checkOpcodes(t *testing.T, code bytecode.Code, want []string) {
	t.Helper()
	i := 0
	for _, in := range code {
		if i < len(want) && matchOpcode(in, want[i]) {
			i++
		}
	}
	if i < len(want) {
		t.Errorf("opcode %s not found in order in:\n%s", want[i], bytecode.Disassemble(code, "unit"))
	}
}

func checkAbsent(t *testing.T, code bytecode.Code, absent []string) {
	t.Helper()
	for _, name := range absent {
		for _, in := range code {
			if matchOpcode(in, name) {
				t.Errorf("opcode %s found in:\n%s", name, bytecode.Disassemble(code, "unit"))
				break
			}
		}
	}
}

func matchOpcode(in bytecode.Instruction, name string) bool {
	if op, ok := strings.CutSuffix(name, "+lco"); ok {
		return in.LCO && in.Op.String() == op
	}
	return in.Op.String() == name
}

func TestCompileDefinitionInstallsCode(t *testing.T) {
	ctx := compileDocument(t, `
- {def: twice, body: {fn: [{x: int}], body: [+, x, x]}}
- [twice, 4]
`, nil)
	def := ctx.Units[0]
	if def.Entry == nil {
		t.Fatal("definition unit has no entry")
	}
	if got := def.Entry.Code(); len(got) == 0 {
		t.Fatal("definition entry has no code")
	}
	if last := def.Code[len(def.Code)-1]; last.Op != bytecode.RETURN_I && last.Op != bytecode.END {
		t.Errorf("got=%s, want a RETURN_I or END at the end", last.Op)
	}
}

func TestSortOf(t *testing.T) {
	ctx := compileDocument(t, `
- [+, 1, 2]
- [+, 1.0, 2.0]
- {list: [1]}
- [write, 1]
`, nil)
	want := []string{"I", "R", "O", "V"}
	for i, u := range ctx.Units {
		if got := SortOf(u.Expr).Suffix(); got != want[i] {
			t.Errorf("unit %d: got=%s, want=%s", i, got, want[i])
		}
	}
}

func TestBoxingCancels(t *testing.T) {
	tests := []struct {
		name string
		push bytecode.Opcode
		gen  func(c *Compiler)
	}{
		{"wrap then unwrap int", bytecode.PUSH_0_I, func(c *Compiler) {
			c.generateWrapper(typesystem.IntSort)
			c.generateUnwrapper(typesystem.IntSort)
		}},
		{"wrap then unwrap real", bytecode.PUSH_0_R, func(c *Compiler) {
			c.generateWrapper(typesystem.RealSort)
			c.generateUnwrapper(typesystem.RealSort)
		}},
		{"unwrap then wrap", bytecode.PUSH_NULL, func(c *Compiler) {
			c.generateUnwrapper(typesystem.IntSort)
			c.generateWrapper(typesystem.IntSort)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompiler(nil)
			c.generate(bytecode.Simple(tt.push))
			tt.gen(c)
			if len(c.chunk.Code) != 1 || c.chunk.Code[0].Op != tt.push {
				t.Errorf("got=%v, want=[%s]", c.chunk.Code, tt.push)
			}
		})
	}
}

func TestBoxingKeptAcrossJumpTarget(t *testing.T) {
	c := NewCompiler(nil)
	c.generate(bytecode.Simple(bytecode.PUSH_0_I))
	c.generateWrapper(typesystem.IntSort)
	c.targetAddress()
	c.generateUnwrapper(typesystem.IntSort)
	if len(c.chunk.Code) != 3 {
		t.Errorf("got=%v, want the boxing and the unboxing kept", c.chunk.Code)
	}
}

func TestStackPop(t *testing.T) {
	c := NewCompiler(nil)
	c.generate(bytecode.Instruction{Op: bytecode.PUSH_VALUE_I, Int: 2})
	c.generateStackPop(typesystem.IntSort)
	if len(c.chunk.Code) != 0 {
		t.Errorf("got=%v, want the push dropped", c.chunk.Code)
	}

	c.generate(bytecode.Simple(bytecode.PUSH_0_R))
	c.generateStackPop(typesystem.IntSort)
	if len(c.chunk.Code) != 2 || c.chunk.Code[1].Op != bytecode.POP_I {
		t.Errorf("got=%v, want [PUSH_0_R POP_I]", c.chunk.Code)
	}
}

func TestStackPopAtJumpTarget(t *testing.T) {
	c := NewCompiler(nil)
	c.generate(bytecode.Instruction{Op: bytecode.PUSH_VALUE_I, Int: 2})
	c.targetAddress()
	c.generateStackPop(typesystem.IntSort)

	code := c.chunk.Code
	if len(code) != 2 {
		t.Fatalf("got=%v, want two instructions", code)
	}
	if code[0].Op != bytecode.JUMP || code[0].Address() != 2 {
		t.Errorf("first got=%v, want=JUMP 2", code[0])
	}
	if code[1].Op != bytecode.POP_I {
		t.Errorf("second got=%s, want=POP_I", code[1].Op)
	}
	if !c.chunk.IsTarget(2) {
		t.Error("the address after the pop is not a jump target")
	}
}

func TestNonInlinableDefinitionIsCalled(t *testing.T) {
	cfg := config.Default()
	zero := 0
	cfg.InlineThreshold = &zero
	ctx := compileDocument(t, `
- {def: inc, body: {fn: [{x: int}], body: [+, x, 1]}}
- {def: use, body: [inc, 41]}
`, cfg)
	var calls bool
	for _, in := range ctx.Units[1].Entry.Code() {
		if in.Op == bytecode.CALL && in.Entry == ctx.Units[0].Entry {
			calls = true
		}
	}
	if !calls {
		t.Errorf("code of use got=%v, want a CALL of inc", ctx.Units[1].Entry.Code())
	}
}
