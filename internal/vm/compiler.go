package vm

import (
	"fmt"
	"io"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Compiler translates analyzed expressions into machine code.
//
// The code of a unit is its straight-line part, ended by END, followed by
// the bodies of the scopes it enters or closes over. Scope bodies are
// queued while the straight-line part is generated and appended after it.
type Compiler struct {
	cfg *config.Config
	out io.Writer

	chunk *Chunk
	line  int

	// queue holds the scope bodies waiting to be generated
	queue []pendingScope
	// scopes lists every scope created for the unit, so that the final code
	// can be attached to them
	scopes []*bytecode.ScopeInfo

	// entry is the definition being compiled, nil for a plain expression
	entry *symbols.DefinedEntry
}

type pendingScope struct {
	info *bytecode.ScopeInfo
	body ast.Expression
}

// NewCompiler creates a compiler. A nil cfg means config.Default().
func NewCompiler(cfg *config.Config) *Compiler {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Compiler{cfg: cfg, out: io.Discard}
	c.Reset()
	return c
}

// SetOutput sets the writer receiving the listings dumped with show_code.
func (c *Compiler) SetOutput(w io.Writer) {
	c.out = w
}

// Reset discards the code generated so far.
func (c *Compiler) Reset() {
	c.chunk = NewChunk()
	c.queue = nil
	c.scopes = nil
	c.entry = nil
	c.line = 0
}

// Compile generates the code of e, an analyzed top-level expression or
// definition. The code of a definition is installed in its entry, which
// releases the entries that were waiting on it.
func (c *Compiler) Compile(e ast.Expression) (bytecode.Code, error) {
	c.Reset()
	name := "<expression>"
	if d, ok := e.(*ast.Definition); ok {
		name = d.Symbol.Name()
		if d.Entry == nil {
			ast.Violation(d, "definition without a code entry")
		}
		c.entry = d.Entry
		if err := c.compileAs(d.Body, typesystem.SortOf(d.Entry.Type())); err != nil {
			return nil, err
		}
	} else if err := c.compileExpression(e); err != nil {
		return nil, err
	}
	c.generate(bytecode.Simple(bytecode.END))
	if err := c.backpatch(); err != nil {
		return nil, err
	}
	code := c.extract()
	if c.entry != nil {
		c.entry.SetCode(code)
		c.entry.ReleaseUnsafeEntries()
	}
	if c.cfg.ShowCode {
		fmt.Fprint(c.out, bytecode.Disassemble(code, name))
	}
	return code, nil
}

// backpatch generates the queued scope bodies. Generating a body may queue
// further scopes.
func (c *Compiler) backpatch() error {
	for len(c.queue) > 0 {
		p := c.queue[0]
		c.queue = c.queue[1:]
		p.info.Address = c.chunk.Len()
		if err := c.compileAs(p.body, p.info.ResultSort); err != nil {
			return err
		}
		c.generateReturn(p.info)
	}
	return nil
}

// generateReturn ends a scope body. With last-call optimization a body
// ending by entering another scope jumps into it instead, and the return
// of that scope ends both.
func (c *Compiler) generateReturn(info *bytecode.ScopeInfo) {
	if c.cfg.LCO && !info.Exitable && !c.chunk.IsTarget(c.chunk.Len()) {
		if last, ok := c.chunk.Last(); ok && last.Op == bytecode.ENTER {
			last.LCO = true
			c.generate(bytecode.Simple(bytecode.END))
			return
		}
	}
	c.generate(bytecode.Simple(bytecode.Return(info.ResultSort)))
}

func (c *Compiler) extract() bytecode.Code {
	code := c.chunk.Code
	for _, s := range c.scopes {
		if s.Code == nil {
			s.Code = code
		}
	}
	return code
}

// SortOf is the runtime sort of the value an analyzed expression leaves.
func SortOf(e ast.Expression) typesystem.Sort {
	t := e.CheckedType()
	if t == nil {
		t = e.Type()
	}
	return typesystem.BoxSortOf(t)
}

// generate appends an instruction. A set instruction whose element operand
// was just boxed or unboxed is replaced by the variant taking the operand
// as it was.
func (c *Compiler) generate(in bytecode.Instruction) {
	if last, ok := c.chunk.Last(); ok && !c.chunk.IsTarget(c.chunk.Len()) {
		if op, ok := setPeephole[[2]bytecode.Opcode{last.Op, in.Op}]; ok {
			c.chunk.Drop()
			in.Op = op
		}
	}
	c.chunk.Write(in, c.line)
}

var setPeephole = func() map[[2]bytecode.Opcode]bytecode.Opcode {
	m := make(map[[2]bytecode.Opcode]bytecode.Opcode)
	families := [][3]bytecode.Opcode{
		{bytecode.SET_ADD_I, bytecode.SET_ADD_R, bytecode.SET_ADD_O},
		{bytecode.SET_RMV_I, bytecode.SET_RMV_R, bytecode.SET_RMV_O},
		{bytecode.BELONGS_I, bytecode.BELONGS_R, bytecode.BELONGS_O},
	}
	for _, f := range families {
		m[[2]bytecode.Opcode{bytecode.I_TO_O, f[2]}] = f[0]
		m[[2]bytecode.Opcode{bytecode.R_TO_O, f[2]}] = f[1]
		m[[2]bytecode.Opcode{bytecode.O_TO_I, f[0]}] = f[2]
		m[[2]bytecode.Opcode{bytecode.O_TO_R, f[1]}] = f[2]
	}
	return m
}()

// targetAddress marks the next address as a jump target and returns it.
func (c *Compiler) targetAddress() int {
	addr := c.chunk.Len()
	c.chunk.MarkTarget(addr)
	return addr
}

// emitJump emits a jump whose address is patched later.
func (c *Compiler) emitJump(op bytecode.Opcode) int {
	c.generate(bytecode.Jump(op, -1))
	return c.chunk.Len() - 1
}

// patchJump points the jump at offset to the next address.
func (c *Compiler) patchJump(offset int) {
	c.chunk.Code[offset].Int = int64(c.targetAddress())
}

// inline copies the straight-line part of code, relocating its jumps.
func (c *Compiler) inline(code bytecode.Code) {
	base := c.chunk.Len()
	for _, in := range code {
		if in.Op == bytecode.END {
			break
		}
		if in.IsJump() {
			in = in.Relocate(base)
			c.chunk.MarkTarget(in.Address())
		}
		c.chunk.Write(in, c.line)
	}
}

// generateStackPop discards the value of sort s on top of the stack. A
// value pushed by the previous instruction is not pushed at all. When a
// jump lands on the pop, the push becomes a jump over it instead.
func (c *Compiler) generateStackPop(s typesystem.Sort) {
	if s == typesystem.VoidSort {
		return
	}
	last, ok := c.chunk.Last()
	if !ok || !last.IsPush(s) {
		c.generate(bytecode.Simple(bytecode.Pop(s)))
		return
	}
	if !c.chunk.IsTarget(c.chunk.Len()) {
		c.chunk.Drop()
		return
	}
	c.generate(bytecode.Simple(bytecode.Pop(s)))
	push := &c.chunk.Code[c.chunk.Len()-2]
	jump := bytecode.Jump(bytecode.JUMP, c.targetAddress())
	jump.Line = push.Line
	*push = jump
}

// generateWrapper boxes the int or real on top of the stack, or cancels
// the unboxing just generated.
func (c *Compiler) generateWrapper(s typesystem.Sort) {
	unbox := bytecode.BySort(s, bytecode.O_TO_I, bytecode.O_TO_R, bytecode.NOP, bytecode.NOP)
	if last, ok := c.chunk.Last(); ok && last.Op == unbox && !c.chunk.IsTarget(c.chunk.Len()) {
		c.chunk.Drop()
		return
	}
	c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.I_TO_O, bytecode.R_TO_O, bytecode.NOP, bytecode.NOP)))
}

// generateUnwrapper unboxes the object on top of the stack into sort s, or
// cancels the boxing just generated.
func (c *Compiler) generateUnwrapper(s typesystem.Sort) {
	box := bytecode.BySort(s, bytecode.I_TO_O, bytecode.R_TO_O, bytecode.NOP, bytecode.NOP)
	if last, ok := c.chunk.Last(); ok && last.Op == box && !c.chunk.IsTarget(c.chunk.Len()) {
		c.chunk.Drop()
		return
	}
	c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.O_TO_I, bytecode.O_TO_R, bytecode.NOP, bytecode.NOP)))
}

// generateNull pushes the default value of sort s.
func (c *Compiler) generateNull(s typesystem.Sort) {
	switch s {
	case typesystem.IntSort:
		c.generate(bytecode.Simple(bytecode.PUSH_0_I))
	case typesystem.RealSort:
		c.generate(bytecode.Simple(bytecode.PUSH_0_R))
	case typesystem.ObjectSort:
		c.generate(bytecode.Simple(bytecode.PUSH_NULL))
	}
}

// adapt converts the value of sort from on top of the stack to sort to.
func (c *Compiler) adapt(from, to typesystem.Sort) {
	switch {
	case from == to:
	case to == typesystem.VoidSort:
		c.generateStackPop(from)
	case from == typesystem.VoidSort:
		c.generateNull(to)
	case from == typesystem.ObjectSort:
		c.generateUnwrapper(to)
	case to == typesystem.ObjectSort:
		c.generateWrapper(from)
	case from == typesystem.IntSort && to == typesystem.RealSort:
		c.generate(bytecode.Simple(bytecode.I_TO_R))
	default:
		panic(fmt.Sprintf("vm: no conversion from %s to %s", from, to))
	}
}

// compileAs compiles e and converts its value to sort want. A non-local
// exit leaves nothing to convert.
func (c *Compiler) compileAs(e ast.Expression, want typesystem.Sort) error {
	if err := c.compileExpression(e); err != nil {
		return err
	}
	if _, ok := e.(*ast.ExitWithValue); !ok {
		c.adapt(SortOf(e), want)
	}
	return nil
}

func (c *Compiler) compileExpression(e ast.Expression) error {
	if tok := e.GetToken(); tok.Line > 0 {
		c.line = tok.Line
	}

	switch n := e.(type) {
	case *ast.Constant:
		return c.compileConstant(n)
	case *ast.Local:
		return c.compileLocal(n)
	case *ast.Global:
		return c.compileGlobal(n)
	case *ast.Let:
		return c.compileLet(n)
	case *ast.Application:
		return c.compileApplication(n)
	case *ast.Abstraction:
		return c.compileAbstraction(n)
	case *ast.Scope:
		return c.compileScope(n)
	case *ast.UndecidedExpression:
		d := n.Decided()
		if d == nil {
			ast.Violation(n, "compiling an undecided expression")
		}
		return c.compileExpression(d)

	case *ast.IfThenElse:
		return c.compileIfThenElse(n)
	case *ast.And:
		return c.compileConnective(true, n.Left, n.Right)
	case *ast.Or:
		return c.compileConnective(false, n.Left, n.Right)
	case *ast.Sequence:
		return c.compileSequence(n)
	case *ast.Loop:
		return c.compileLoop(n)
	case *ast.ExitWithValue:
		return c.compileExit(n)
	case *ast.LocalAssignment:
		return c.compileLocalAssignment(n)
	case *ast.GlobalAssignment:
		return c.compileGlobalAssignment(n)

	case *ast.Tuple:
		return c.compileTuple(n.Elems)
	case *ast.NamedTuple:
		return c.compileTuple(n.Elems)
	case *ast.TupleProjection:
		return c.compileTupleProjection(n)
	case *ast.NewCollection:
		return c.compileNewCollection(n)
	case *ast.NewArray:
		return c.compileNewArray(n)
	case *ast.ArrayExtension:
		return c.compileArrayExtension(n)
	case *ast.ArraySlot:
		return c.compileArraySlot(n)
	case *ast.ArraySlotUpdate:
		return c.compileArraySlotUpdate(n)

	case *ast.FilterHomomorphism:
		return c.compileHomomorphism(&n.Homomorphism, n.Filter, true)
	case *ast.Homomorphism:
		return c.compileHomomorphism(n, nil, false)
	}

	ast.Violation(e, "no code for %T", e)
	return nil
}
