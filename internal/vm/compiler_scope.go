package vm

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/typesystem"
)

// paramSort is the sort a parameter is bound with, VOID for a void one.
func paramSort(p *ast.Parameter) typesystem.Sort {
	t := p.CheckedType()
	if t == nil {
		t = p.Type()
	}
	return typesystem.BoxSortOf(t)
}

// newScope describes s and queues its body.
func (c *Compiler) newScope(s *ast.Scope) *bytecode.ScopeInfo {
	info := &bytecode.ScopeInfo{
		Arity:      s.Arity,
		ParamSorts: make([]typesystem.Sort, len(s.Params)),
		ResultSort: SortOf(s.Body),
		Address:    -1,
	}
	for i, p := range s.Params {
		info.ParamSorts[i] = paramSort(p)
		if info.ParamSorts[i] == typesystem.VoidSort {
			info.VoidArity++
		}
	}
	c.scopes = append(c.scopes, info)
	c.queue = append(c.queue, pendingScope{info: info, body: s.Body})
	return info
}

// compileLet pushes the arguments, the first one last, and enters the
// scope.
func (c *Compiler) compileLet(n *ast.Let) error {
	s := n.Scope()
	info := c.newScope(s)
	for i := len(n.Args) - 1; i >= 0; i-- {
		if err := c.compileAs(n.Args[i], info.ParamSorts[i]); err != nil {
			return err
		}
	}
	c.generate(bytecode.Instruction{Op: bytecode.ENTER, Scope: info})
	c.adapt(info.ResultSort, SortOf(n))
	return nil
}

// compileScope pushes a scope that runs over the environment it is
// applied in. Only homomorphisms apply such scopes.
func (c *Compiler) compileScope(s *ast.Scope) error {
	info := c.newScope(s)
	c.generate(bytecode.Instruction{Op: bytecode.PUSH_SCOPE, Scope: info})
	return nil
}

func (c *Compiler) compileAbstraction(a *ast.Abstraction) error {
	info := c.newScope(&a.Scope)
	info.Frame = a.FrameSize
	info.Exitable = a.Exitable
	c.generate(bytecode.Instruction{Op: bytecode.PUSH_CLOSURE, Scope: info})
	return nil
}

func (c *Compiler) compileLocal(l *ast.Local) error {
	s := paramSort(l.Param)
	if s == typesystem.VoidSort {
		return nil
	}
	op := bytecode.BySort(s, bytecode.PUSH_OFFSET_I, bytecode.PUSH_OFFSET_R, bytecode.PUSH_OFFSET_O, bytecode.NOP)
	c.generate(bytecode.Instruction{Op: op, Int: int64(l.Offset)})
	return nil
}
