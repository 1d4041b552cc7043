package vm

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

func (c *Compiler) compileIfThenElse(n *ast.IfThenElse) error {
	s := SortOf(n)
	if err := c.compileAs(n.Condition, typesystem.IntSort); err != nil {
		return err
	}
	elseJump := c.emitJump(bytecode.JUMP_ON_FALSE)
	if err := c.compileAs(n.Then, s); err != nil {
		return err
	}
	endJump := c.emitJump(bytecode.JUMP)
	c.patchJump(elseJump)
	if err := c.compileAs(n.Else, s); err != nil {
		return err
	}
	c.patchJump(endJump)
	return nil
}

// compileConnective evaluates the right operand only when the left one
// does not decide the result.
//
//	and: l; JOF F; r; JUMP E; F: PUSH_FALSE; E:
//	or:  l; JOT T; r; JUMP E; T: PUSH_TRUE;  E:
func (c *Compiler) compileConnective(isAnd bool, l, r ast.Expression) error {
	if err := c.compileAs(l, typesystem.IntSort); err != nil {
		return err
	}
	short := bytecode.JUMP_ON_TRUE
	if isAnd {
		short = bytecode.JUMP_ON_FALSE
	}
	shortJump := c.emitJump(short)
	if err := c.compileAs(r, typesystem.IntSort); err != nil {
		return err
	}
	endJump := c.emitJump(bytecode.JUMP)
	c.patchJump(shortJump)
	if isAnd {
		c.generate(bytecode.Simple(bytecode.PUSH_FALSE))
	} else {
		c.generate(bytecode.Simple(bytecode.PUSH_TRUE))
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) compileSequence(n *ast.Sequence) error {
	last := len(n.Exprs) - 1
	for _, e := range n.Exprs[:last] {
		if err := c.compileAs(e, typesystem.VoidSort); err != nil {
			return err
		}
	}
	return c.compileExpression(n.Exprs[last])
}

func (c *Compiler) compileLoop(n *ast.Loop) error {
	start := c.targetAddress()
	if err := c.compileAs(n.Condition, typesystem.IntSort); err != nil {
		return err
	}
	exitJump := c.emitJump(bytecode.JUMP_ON_FALSE)
	if err := c.compileAs(n.Body, typesystem.VoidSort); err != nil {
		return err
	}
	c.generate(bytecode.Jump(bytecode.JUMP, start))
	c.patchJump(exitJump)
	return nil
}

// compileExit leaves the innermost exitable closure with the value.
func (c *Compiler) compileExit(n *ast.ExitWithValue) error {
	s := SortOf(n.Value)
	if err := c.compileExpression(n.Value); err != nil {
		return err
	}
	c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.NL_RETURN_I, bytecode.NL_RETURN_R, bytecode.NL_RETURN_O, bytecode.NL_RETURN_V)))
	return nil
}

func (c *Compiler) compileLocalAssignment(n *ast.LocalAssignment) error {
	s := paramSort(n.Target.Param)
	if err := c.compileAs(n.Value, s); err != nil {
		return err
	}
	if s != typesystem.VoidSort {
		op := bytecode.BySort(s, bytecode.SET_OFFSET_I, bytecode.SET_OFFSET_R, bytecode.SET_OFFSET_O, bytecode.NOP)
		c.generate(bytecode.Instruction{Op: op, Int: int64(n.Target.Offset)})
	}
	c.adapt(s, SortOf(n))
	return nil
}

// compileGlobalAssignment stores into a scalar definition. The definition
// can no longer be inlined since its value changes.
func (c *Compiler) compileGlobalAssignment(n *ast.GlobalAssignment) error {
	entry, ok := n.Target.Entry.(*symbols.DefinedEntry)
	if !ok {
		ast.Violation(n, "assignment to %s, which is not a definition", n.Target.Name())
	}
	entry.SetInlinable(false)
	s := typesystem.SortOf(entry.Type())
	if err := c.compileAs(n.Value, s); err != nil {
		return err
	}
	if s != typesystem.VoidSort {
		op := bytecode.BySort(s, bytecode.SET_GLOBAL_I, bytecode.SET_GLOBAL_R, bytecode.SET_GLOBAL_O, bytecode.NOP)
		c.generate(bytecode.Instruction{Op: op, Entry: entry})
	}
	c.adapt(s, SortOf(n))
	return nil
}
