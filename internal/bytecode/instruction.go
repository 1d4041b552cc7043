package bytecode

import (
	"github.com/funvibe/kernel/internal/typesystem"
)

// Code is a compiled instruction array. Addresses are indices into it.
type Code []Instruction

// CodeRef is a defined symbol entry whose code a CALL runs.
type CodeRef interface {
	Name() string
	Code() Code
}

// ScopeInfo describes the scope entered by ENTER or closed over by
// PUSH_CLOSURE.
type ScopeInfo struct {
	// Arity is the number of parameters of each sort, indexed by Sort.Index.
	Arity     [typesystem.NumSorts]int
	VoidArity int
	// Frame is the number of enclosing slots of each sort a closure captures.
	Frame      [typesystem.NumSorts]int
	Exitable   bool
	ParamSorts []typesystem.Sort
	ResultSort typesystem.Sort
	// Address of the body in Code. It is -1 until the body is compiled.
	Address int
	Code    Code
}

// CallInfo describes the arguments an APPLY pops, in declaration order.
type CallInfo struct {
	ArgSorts   []typesystem.Sort
	ResultSort typesystem.Sort
}

// HomInfo parameterizes the homomorphism instructions.
type HomInfo struct {
	// Tally is the element sort of the image collection of a collection
	// homomorphism.
	Tally typesystem.Sort
	// Slices holds one tuple path per slicing: 1-based projection positions,
	// innermost first, followed by the sort of the projected component.
	Slices [][]int
	// Identity and Result are the sorts of the identity operand and of the
	// value left by the instruction.
	Identity typesystem.Sort
	Result   typesystem.Sort
}

// Display tells WRITE and STRCON how to print an int-sorted value.
type Display byte

const (
	DisplayValue Display = iota
	DisplayChar
	DisplayBool
)

// Instruction is a single machine instruction with its operands.
type Instruction struct {
	Op    Opcode
	Int   int64   // literal, local offset, jump address, tuple position
	Real  float64 // literal
	Str   string  // literal
	Scope *ScopeInfo
	Entry CodeRef
	Call  *CallInfo
	Hom   *HomInfo
	Sorts []typesystem.Sort // PUSH_TUPLE component sorts
	// Display holds one entry per printed operand, the first operand first.
	Display []Display
	LCO     bool
	// Line is the source line the instruction was generated for.
	Line int
}

func Simple(op Opcode) Instruction {
	return Instruction{Op: op}
}

func Jump(op Opcode, address int) Instruction {
	return Instruction{Op: op, Int: int64(address)}
}

// IsJump reports whether the instruction carries a code address in Int.
func (in Instruction) IsJump() bool {
	switch in.Op {
	case JUMP, JUMP_ON_FALSE, JUMP_ON_TRUE:
		return true
	}
	return false
}

// Address returns the jump target of a jump instruction.
func (in Instruction) Address() int {
	return int(in.Int)
}

// Relocate returns a copy of a jump instruction with its target moved by delta.
func (in Instruction) Relocate(delta int) Instruction {
	if in.IsJump() {
		in.Int += int64(delta)
	}
	return in
}

// IsPush reports whether the instruction only pushes one value of sort s.
// Such a push can be dropped instead of being popped.
func (in Instruction) IsPush(s typesystem.Sort) bool {
	switch s {
	case typesystem.IntSort:
		switch in.Op {
		case PUSH_TRUE, PUSH_FALSE, PUSH_VALUE_I, PUSH_0_I, PUSH_OFFSET_I:
			return true
		}
	case typesystem.RealSort:
		switch in.Op {
		case PUSH_VALUE_R, PUSH_0_R, PUSH_OFFSET_R:
			return true
		}
	case typesystem.ObjectSort:
		switch in.Op {
		case PUSH_BOXED_TRUE, PUSH_BOXED_FALSE, PUSH_VALUE_O, PUSH_ZERO_I, PUSH_ZERO_R,
			PUSH_EMPTY_STR, PUSH_NULL, PUSH_OFFSET_O, PUSH_SET, PUSH_LIST, PUSH_BAG:
			return true
		}
	}
	return false
}

// IsBoxing reports whether op is one of the four conversions.
func IsBoxing(op Opcode) bool {
	switch op {
	case I_TO_O, R_TO_O, O_TO_I, O_TO_R:
		return true
	}
	return false
}

// BySort selects among the int, real and object variants of an instruction.
// Void selects v.
func BySort(s typesystem.Sort, i, r, o, v Opcode) Opcode {
	switch s {
	case typesystem.IntSort:
		return i
	case typesystem.RealSort:
		return r
	case typesystem.ObjectSort:
		return o
	}
	return v
}

// Return is the RETURN instruction for a body of sort s.
func Return(s typesystem.Sort) Opcode {
	return BySort(s, RETURN_I, RETURN_R, RETURN_O, RETURN_V)
}

// Pop is the POP instruction for sort s. Void has none.
func Pop(s typesystem.Sort) Opcode {
	return BySort(s, POP_I, POP_R, POP_O, NOP)
}

// SortIn returns the sort handled by op within an I/R/O suffixed family,
// given the three members of that family.
func (op Opcode) SortIn(i, r, o Opcode) typesystem.Sort {
	switch op {
	case i:
		return typesystem.IntSort
	case r:
		return typesystem.RealSort
	case o:
		return typesystem.ObjectSort
	}
	return typesystem.VoidSort
}
