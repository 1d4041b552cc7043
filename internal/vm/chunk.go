package vm

import "github.com/funvibe/kernel/internal/bytecode"

// Chunk is the code being generated for one unit, with the set of
// addresses some jump lands on.
type Chunk struct {
	Code bytecode.Code

	targets map[int]bool
}

// NewChunk creates an empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:    make(bytecode.Code, 0, 64),
		targets: make(map[int]bool),
	}
}

// Write appends an instruction, stamped with its source line
func (c *Chunk) Write(in bytecode.Instruction, line int) {
	in.Line = line
	c.Code = append(c.Code, in)
}

// Len returns the address of the next instruction
func (c *Chunk) Len() int {
	return len(c.Code)
}

// Last returns the last instruction written, if any.
func (c *Chunk) Last() (*bytecode.Instruction, bool) {
	if len(c.Code) == 0 {
		return nil, false
	}
	return &c.Code[len(c.Code)-1], true
}

// Drop removes the last instruction.
func (c *Chunk) Drop() {
	c.Code = c.Code[:len(c.Code)-1]
}

// MarkTarget records that a jump lands on address.
func (c *Chunk) MarkTarget(address int) {
	c.targets[address] = true
}

// IsTarget reports whether a jump lands on address.
func (c *Chunk) IsTarget(address int) bool {
	return c.targets[address]
}
