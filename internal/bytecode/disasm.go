package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable listing of code
func Disassemble(code Code, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	for addr, in := range code {
		sb.WriteString(fmt.Sprintf("%04d %s\n", addr, in))
	}

	return sb.String()
}

// String renders the opcode followed by its operands.
func (in Instruction) String() string {
	op := in.Op.String()

	switch in.Op {
	case JUMP, JUMP_ON_FALSE, JUMP_ON_TRUE:
		return fmt.Sprintf("%s %04d", op, in.Int)

	case PUSH_VALUE_I, PUSH_OFFSET_I, PUSH_OFFSET_R, PUSH_OFFSET_O,
		SET_OFFSET_I, SET_OFFSET_R, SET_OFFSET_O,
		GET_TUPLE_I, GET_TUPLE_R, GET_TUPLE_O:
		return fmt.Sprintf("%s %d", op, in.Int)

	case PUSH_VALUE_R:
		return op + " " + strconv.FormatFloat(in.Real, 'g', -1, 64)

	case PUSH_VALUE_O:
		return op + " " + strconv.Quote(in.Str)

	case ENTER, PUSH_CLOSURE, PUSH_SCOPE:
		return op + " " + scopeOperands(in)

	case APPLY:
		if in.Call == nil {
			return op
		}
		return fmt.Sprintf("%s %s -> %s", op, sortList(in.Call.ArgSorts), in.Call.ResultSort.Suffix())

	case CALL, SET_GLOBAL_I, SET_GLOBAL_R, SET_GLOBAL_O:
		if in.Entry == nil {
			return op
		}
		return op + " " + in.Entry.Name()

	case PUSH_TUPLE:
		return op + " " + sortList(in.Sorts)
	}

	if in.Hom != nil {
		var parts []string
		if in.Hom.Tally != 0 {
			parts = append(parts, "tally="+in.Hom.Tally.Suffix())
		}
		parts = append(parts, "id="+in.Hom.Identity.Suffix(), "result="+in.Hom.Result.Suffix())
		for _, s := range in.Hom.Slices {
			parts = append(parts, "slice="+intList(s))
		}
		if len(parts) > 0 {
			return op + " " + strings.Join(parts, " ")
		}
	}

	return op
}

func scopeOperands(in Instruction) string {
	s := in.Scope
	if s == nil {
		return "?"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("@%04d arity=%d/%d/%d", s.Address, s.Arity[0], s.Arity[1], s.Arity[2]))
	if in.Op == PUSH_CLOSURE {
		sb.WriteString(fmt.Sprintf(" frame=%d/%d/%d", s.Frame[0], s.Frame[1], s.Frame[2]))
	}
	if s.Exitable {
		sb.WriteString(" exitable")
	}
	if in.LCO {
		sb.WriteString(" lco")
	}
	return sb.String()
}

func sortList[S fmt.Stringer](sorts []S) string {
	parts := make([]string, len(sorts))
	for i, s := range sorts {
		parts[i] = s.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func intList(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
