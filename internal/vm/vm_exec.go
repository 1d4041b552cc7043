package vm

import (
	"fmt"
	"math"

	"github.com/funvibe/kernel/internal/bytecode"
)

// run executes code from pc until END or a RETURN. The value of a scope
// body is left on its operand stack. A non-local exit stores its value in
// m.exitValue and unwinds with errNonLocalExit.
func (m *Machine) run(code bytecode.Code, pc int) error {
	for {
		if pc < 0 || pc >= len(code) {
			return fmt.Errorf("%w: address %d outside the code", errBadOperand, pc)
		}
		if err := m.checkContext(); err != nil {
			return err
		}
		in := &code[pc]
		pc++

		switch in.Op {
		case bytecode.NOP:

		case bytecode.END, bytecode.RETURN_I, bytecode.RETURN_R, bytecode.RETURN_O, bytecode.RETURN_V:
			return nil

		case bytecode.NL_RETURN_I, bytecode.NL_RETURN_R, bytecode.NL_RETURN_O, bytecode.NL_RETURN_V:
			m.exitValue = m.pop(in.Op.SortIn(bytecode.NL_RETURN_I, bytecode.NL_RETURN_R, bytecode.NL_RETURN_O))
			return errNonLocalExit

		case bytecode.JUMP:
			pc = in.Address()
		case bytecode.JUMP_ON_FALSE:
			if m.popInt() == 0 {
				pc = in.Address()
			}
		case bytecode.JUMP_ON_TRUE:
			if m.popInt() != 0 {
				pc = in.Address()
			}

		case bytecode.ENTER:
			if in.LCO {
				// The scope ends the current body: run it in place. The
				// caller of the current body drops its arguments.
				m.bindArgs(in.Scope)
				code, pc = in.Scope.Code, in.Scope.Address
				continue
			}
			if err := m.enter(in.Scope); err != nil {
				return m.runtimeError(in, err)
			}

		case bytecode.PUSH_CLOSURE:
			m.pushObj(m.capture(in.Scope))
		case bytecode.PUSH_SCOPE:
			m.pushObj(&Closure{Scope: in.Scope, live: true})

		case bytecode.APPLY:
			if err := m.applyInstruction(in.Call); err != nil {
				return m.runtimeError(in, err)
			}
		case bytecode.CALL:
			if err := m.call(in.Entry); err != nil {
				return m.runtimeError(in, err)
			}
		case bytecode.SET_GLOBAL_I:
			m.globals[in.Entry] = m.ints[len(m.ints)-1]
		case bytecode.SET_GLOBAL_R:
			m.globals[in.Entry] = m.reals[len(m.reals)-1]
		case bytecode.SET_GLOBAL_O:
			m.globals[in.Entry] = m.objs[len(m.objs)-1]

		// Constants
		case bytecode.PUSH_TRUE:
			m.pushInt(1)
		case bytecode.PUSH_FALSE, bytecode.PUSH_0_I:
			m.pushInt(0)
		case bytecode.PUSH_BOXED_TRUE:
			m.pushObj(int64(1))
		case bytecode.PUSH_BOXED_FALSE, bytecode.PUSH_ZERO_I:
			m.pushObj(int64(0))
		case bytecode.PUSH_VALUE_I:
			m.pushInt(in.Int)
		case bytecode.PUSH_VALUE_R:
			m.pushReal(in.Real)
		case bytecode.PUSH_VALUE_O:
			m.pushObj(in.Str)
		case bytecode.PUSH_0_R:
			m.pushReal(0)
		case bytecode.PUSH_ZERO_R:
			m.pushObj(float64(0))
		case bytecode.PUSH_EMPTY_STR:
			m.pushObj("")
		case bytecode.PUSH_NULL:
			m.pushObj(nil)

		// Stack and locals
		case bytecode.POP_I:
			m.popInt()
		case bytecode.POP_R:
			m.popReal()
		case bytecode.POP_O:
			m.popObj()
		case bytecode.PUSH_OFFSET_I, bytecode.PUSH_OFFSET_R, bytecode.PUSH_OFFSET_O:
			s := in.Op.SortIn(bytecode.PUSH_OFFSET_I, bytecode.PUSH_OFFSET_R, bytecode.PUSH_OFFSET_O)
			v, err := m.local(s, in.Int)
			if err != nil {
				return m.runtimeError(in, err)
			}
			m.push(s, v)
		case bytecode.SET_OFFSET_I, bytecode.SET_OFFSET_R, bytecode.SET_OFFSET_O:
			s := in.Op.SortIn(bytecode.SET_OFFSET_I, bytecode.SET_OFFSET_R, bytecode.SET_OFFSET_O)
			v := m.pop(s)
			m.push(s, v)
			if err := m.setLocal(s, in.Int, v); err != nil {
				return m.runtimeError(in, err)
			}

		// Boxing
		case bytecode.I_TO_O:
			m.pushObj(m.popInt())
		case bytecode.R_TO_O:
			m.pushObj(m.popReal())
		case bytecode.O_TO_I:
			m.pushInt(toInt(m.popObj()))
		case bytecode.O_TO_R:
			m.pushReal(toReal(m.popObj()))
		case bytecode.I_TO_R:
			m.pushReal(float64(m.popInt()))

		// Arithmetic. The first operand is on top.
		case bytecode.ADD_II, bytecode.SUB_II, bytecode.MUL_II, bytecode.DIV_II, bytecode.MOD_II,
			bytecode.MAX_II, bytecode.MIN_II:
			a, b := m.popInt(), m.popInt()
			r, err := intArith(in.Op, a, b)
			if err != nil {
				return m.runtimeError(in, err)
			}
			m.pushInt(r)
		case bytecode.MINUS_I:
			m.pushInt(-m.popInt())
		case bytecode.ADD_RR, bytecode.SUB_RR, bytecode.MUL_RR, bytecode.DIV_RR, bytecode.MAX_RR, bytecode.MIN_RR:
			a, b := m.popReal(), m.popReal()
			m.pushReal(realArith(in.Op, a, b))
		case bytecode.MINUS_R:
			m.pushReal(-m.popReal())

		// Comparison
		case bytecode.LT_II, bytecode.LTE_II, bytecode.GT_II, bytecode.GTE_II, bytecode.EQU_II, bytecode.NEQ_II:
			a, b := m.popInt(), m.popInt()
			m.pushInt(boolInt(compareInts(in.Op, a, b)))
		case bytecode.LT_RR, bytecode.LTE_RR, bytecode.GT_RR, bytecode.GTE_RR, bytecode.EQU_RR, bytecode.NEQ_RR:
			a, b := m.popReal(), m.popReal()
			m.pushInt(boolInt(compareReals(in.Op, a, b)))
		case bytecode.EQU_OO:
			a, b := m.popObj(), m.popObj()
			m.pushInt(boolInt(equalValues(a, b)))
		case bytecode.NEQ_OO:
			a, b := m.popObj(), m.popObj()
			m.pushInt(boolInt(!equalValues(a, b)))
		case bytecode.NOT:
			m.pushInt(boolInt(m.popInt() == 0))

		case bytecode.STRCON:
			a, b := m.popObj(), m.popObj()
			m.pushObj(display(a, displayAt(in, 0)) + display(b, displayAt(in, 1)))
		case bytecode.WRITE_I, bytecode.WRITE_R, bytecode.WRITE_O:
			v := m.pop(in.Op.SortIn(bytecode.WRITE_I, bytecode.WRITE_R, bytecode.WRITE_O))
			fmt.Fprint(m.out, display(v, displayAt(in, 0)))

		default:
			var err error
			if shape, ok := homShapes[in.Op]; ok {
				err = m.applyHomomorphism(in, shape)
			} else {
				err = m.execData(in)
			}
			if err != nil {
				return m.runtimeError(in, err)
			}
		}
	}
}

func intArith(op bytecode.Opcode, a, b int64) (int64, error) {
	switch op {
	case bytecode.ADD_II:
		return a + b, nil
	case bytecode.SUB_II:
		return a - b, nil
	case bytecode.MUL_II:
		return a * b, nil
	case bytecode.DIV_II:
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a / b, nil
	case bytecode.MOD_II:
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a % b, nil
	case bytecode.MAX_II:
		return max(a, b), nil
	case bytecode.MIN_II:
		return min(a, b), nil
	}
	return 0, fmt.Errorf("%w: %s", errBadOperand, op)
}

func realArith(op bytecode.Opcode, a, b float64) float64 {
	switch op {
	case bytecode.ADD_RR:
		return a + b
	case bytecode.SUB_RR:
		return a - b
	case bytecode.MUL_RR:
		return a * b
	case bytecode.DIV_RR:
		return a / b
	case bytecode.MAX_RR:
		return math.Max(a, b)
	case bytecode.MIN_RR:
		return math.Min(a, b)
	}
	return math.NaN()
}

func compareInts(op bytecode.Opcode, a, b int64) bool {
	switch op {
	case bytecode.LT_II:
		return a < b
	case bytecode.LTE_II:
		return a <= b
	case bytecode.GT_II:
		return a > b
	case bytecode.GTE_II:
		return a >= b
	case bytecode.EQU_II:
		return a == b
	}
	return a != b
}

func compareReals(op bytecode.Opcode, a, b float64) bool {
	switch op {
	case bytecode.LT_RR:
		return a < b
	case bytecode.LTE_RR:
		return a <= b
	case bytecode.GT_RR:
		return a > b
	case bytecode.GTE_RR:
		return a >= b
	case bytecode.EQU_RR:
		return a == b
	}
	return a != b
}
