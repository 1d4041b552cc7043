package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/token"
	"github.com/funvibe/kernel/internal/typesystem"
)

var errNonLocalExit = errors.New("non-local exit")
var errStackOverflow = errors.New("stack overflow")
var errDivisionByZero = errors.New("division by zero")
var errIndexOutOfRange = errors.New("index out of range")
var errNoSuchKey = errors.New("no such key")
var errEmptyCollection = errors.New("empty collection")
var errNotFound = errors.New("element not found")
var errNoCode = errors.New("definition has no code")
var errNotCallable = errors.New("value is not a function")
var errBadOperand = errors.New("bad operand")

// MaxFrameCount bounds the nesting of scopes, calls and applications.
const MaxFrameCount = 4096

// Initial capacity of each operand and environment stack
const InitialStackSize = 256

// checkInterval is the number of instructions between two looks at the
// context.
const checkInterval = 1000

// Machine runs compiled code. It keeps one operand stack and one
// environment stack per runtime sort. A local at offset o is the o-th
// entry of its sort's environment stack counted from the top.
type Machine struct {
	ints  []int64
	reals []float64
	objs  []any

	envI []int64
	envR []float64
	envO []any

	// globals holds the values of the definitions that were evaluated or
	// assigned
	globals map[bytecode.CodeRef]any

	depth     int
	ops       int
	exitValue any

	out io.Writer

	// Context for cancellation
	Context context.Context
}

// New creates a machine writing to standard output.
func New() *Machine {
	m := &Machine{
		globals: make(map[bytecode.CodeRef]any),
		out:     os.Stdout,
	}
	m.reset()
	return m
}

// SetOutput sets the writer receiving the output of write.
func (m *Machine) SetOutput(w io.Writer) {
	m.out = w
}

// SetContext sets the context for cancellation
func (m *Machine) SetContext(ctx context.Context) {
	m.Context = ctx
}

func (m *Machine) reset() {
	m.ints = make([]int64, 0, InitialStackSize)
	m.reals = make([]float64, 0, InitialStackSize)
	m.objs = make([]any, 0, InitialStackSize)
	m.envI = make([]int64, 0, InitialStackSize)
	m.envR = make([]float64, 0, InitialStackSize)
	m.envO = make([]any, 0, InitialStackSize)
	m.depth = 0
	m.ops = 0
	m.exitValue = nil
}

// runtimeError ties err to the source line of in. An error already tied to
// a location is kept as is.
func (m *Machine) runtimeError(in *bytecode.Instruction, err error) error {
	if errors.Is(err, errNonLocalExit) || diagnostics.CodeOf(err) != "" {
		return err
	}
	return diagnostics.Wrap(diagnostics.ErrR001, token.Token{Line: in.Line}, err)
}

// Operand stacks

func (m *Machine) pushInt(v int64)    { m.ints = append(m.ints, v) }
func (m *Machine) pushReal(v float64) { m.reals = append(m.reals, v) }
func (m *Machine) pushObj(v any)      { m.objs = append(m.objs, v) }

func (m *Machine) popInt() int64 {
	v := m.ints[len(m.ints)-1]
	m.ints = m.ints[:len(m.ints)-1]
	return v
}

func (m *Machine) popReal() float64 {
	v := m.reals[len(m.reals)-1]
	m.reals = m.reals[:len(m.reals)-1]
	return v
}

func (m *Machine) popObj() any {
	v := m.objs[len(m.objs)-1]
	m.objs[len(m.objs)-1] = nil
	m.objs = m.objs[:len(m.objs)-1]
	return v
}

// push pushes v onto the stack of sort s, unboxing it as needed.
func (m *Machine) push(s typesystem.Sort, v any) {
	switch s {
	case typesystem.IntSort:
		m.pushInt(toInt(v))
	case typesystem.RealSort:
		m.pushReal(toReal(v))
	case typesystem.ObjectSort:
		m.pushObj(v)
	}
}

// pop pops a value of sort s in boxed form. Void gives nil.
func (m *Machine) pop(s typesystem.Sort) any {
	switch s {
	case typesystem.IntSort:
		return m.popInt()
	case typesystem.RealSort:
		return m.popReal()
	case typesystem.ObjectSort:
		return m.popObj()
	}
	return nil
}

// heights records the operand stack sizes.
type heights [typesystem.NumSorts]int

func (m *Machine) operandHeights() heights {
	return heights{len(m.ints), len(m.reals), len(m.objs)}
}

func (m *Machine) truncateOperands(h heights) {
	m.ints = m.ints[:h[0]]
	m.reals = m.reals[:h[1]]
	clear(m.objs[h[2]:])
	m.objs = m.objs[:h[2]]
}

// Environment stacks

func (m *Machine) bind(s typesystem.Sort, v any) {
	switch s {
	case typesystem.IntSort:
		m.envI = append(m.envI, toInt(v))
	case typesystem.RealSort:
		m.envR = append(m.envR, toReal(v))
	case typesystem.ObjectSort:
		m.envO = append(m.envO, v)
	}
}

func (m *Machine) envHeights() heights {
	return heights{len(m.envI), len(m.envR), len(m.envO)}
}

func (m *Machine) truncateEnv(h heights) {
	m.envI = m.envI[:h[0]]
	m.envR = m.envR[:h[1]]
	clear(m.envO[h[2]:])
	m.envO = m.envO[:h[2]]
}

func (m *Machine) local(s typesystem.Sort, offset int64) (any, error) {
	var n int
	switch s {
	case typesystem.IntSort:
		n = len(m.envI)
	case typesystem.RealSort:
		n = len(m.envR)
	default:
		n = len(m.envO)
	}
	i := n - 1 - int(offset)
	if offset < 0 || i < 0 {
		return nil, fmt.Errorf("%w: local %s%d outside the environment", errBadOperand, s.Suffix(), offset)
	}
	switch s {
	case typesystem.IntSort:
		return m.envI[i], nil
	case typesystem.RealSort:
		return m.envR[i], nil
	}
	return m.envO[i], nil
}

func (m *Machine) setLocal(s typesystem.Sort, offset int64, v any) error {
	var n int
	switch s {
	case typesystem.IntSort:
		n = len(m.envI)
	case typesystem.RealSort:
		n = len(m.envR)
	default:
		n = len(m.envO)
	}
	i := n - 1 - int(offset)
	if offset < 0 || i < 0 {
		return fmt.Errorf("%w: local %s%d outside the environment", errBadOperand, s.Suffix(), offset)
	}
	switch s {
	case typesystem.IntSort:
		m.envI[i] = toInt(v)
	case typesystem.RealSort:
		m.envR[i] = toReal(v)
	default:
		m.envO[i] = v
	}
	return nil
}

func (m *Machine) enterFrame() error {
	m.depth++
	if m.depth > MaxFrameCount {
		return errStackOverflow
	}
	return nil
}

func (m *Machine) leaveFrame() {
	m.depth--
}

// checkContext reports the cancellation of the context, looking at it
// every checkInterval instructions.
func (m *Machine) checkContext() error {
	m.ops++
	if m.ops < checkInterval {
		return nil
	}
	m.ops = 0
	if m.Context != nil {
		select {
		case <-m.Context.Done():
			return m.Context.Err()
		default:
		}
	}
	return nil
}
