package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/token"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Run executes compiled top-level code and returns the value it leaves,
// boxed, given the sort s of the compiled expression. Values of evaluated
// and assigned definitions persist across runs.
func (m *Machine) Run(code bytecode.Code, s typesystem.Sort) (any, error) {
	m.reset()
	if err := m.run(code, 0); err != nil {
		if errors.Is(err, errNonLocalExit) {
			return nil, diagnostics.NewError(diagnostics.ErrR001, token.Token{},
				"exit outside of an exitable function")
		}
		return nil, err
	}
	if !m.hasOperand(s) {
		return nil, fmt.Errorf("%w: no %s result on the stack", errBadOperand, s.Suffix())
	}
	return m.pop(s), nil
}

// Apply applies a function value returned by Run to boxed arguments.
func (m *Machine) Apply(f any, args ...any) (any, error) {
	r, err := m.apply(f, args)
	if errors.Is(err, errNonLocalExit) {
		return nil, diagnostics.NewError(diagnostics.ErrR001, token.Token{},
			"exit outside of an exitable function")
	}
	return r, err
}

// Global returns the value a definition was evaluated to or assigned, if
// any.
func (m *Machine) Global(ref bytecode.CodeRef) (any, bool) {
	v, ok := m.globals[ref]
	return v, ok
}

func (m *Machine) hasOperand(s typesystem.Sort) bool {
	switch s {
	case typesystem.IntSort:
		return len(m.ints) > 0
	case typesystem.RealSort:
		return len(m.reals) > 0
	case typesystem.ObjectSort:
		return len(m.objs) > 0
	}
	return true
}

