package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

// bindArgs moves the arguments of a scope from the operand stacks to the
// environment, the first argument first.
func (m *Machine) bindArgs(s *bytecode.ScopeInfo) {
	for _, ps := range s.ParamSorts {
		m.bind(ps, m.pop(ps))
	}
}

// enter runs a scope over the current environment extended by its
// arguments.
func (m *Machine) enter(s *bytecode.ScopeInfo) error {
	if err := m.enterFrame(); err != nil {
		return err
	}
	defer m.leaveFrame()

	saved := m.envHeights()
	m.bindArgs(s)
	err := m.run(s.Code, s.Address)
	m.truncateEnv(saved)
	return err
}

// capture closes s over the top Frame entries of each environment stack.
func (m *Machine) capture(s *bytecode.ScopeInfo) *Closure {
	c := &Closure{Scope: s}
	c.ints = append([]int64(nil), m.envI[len(m.envI)-min(s.Frame[0], len(m.envI)):]...)
	c.reals = append([]float64(nil), m.envR[len(m.envR)-min(s.Frame[1], len(m.envR)):]...)
	c.objs = append([]any(nil), m.envO[len(m.envO)-min(s.Frame[2], len(m.envO)):]...)
	return c
}

// applyInstruction pops the function and its arguments as laid out by
// APPLY and pushes the result.
func (m *Machine) applyInstruction(call *bytecode.CallInfo) error {
	f := m.popObj()
	args := make([]any, len(call.ArgSorts))
	for i, s := range call.ArgSorts {
		args[i] = m.pop(s)
	}
	r, err := m.apply(f, args)
	if err != nil {
		return err
	}
	m.push(call.ResultSort, r)
	return nil
}

// apply applies a function value to args. Missing arguments make a
// partial application; extra arguments are applied to the result.
func (m *Machine) apply(f any, args []any) (any, error) {
	switch fn := f.(type) {
	case *Partial:
		all := make([]any, 0, len(fn.Args)+len(args))
		all = append(append(all, fn.Args...), args...)
		return m.apply(fn.F, all)

	case *Closure:
		n := len(fn.Scope.ParamSorts)
		if len(args) < n {
			return &Partial{F: fn, Args: args}, nil
		}
		r, err := m.runClosure(fn, args[:n])
		if err != nil || len(args) == n {
			return r, err
		}
		return m.apply(r, args[n:])

	case nil:
		return nil, fmt.Errorf("%w: null", errNotCallable)
	}
	return nil, fmt.Errorf("%w: %s", errNotCallable, inspect(f))
}

// runClosure runs the body of c on args and returns its value boxed. An
// exitable closure is where non-local exits of its body land.
func (m *Machine) runClosure(c *Closure, args []any) (any, error) {
	if err := m.enterFrame(); err != nil {
		return nil, err
	}
	defer m.leaveFrame()

	s := c.Scope
	operands := m.operandHeights()
	savedI, savedR, savedO := m.envI, m.envR, m.envO
	savedEnv := m.envHeights()
	if !c.live {
		m.envI = append(make([]int64, 0, len(c.ints)+s.Arity[0]), c.ints...)
		m.envR = append(make([]float64, 0, len(c.reals)+s.Arity[1]), c.reals...)
		m.envO = append(make([]any, 0, len(c.objs)+s.Arity[2]), c.objs...)
	}
	for i, ps := range s.ParamSorts {
		m.bind(ps, args[i])
	}

	err := m.run(s.Code, s.Address)

	var result any
	switch {
	case err == nil:
		result = m.pop(s.ResultSort)
	case errors.Is(err, errNonLocalExit) && s.Exitable:
		m.truncateOperands(operands)
		result, m.exitValue = m.exitValue, nil
		err = nil
	}

	if c.live {
		m.truncateEnv(savedEnv)
	} else {
		m.envI, m.envR, m.envO = savedI, savedR, savedO
	}
	return result, err
}

// call pushes the value of a definition. A definition that is not a
// function is evaluated once; its value is kept with the assigned ones.
func (m *Machine) call(ref bytecode.CodeRef) error {
	entry, _ := ref.(*symbols.DefinedEntry)
	var t typesystem.Type
	if entry != nil {
		t = entry.Type()
	}
	s := typesystem.SortOf(t)

	if v, ok := m.globals[ref]; ok {
		m.push(s, v)
		return nil
	}
	code := ref.Code()
	if code == nil {
		return fmt.Errorf("%w: %s", errNoCode, ref.Name())
	}

	if err := m.enterFrame(); err != nil {
		return err
	}
	defer m.leaveFrame()

	saved := m.envHeights()
	err := m.run(code, 0)
	m.truncateEnv(saved)
	if err != nil {
		return err
	}
	if _, isFunc := typesystem.AsFunc(t); !isFunc && t != nil && s != typesystem.VoidSort {
		v := m.pop(s)
		m.globals[ref] = v
		m.push(s, v)
	}
	return nil
}
