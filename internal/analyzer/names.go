package analyzer

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/symbols"
)

// SanitizeNames resolves every Dummy of e into a Local, when a parameter of
// that name is visible on stack, or a Global. Comprehensions are translated
// on the way, so no later phase sees one. The returned expression replaces
// e.
func (a *Analyzer) SanitizeNames(e ast.Expression, stack *ParameterStack) (ast.Expression, error) {
	ast.LinkScopeTree(e, nil)
	return a.sanitizeNames(e, stack)
}

func (a *Analyzer) sanitizeNames(e ast.Expression, stack *ParameterStack) (ast.Expression, error) {
	switch n := e.(type) {
	case *ast.Dummy:
		return a.resolveName(n, stack), nil

	case *ast.DummyLocal, *ast.Local, *ast.Global, *ast.Constant, *ast.Parameter:
		return e, nil

	case *ast.DummyAssignment:
		value, err := a.sanitizeNames(n.Value, stack)
		if err != nil {
			return nil, err
		}
		target := ast.NewDummy(n.Name)
		target.Token = n.Token
		switch t := a.resolveName(target, stack).(type) {
		case *ast.Local:
			return ast.WithToken(ast.NewLocalAssignment(t, value), n.Token), nil
		case *ast.Global:
			if !assignable(t.Symbol) {
				return nil, diagnostics.Errorf(diagnostics.ErrA001, n.Token,
					"unassignable location: %s is a builtin", n.Name)
			}
			return ast.WithToken(ast.NewGlobalAssignment(t, value), n.Token), nil
		}

	case *ast.Comprehension:
		if n.IsRaw() {
			if err := a.translator.Construct(n); err != nil {
				return nil, err
			}
		}
		c := n.Construct
		if n.Typed() {
			ast.AddTypes(c, n)
		}
		return a.sanitizeNames(c, stack)

	case ast.Binder:
		s := n.ScopeNode()
		stack.Push(s.Params...)
		body, err := a.sanitizeNames(s.Body, stack)
		stack.Pop(len(s.Params))
		if err != nil {
			return nil, err
		}
		s.Body = body
		return e, nil
	}

	var err error
	ast.MapChildren(e, func(c ast.Expression) ast.Expression {
		if err != nil {
			return c
		}
		r, cerr := a.sanitizeNames(c, stack)
		if cerr != nil {
			err = cerr
			return c
		}
		return r
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (a *Analyzer) resolveName(d *ast.Dummy, stack *ParameterStack) ast.Expression {
	var r ast.Expression
	if p, ok := stack.Lookup(d.Name); ok {
		r = ast.NewLocal(p)
	} else {
		r = ast.NewGlobal(a.tables.Symbol(d.Name))
	}
	if d.Typed() {
		ast.AddTypes(r, d)
	}
	return ast.WithToken(r, d.Token)
}

// assignable reports whether a global may be the target of an assignment:
// it is undefined so far or has a user definition.
func assignable(s *symbols.Symbol) bool {
	if !s.IsDefined() {
		return true
	}
	for _, e := range s.Entries() {
		if _, ok := e.(*symbols.DefinedEntry); ok {
			return true
		}
	}
	return false
}
