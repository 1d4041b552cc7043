package analyzer

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/comprehension"
	"github.com/funvibe/kernel/internal/config"
)

// SetCheckedTypes fixes the type of every node once checking succeeded,
// and performs the rewrites that need final types: undecided expressions
// are replaced by their chosen reading, hidden slicings are extracted from
// filters, and definitions get their code entry.
func (a *Analyzer) SetCheckedTypes(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case *ast.UndecidedExpression:
		d := n.Decided()
		if d == nil {
			ast.Violation(n, "undecided expression left after type checking")
		}
		return a.SetCheckedTypes(d)

	case *ast.FilterHomomorphism:
		if n.Filter != nil {
			comprehension.ExtractNewSlicings(a.tables, n)
		}
		if n.Filter == nil && a.cfg.NullFilter != config.NullFilterKeep {
			return a.SetCheckedTypes(&n.Homomorphism)
		}

	case ast.Binder:
		for _, p := range n.ScopeNode().Params {
			if !p.LockCheckedType() {
				p.SetCheckedType(p.Type())
			}
		}
		n.ScopeNode().SetSortedArities()

	case *ast.Definition:
		defer func() {
			if n.Entry == nil {
				n.Entry = n.Symbol.RegisterCodeEntry(n.Body.CheckedType())
			}
		}()
	}

	if e.Node().LockCheckedType() {
		return e
	}
	ast.MapChildren(e, a.SetCheckedTypes)
	e.SetCheckedType(e.Type())
	return e
}
