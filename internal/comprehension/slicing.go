package comprehension

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/symbols"
)

// equalityApplication returns e as a binary application of the equality.
func equalityApplication(tables *symbols.Tables, e ast.Expression) (*ast.Application, bool) {
	app, ok := e.(*ast.Application)
	if !ok || len(app.Args) != 2 {
		return nil, false
	}
	switch f := app.Function.(type) {
	case *ast.Dummy:
		return app, tables.IsEquality(f.Name)
	case *ast.Global:
		return app, tables.IsEquality(f.Name())
	}
	return nil, false
}

// IsSelector reports whether e is x == v with x the generator p and v free
// of x. The generator is moved to the left of the equality.
func IsSelector(tables *symbols.Tables, e ast.Expression, p *ast.Parameter) bool {
	app, ok := equalityApplication(tables, e)
	if !ok {
		return false
	}
	if d, ok := app.Args[0].(*ast.Dummy); ok && d.Name == p.Name && !ast.ContainsFreeName(app.Args[1], p.Name) {
		return true
	}
	if d, ok := app.Args[1].(*ast.Dummy); ok && d.Name == p.Name && !ast.ContainsFreeName(app.Args[0], p.Name) {
		app.Args[0], app.Args[1] = app.Args[1], app.Args[0]
		return true
	}
	return false
}

// IsSlicing reports whether e is x.s == v with x the generator p and v free
// of x. The projection is moved to the left of the equality and its
// occurrence of x becomes a DummyLocal of p.
func IsSlicing(tables *symbols.Tables, e ast.Expression, p *ast.Parameter) bool {
	app, ok := equalityApplication(tables, e)
	if !ok {
		return false
	}
	if proj, ok := app.Args[0].(*ast.TupleProjection); ok &&
		!ast.ContainsFreeName(app.Args[1], p.Name) && slicesParameter(proj, p) {
		return true
	}
	if proj, ok := app.Args[1].(*ast.TupleProjection); ok &&
		!ast.ContainsFreeName(app.Args[0], p.Name) && slicesParameter(proj, p) {
		app.Args[0], app.Args[1] = app.Args[1], app.Args[0]
		return true
	}
	return false
}

// slicesParameter reports whether proj is x.p1...pk with x named like p,
// rewriting x into a DummyLocal when it is.
func slicesParameter(proj *ast.TupleProjection, p *ast.Parameter) bool {
	switch t := proj.Tuple.(type) {
	case *ast.TupleProjection:
		return slicesParameter(t, p)
	case *ast.Dummy:
		if t.Name != p.Name {
			return false
		}
		dl := ast.NewDummyLocal(p)
		ast.AddTypes(dl, t)
		dl.Token = t.Token
		proj.Tuple = dl
		return true
	}
	return false
}

// UndoDummyLocal turns the DummyLocal of a slicing back into a plain name,
// for slicings that end up as ordinary conditions.
func UndoDummyLocal(slicing ast.Expression) ast.Expression {
	proj := slicing.(*ast.Application).Args[0].(*ast.TupleProjection)
	for {
		inner, ok := proj.Tuple.(*ast.TupleProjection)
		if !ok {
			break
		}
		proj = inner
	}
	dl := proj.Tuple.(*ast.DummyLocal)
	d := ast.NewDummy(dl.Name())
	ast.AddTypes(d, dl)
	proj.Tuple = d
	return slicing
}

// SliceDepth is the number of projections between a slicing and its
// generator.
func SliceDepth(proj *ast.TupleProjection) int {
	if inner, ok := proj.Tuple.(*ast.TupleProjection); ok {
		return 1 + SliceDepth(inner)
	}
	return 1
}

// IsHiddenSlicing reports whether a checked filter is f1(...fk(x)) == v
// where the fi are field accessors of named tuples and x is the generator.
// The accessor chain is rebuilt into an explicit projection.
func IsHiddenSlicing(tables *symbols.Tables, e ast.Expression, p *ast.Parameter) bool {
	app, ok := equalityApplication(tables, e)
	if !ok {
		return false
	}
	if a, ok := app.Args[0].(*ast.Application); ok && isAccessor(a) && accessesParameter(a, p) &&
		!containsParameter(app.Args[1], p) {
		app.Args[0] = rebuildTupleProjection(a)
		return true
	}
	if a, ok := app.Args[1].(*ast.Application); ok && isAccessor(a) && accessesParameter(a, p) &&
		!containsParameter(app.Args[0], p) {
		app.Args[1] = app.Args[0]
		app.Args[0] = rebuildTupleProjection(a)
		return true
	}
	return false
}

func isAccessor(a *ast.Application) bool {
	g, ok := a.Function.(*ast.Global)
	return ok && len(a.Args) == 1 && g.IsProjection()
}

func accessesParameter(a *ast.Application, p *ast.Parameter) bool {
	switch x := a.Args[0].(type) {
	case *ast.Application:
		return isAccessor(x) && accessesParameter(x, p)
	case *ast.Local:
		return x.Name() == p.Name
	}
	return false
}

// containsParameter is the resolved counterpart of ContainsFreeName.
func containsParameter(e ast.Expression, p *ast.Parameter) bool {
	found := false
	ast.Inspect(e, func(n ast.Expression) bool {
		switch x := n.(type) {
		case *ast.Local:
			found = found || x.Name() == p.Name
		case *ast.DummyLocal:
			found = found || x.Name() == p.Name
		}
		return !found
	})
	return found
}

func rebuildTupleProjection(a *ast.Application) *ast.TupleProjection {
	g := a.Function.(*ast.Global)
	var tuple ast.Expression
	switch x := a.Args[0].(type) {
	case *ast.Local:
		tuple = ast.NewDummyLocal(x.Param)
	case *ast.Application:
		tuple = rebuildTupleProjection(x)
		tuple.SetType(x.Type())
	}
	proj := ast.NewTupleProjection(tuple, ast.NewString(g.Name()))
	if entry, ok := g.Entry.(*symbols.ProjectionEntry); ok {
		proj.Position = entry.Position
	}
	proj.SetType(a.Type())
	proj.Token = a.Token
	return proj
}

// ExtractNewSlicings moves the conjuncts of the filter of h that are hidden
// slicings into its slicings. The filter becomes nil when nothing else is
// left in it.
func ExtractNewSlicings(tables *symbols.Tables, h *ast.FilterHomomorphism) {
	scope, ok := h.Filter.(*ast.Scope)
	if !ok {
		return
	}
	p := scope.Params[0]
	var kept, slicings []ast.Expression
	for _, f := range conjuncts(scope.Body, nil) {
		if IsHiddenSlicing(tables, f, p) {
			slicings = append(slicings, f)
		} else {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		h.Filter = nil
	} else {
		body := kept[0]
		for _, f := range kept[1:] {
			body = ast.NewAnd(body, f)
		}
		scope.Body = body
	}
	h.Slicings = append(h.Slicings, slicings...)
}

func conjuncts(e ast.Expression, out []ast.Expression) []ast.Expression {
	and, ok := e.(*ast.And)
	if !ok {
		return append(out, e)
	}
	out = conjuncts(and.Left, out)
	return conjuncts(and.Right, out)
}
