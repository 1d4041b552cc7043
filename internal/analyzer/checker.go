package analyzer

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

// TypeCheck infers the type of every node of e. Names must be resolved.
//
// Overloaded globals commit to the first entry whose type unifies with
// their context. A global whose context says nothing yet is resolved once
// the whole expression is checked.
func (a *Analyzer) TypeCheck(e ast.Expression) error {
	a.pending = nil
	a.exitables = nil
	if err := a.check(e); err != nil {
		return err
	}
	return a.resolvePending()
}

func (a *Analyzer) unify(e ast.Expression, x, y typesystem.Type) error {
	if err := a.unifier.Unify(x, y); err != nil {
		return diagnostics.Wrap(diagnostics.ErrT001, e.GetToken(), err)
	}
	return nil
}

func (a *Analyzer) disallowVoid(e ast.Expression, t typesystem.Type, role string) error {
	if err := typesystem.DisallowVoid(t, role); err != nil {
		return diagnostics.Wrap(diagnostics.ErrT003, e.GetToken(), err)
	}
	return nil
}

// begin fires the latch of e and unifies its ascribed types. It reports
// whether e was already checked.
func (a *Analyzer) begin(e ast.Expression) (bool, error) {
	b := e.Node()
	if b.LockTypeCheck() {
		return true, nil
	}
	a.unifier.Trail(b.UnlockTypeCheck)
	for _, t := range b.OtherTypes() {
		if err := a.unify(e, e.Type(), t); err != nil {
			return false, err
		}
	}
	return false, nil
}

// checkAs unifies the type of e with t, then checks e, so a parameter
// already has its expected type when its uses are checked.
func (a *Analyzer) checkAs(e ast.Expression, t typesystem.Type) error {
	if g, ok := e.(*ast.Global); ok {
		done, err := a.begin(g)
		if err != nil {
			return err
		}
		if done {
			return a.unify(g, g.Type(), t)
		}
		return a.checkGlobal(g, t)
	}
	if err := a.unify(e, e.Type(), t); err != nil {
		return err
	}
	return a.check(e)
}

func (a *Analyzer) checkParam(p *ast.Parameter) error {
	_, err := a.begin(p)
	return err
}

func (a *Analyzer) check(e ast.Expression) error {
	done, err := a.begin(e)
	if err != nil || done {
		return err
	}

	switch n := e.(type) {
	case *ast.Dummy:
		ast.Violation(n, "type check of an unresolved name")

	case *ast.Constant:
		return nil

	case *ast.Local:
		return a.checkParam(n.Param)

	case *ast.DummyLocal:
		return a.checkParam(n.Param)

	case *ast.Global:
		return a.checkGlobal(n, nil)

	case *ast.Let:
		return a.checkLet(n)

	case *ast.Application:
		return a.checkApplication(n)

	case *ast.Abstraction:
		if n.Exitable {
			a.exitables = append(a.exitables, n)
		}
		err := a.checkScope(n, &n.Scope)
		if n.Exitable {
			a.exitables = a.exitables[:len(a.exitables)-1]
		}
		return err

	case *ast.Scope:
		return a.checkScope(n, n)

	case *ast.ExitWithValue:
		if len(a.exitables) == 0 {
			return diagnostics.NewError(diagnostics.ErrT007, n.Token, "exit outside an exitable function")
		}
		target := a.exitables[len(a.exitables)-1]
		if err := a.check(n.Value); err != nil {
			return err
		}
		if err := a.unify(n, target.Body.Type(), n.Value.Type()); err != nil {
			return err
		}
		return a.unify(n, n.Type(), n.Value.Type())

	case *ast.Definition:
		n.Symbol.Provisional(n.Body.Type())
		if err := a.check(n.Body); err != nil {
			return err
		}
		return a.unify(n, n.Type(), n.Body.Type())

	case *ast.IfThenElse:
		if err := a.checkAs(n.Condition, typesystem.Bool); err != nil {
			return err
		}
		if err := a.checkAs(n.Then, n.Type()); err != nil {
			return err
		}
		return a.checkAs(n.Else, n.Type())

	case *ast.And:
		return a.checkConnective(n, n.Left, n.Right)

	case *ast.Or:
		return a.checkConnective(n, n.Left, n.Right)

	case *ast.Sequence:
		for _, x := range n.Exprs {
			if err := a.check(x); err != nil {
				return err
			}
		}
		return nil

	case *ast.Loop:
		if err := a.checkAs(n.Condition, typesystem.Bool); err != nil {
			return err
		}
		if err := a.check(n.Body); err != nil {
			return err
		}
		return a.unify(n, n.Type(), typesystem.Void)

	case *ast.LocalAssignment:
		if err := a.check(n.Target); err != nil {
			return err
		}
		return a.checkAssignment(n, n.Target.Type(), n.Value)

	case *ast.GlobalAssignment:
		if err := a.check(n.Value); err != nil {
			return err
		}
		if err := a.checkAs(n.Target, n.Value.Type()); err != nil {
			return err
		}
		return a.checkAssignment(n, n.Target.Type(), n.Value)

	case *ast.UndecidedExpression:
		return a.checkUndecided(n)

	case *ast.Tuple:
		elems := make([]typesystem.Type, len(n.Elems))
		for i, x := range n.Elems {
			if err := a.checkComponent(x, "tuple component"); err != nil {
				return err
			}
			elems[i] = x.Type()
		}
		return a.unify(n, n.Type(), &typesystem.TTuple{Elems: elems})

	case *ast.NamedTuple:
		if f, dup := n.DuplicateField(); dup {
			return diagnostics.Errorf(diagnostics.ErrT002, n.Token, "duplicate tuple field %s", f)
		}
		fields := make([]typesystem.Field, len(n.Elems))
		for i, x := range n.Elems {
			if err := a.checkComponent(x, "tuple component"); err != nil {
				return err
			}
			fields[i] = typesystem.Field{Name: n.Fields[i], Type: x.Type()}
		}
		return a.unify(n, n.Type(), typesystem.NewNamedTuple(fields))

	case *ast.TupleProjection:
		return a.checkProjection(n)

	case *ast.NewCollection:
		elem := n.ElemType
		if elem == nil {
			elem = typesystem.NewVar()
		}
		for _, x := range n.Elems {
			if err := a.checkAs(x, elem); err != nil {
				return err
			}
			if err := a.disallowVoid(x, elem, "collection element"); err != nil {
				return err
			}
		}
		return a.unify(n, n.Type(), &typesystem.TCollection{Kind: n.Kind, Elem: elem})

	case *ast.NewArray:
		return a.checkNewArray(n)

	case *ast.ArrayExtension:
		elem := typesystem.NewVar()
		for _, x := range n.Elems {
			if err := a.checkAs(x, elem); err != nil {
				return err
			}
			if err := a.disallowVoid(x, elem, "array element"); err != nil {
				return err
			}
		}
		var index typesystem.Type = typesystem.Int
		if n.Indexable != nil {
			if err := a.checkAs(n.Indexable, typesystem.NewSet(typesystem.NewVar())); err != nil {
				return err
			}
			index = n.Indexable.Type()
		}
		return a.unify(n, n.Type(), &typesystem.TArray{Elem: elem, Index: index})

	case *ast.ArraySlot:
		return a.checkSlot(n)

	case *ast.ArraySlotUpdate:
		if err := a.check(n.Slot); err != nil {
			return err
		}
		if err := a.check(n.Value); err != nil {
			return err
		}
		if err := a.unify(n, n.Slot.Type(), n.Value.Type()); err != nil {
			return err
		}
		if a.cfg.VoidAssignments {
			return a.unify(n, n.Type(), typesystem.Void)
		}
		return a.unify(n, n.Type(), n.Slot.Type())

	case *ast.FilterHomomorphism:
		return a.checkHomomorphism(&n.Homomorphism, n.Filter)

	case *ast.Homomorphism:
		return a.checkHomomorphism(n, nil)

	case *ast.Comprehension:
		if n.IsRaw() {
			ast.Violation(n, "type check of an untranslated comprehension")
		}
		if err := a.check(n.Construct); err != nil {
			return err
		}
		return a.unify(n, n.Type(), n.Construct.Type())

	default:
		ast.Violation(e, "type check of an unexpected %T", e)
	}
	return nil
}

func (a *Analyzer) checkGlobal(g *ast.Global, expected typesystem.Type) error {
	entries := g.Symbol.Entries()
	switch {
	case len(entries) == 0:
		return diagnostics.Errorf(diagnostics.ErrT004, g.Token, "undefined symbol %s", g.Name())
	case len(entries) == 1:
		return a.selectEntry(g, entries[0], expected)
	case unconstrained(expected) && unconstrained(g.Type()):
		n := len(a.pending)
		a.pending = append(a.pending, g)
		a.unifier.Trail(func() { a.pending = a.pending[:n] })
		if expected != nil {
			return a.unify(g, g.Type(), expected)
		}
		return nil
	}
	return a.chooseEntry(g, expected)
}

func unconstrained(t typesystem.Type) bool {
	if t == nil {
		return true
	}
	_, ok := typesystem.Deref(t).(*typesystem.TVar)
	return ok
}

// chooseEntry commits g to the first entry of its symbol that fits.
func (a *Analyzer) chooseEntry(g *ast.Global, expected typesystem.Type) error {
	for _, entry := range g.Symbol.Entries() {
		a.unifier.PushCutPoint()
		if err := a.selectEntry(g, entry, expected); err == nil {
			a.unifier.PopCutPoint()
			return nil
		}
		a.unifier.UndoCutPoint()
		a.unifier.PopCutPoint()
	}
	want := g.Type()
	if expected != nil {
		want = expected
	}
	return diagnostics.Errorf(diagnostics.ErrT001, g.Token,
		"no definition of %s has type %s", g.Name(), typesystem.Resolve(want))
}

func (a *Analyzer) selectEntry(g *ast.Global, entry symbols.CodeEntry, expected typesystem.Type) error {
	t := entry.Type()
	if d, ok := entry.(*symbols.DefinedEntry); !ok || !d.IsProvisional() {
		t = typesystem.Instantiate(t)
	}
	if err := a.unify(g, g.Type(), t); err != nil {
		return err
	}
	if expected != nil {
		if err := a.unify(g, g.Type(), expected); err != nil {
			return err
		}
	}
	prev := g.Entry
	g.Entry = entry
	a.unifier.Trail(func() { g.Entry = prev })
	return nil
}

func (a *Analyzer) resolvePending() error {
	pending := a.pending
	a.pending = nil
	for _, g := range pending {
		if err := a.chooseEntry(g, nil); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkApplication(n *ast.Application) error {
	args := make([]typesystem.Type, len(n.Args))
	for i, x := range n.Args {
		if err := a.check(x); err != nil {
			return err
		}
		args[i] = x.Type()
	}
	f := &typesystem.TFunc{Params: args, ReturnType: n.Type(), NoCurrying: n.NoCurrying}
	if err := a.checkAs(n.Function, f); err != nil {
		return err
	}
	if k := typesystem.Arity(n.Function.Type()); k < len(n.Args) {
		return a.curry(n, k)
	}
	return nil
}

// curry splits f(a1..an) into f(a1..ak)(ak+1..an) when f takes only k
// arguments, and checks the result again.
func (a *Analyzer) curry(n *ast.Application, k int) error {
	fn, args := n.Function, n.Args
	inner := ast.NewApplication(fn, append([]ast.Expression(nil), args[:k]...)...)
	inner.Token = n.Token
	n.Function = inner
	n.Args = append([]ast.Expression(nil), args[k:]...)
	a.unifier.Trail(func() { n.Function, n.Args = fn, args })
	n.UnlockTypeCheck()
	return a.check(n)
}

func (a *Analyzer) checkLet(n *ast.Let) error {
	s := n.Scope()
	if len(s.Params) != len(n.Args) {
		ast.Violation(n, "let binds %d parameters to %d arguments", len(s.Params), len(n.Args))
	}
	args := make([]typesystem.Type, len(n.Args))
	for i, x := range n.Args {
		if err := a.unify(n, s.Params[i].Type(), x.Type()); err != nil {
			return err
		}
		if err := a.check(x); err != nil {
			return err
		}
		args[i] = x.Type()
	}
	f := &typesystem.TFunc{Params: args, ReturnType: n.Type(), NoCurrying: true}
	return a.checkAs(s, f)
}

func (a *Analyzer) checkScope(e ast.Expression, s *ast.Scope) error {
	params := make([]typesystem.Type, len(s.Params))
	for i, p := range s.Params {
		if err := a.checkParam(p); err != nil {
			return err
		}
		params[i] = p.Type()
	}
	if err := a.unify(e, e.Type(), typesystem.NewFunc(s.Body.Type(), params...)); err != nil {
		return err
	}
	return a.check(s.Body)
}

func (a *Analyzer) checkConnective(e, left, right ast.Expression) error {
	if err := a.checkAs(left, typesystem.Bool); err != nil {
		return err
	}
	if err := a.checkAs(right, typesystem.Bool); err != nil {
		return err
	}
	return a.unify(e, e.Type(), typesystem.Bool)
}

func (a *Analyzer) checkAssignment(e ast.Expression, target typesystem.Type, value ast.Expression) error {
	if err := a.check(value); err != nil {
		return err
	}
	if err := a.unify(e, target, value.Type()); err != nil {
		return err
	}
	if err := a.disallowVoid(value, value.Type(), "assigned value"); err != nil {
		return err
	}
	if a.cfg.VoidAssignments {
		return a.unify(e, e.Type(), typesystem.Void)
	}
	return a.unify(e, e.Type(), value.Type())
}

func (a *Analyzer) checkUndecided(n *ast.UndecidedExpression) error {
	a.unifier.PushCutPoint()
	if err := a.checkAs(n.First, n.Type()); err == nil {
		a.unifier.PopCutPoint()
		a.decide(n, 0)
		return nil
	}
	a.unifier.UndoCutPoint()
	a.unifier.PopCutPoint()
	if err := a.checkAs(n.Second, n.Type()); err != nil {
		return err
	}
	a.decide(n, 1)
	return nil
}

func (a *Analyzer) decide(n *ast.UndecidedExpression, choice int) {
	n.Choice = choice
	a.unifier.Trail(func() { n.Choice = -1 })
}

func (a *Analyzer) checkComponent(x ast.Expression, role string) error {
	if err := a.check(x); err != nil {
		return err
	}
	return a.disallowVoid(x, x.Type(), role)
}

func (a *Analyzer) checkProjection(n *ast.TupleProjection) error {
	if err := a.check(n.Tuple); err != nil {
		return err
	}
	bad := func(format string, args ...any) error {
		return diagnostics.Errorf(diagnostics.ErrT006, n.Token, format, args...)
	}
	elems, ok := typesystem.TupleElems(n.Tuple.Type())
	if !ok {
		return bad("bad tuple type: %s", typesystem.Resolve(n.Tuple.Type()))
	}
	if len(elems) == 0 {
		return bad("empty tuple projection")
	}
	pos := n.Position
	if n.ByName() {
		named, ok := typesystem.Deref(n.Tuple.Type()).(*typesystem.TNamedTuple)
		if !ok {
			return bad("bad tuple field position: %s should be an integer in [1,%d]", n.Field.Str, len(elems))
		}
		i := named.FieldIndex(n.Field.Str)
		if i < 0 {
			return bad("bad tuple field name: %s is not a field of %s", n.Field.Str, typesystem.Resolve(named))
		}
		pos = i + 1
	} else if pos < 1 || pos > len(elems) {
		return bad("bad tuple field position: %d is not in [1,%d]", pos, len(elems))
	}
	n.Position = pos
	return a.unify(n, n.Type(), elems[pos-1])
}

// indexType returns the array index type denoted by a dimension: an int
// size, an int range or a set.
func (a *Analyzer) indexType(d ast.Expression) (typesystem.Type, error) {
	switch t := typesystem.Deref(d.Type()).(type) {
	case *typesystem.TVar:
		if err := a.unify(d, t, typesystem.Int); err != nil {
			return nil, err
		}
		return typesystem.Int, nil
	case typesystem.TCon:
		if t == typesystem.Int || t == typesystem.IntRange {
			return t, nil
		}
	case *typesystem.TCollection:
		if t.Kind == typesystem.SetKind {
			return t, nil
		}
	}
	return nil, diagnostics.Errorf(diagnostics.ErrT005, d.GetToken(),
		"bad array dimension of type %s", typesystem.Resolve(d.Type()))
}

func (a *Analyzer) checkNewArray(n *ast.NewArray) error {
	index := make([]typesystem.Type, len(n.Dims))
	for i, d := range n.Dims {
		if err := a.check(d); err != nil {
			return err
		}
		t, err := a.indexType(d)
		if err != nil {
			return err
		}
		index[i] = t
	}
	t := n.ElemType
	if t == nil {
		t = typesystem.NewVar()
	}
	for i := len(index) - 1; i >= 0; i-- {
		t = &typesystem.TArray{Elem: t, Index: index[i]}
	}
	return a.unify(n, n.Type(), t)
}

func (a *Analyzer) checkSlot(n *ast.ArraySlot) error {
	ix := typesystem.NewVar()
	if err := a.checkAs(n.Array, &typesystem.TArray{Elem: n.Type(), Index: ix}); err != nil {
		return err
	}
	if err := a.check(n.Index); err != nil {
		return err
	}
	switch t := typesystem.Deref(ix).(type) {
	case *typesystem.TVar:
		if err := a.unify(n, t, typesystem.Int); err != nil {
			return err
		}
		if err := a.unify(n.Index, n.Index.Type(), typesystem.Int); err != nil {
			return err
		}
	case typesystem.TCon:
		if t != typesystem.Int && t != typesystem.IntRange {
			return diagnostics.Errorf(diagnostics.ErrT005, n.Token, "bad index set %s", t)
		}
		if err := a.unify(n.Index, n.Index.Type(), typesystem.Int); err != nil {
			return err
		}
	case *typesystem.TCollection:
		if t.Kind != typesystem.SetKind {
			return diagnostics.Errorf(diagnostics.ErrT005, n.Token, "bad index set %s", typesystem.Resolve(t))
		}
		if err := a.unify(n.Index, n.Index.Type(), t.Elem); err != nil {
			return err
		}
	default:
		return diagnostics.Errorf(diagnostics.ErrT005, n.Token, "bad index set %s", typesystem.Resolve(t))
	}
	return a.disallowVoid(n, n.Type(), "array element")
}

// checkHomomorphism types hom(s, f, op, id) of type T over elements of
// type A: f is A -> T, op is (B, T) -> T and id is T. B is T itself for a
// primitive monoid and the element type of T for a collection monoid.
func (a *Analyzer) checkHomomorphism(h *ast.Homomorphism, filter ast.Expression) error {
	elem, image := typesystem.NewVar(), typesystem.NewVar()
	if err := a.check(h.Collection); err != nil {
		return err
	}
	switch t := typesystem.Deref(h.Collection.Type()).(type) {
	case *typesystem.TCollection:
		if err := a.unify(h, elem, t.Elem); err != nil {
			return err
		}
	case *typesystem.TVar:
		if err := a.unify(h, t, typesystem.NewSet(elem)); err != nil {
			return err
		}
	default:
		if t != typesystem.IntRange {
			return diagnostics.Errorf(diagnostics.ErrT001, h.Collection.GetToken(),
				"iteration over %s, which is not a collection", typesystem.Resolve(t))
		}
		if err := a.unify(h, elem, typesystem.Int); err != nil {
			return err
		}
	}

	result := h.Type()
	if err := a.checkAs(h.Identity, result); err != nil {
		return err
	}
	if err := a.checkAs(h.Operation, typesystem.NewFunc(result, image, result)); err != nil {
		return err
	}
	if err := a.checkAs(h.Function, typesystem.NewFunc(result, elem)); err != nil {
		return err
	}
	if typesystem.Rank(result) == typesystem.Rank(image) {
		if err := a.unify(h, result, image); err != nil {
			return err
		}
	} else if c, ok := typesystem.Deref(result).(*typesystem.TCollection); ok {
		if err := a.unify(h, c.Elem, image); err != nil {
			return err
		}
	}
	for _, s := range h.Slicings {
		if err := a.checkAs(s, typesystem.Bool); err != nil {
			return err
		}
	}
	if filter != nil {
		return a.checkAs(filter, typesystem.NewFunc(typesystem.Bool, elem))
	}
	return nil
}
