// Package comprehension translates monoid comprehensions into
// homomorphisms.
//
// A raw comprehension [op, id]{ e | q1, ..., qn } is translated in three
// steps. Patterns are desugared into plain parameters plus equality
// filters, top down. Filters are then moved to the left as far as the
// generators they depend on allow, bottom up, so that a filter of an inner
// comprehension may migrate into an outer one over the same monoid. Last,
// the normalized qualifiers are translated:
//
//	[op,id]{e | }             = op(e, id)
//	[op,id]{e | c, Q}         = if c then [op,id]{e | Q} else id
//	[op,id]{e | x <- s, c, Q} = fhom(s, \x.[op,id]{e | Q}, op, id, \x.c)
//	[op,id]{e | x <- s, Q}    = hom(s, \x.[op,id]{e | Q}, op, id)
//
// A generator with a selector filter x == v becomes a let binding x to v.
package comprehension

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/token"
)

// Translator constructs raw comprehensions.
type Translator struct {
	tables  *symbols.Tables
	opaque  bool
	inPlace config.InPlaceMode
}

func NewTranslator(tables *symbols.Tables, cfg *config.Config) *Translator {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Translator{tables: tables, opaque: cfg.Opaque(), inPlace: cfg.InPlace}
}

// Construct translates c and every comprehension nested in it. It is a
// no-op on a constructed comprehension.
func (t *Translator) Construct(c *ast.Comprehension) error {
	if !c.IsRaw() {
		return nil
	}
	ast.LinkScopeTree(c, ast.EnclosingOf(c))
	if err := t.desugarPatterns(c); err != nil {
		return err
	}
	t.unnestInnerFilters(c)
	return nil
}

type indexed struct {
	index int
	expr  ast.Expression
}

func (t *Translator) equality(tok token.Token) (ast.Expression, error) {
	if _, ok := t.tables.Lookup(config.EqualityName); !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrT004, tok,
			"undefined equality %q needed by a comprehension pattern", config.EqualityName)
	}
	return ast.NewDummy(config.EqualityName), nil
}

func (t *Translator) desugarPatterns(c *ast.Comprehension) error {
	raw := c.Raw
	if raw == nil || raw.Desugared {
		return nil
	}
	if err := t.desugar(c); err != nil {
		return err
	}
	if c.NestedComprehensions() == 0 {
		return nil
	}
	for _, e := range raw.Exprs {
		if err := t.desugarNested(e); err != nil {
			return err
		}
	}
	return t.desugarNested(raw.Expr)
}

func (t *Translator) desugarNested(e ast.Expression) error {
	var err error
	ast.Inspect(e, func(n ast.Expression) bool {
		if err != nil {
			return false
		}
		if c, ok := n.(*ast.Comprehension); ok && c.IsRaw() {
			err = t.desugarPatterns(c)
			return false
		}
		return true
	})
	return err
}

func (t *Translator) desugar(c *ast.Comprehension) error {
	raw := c.Raw
	subst := initialSubstitution(c)
	size := len(raw.Patterns)
	for i := 0; i < size; i++ {
		p, err := t.desugarPattern(raw, i, raw.Patterns[i], subst)
		if err != nil {
			return err
		}
		if p == nil {
			raw.Patterns[i] = nil
		} else {
			raw.Patterns[i] = p
		}
	}
	for len(raw.Patterns) < len(raw.Exprs) {
		raw.Patterns = append(raw.Patterns, nil)
	}
	t.substituteDesugaring(raw, subst)
	raw.Desugared = true
	return nil
}

// initialSubstitution maps the parameters of the enclosing scopes, the
// innermost first, to references to themselves.
func initialSubstitution(c *ast.Comprehension) map[string]indexed {
	subst := make(map[string]indexed)
	for e := ast.EnclosingOf(c); e != nil; e = ast.EnclosingOf(e) {
		b, ok := e.(ast.Binder)
		if !ok {
			continue
		}
		params := b.ScopeNode().Params
		for i := len(params) - 1; i >= 0; i-- {
			if _, seen := subst[params[i].Name]; !seen {
				subst[params[i].Name] = indexed{index: -1, expr: ast.DummyFor(params[i])}
			}
		}
	}
	return subst
}

// desugarPattern turns the pattern of generator index into a parameter.
// Components of the pattern are recorded in subst, or produce equality
// filters appended to the qualifiers.
func (t *Translator) desugarPattern(raw *ast.RawComprehension, index int, pattern ast.Expression, subst map[string]indexed) (*ast.Parameter, error) {
	switch p := pattern.(type) {
	case nil:
		return nil, nil
	case *ast.Parameter:
		return p, nil
	case *ast.Dummy:
		param := ast.NewParameter(p.Name)
		ast.AddTypes(param, p)
		param.Token = p.Token
		if t.opaque {
			return param, nil
		}
		value, seen := subst[p.Name]
		if !seen {
			if !t.tables.IsDefinedScalar(p.Name) {
				subst[p.Name] = indexed{index: index, expr: p}
			}
			return param, nil
		}
		eq, err := t.equality(p.Token)
		if err != nil {
			return nil, err
		}
		param = ast.NewTypedParameter(value.expr.Type())
		raw.Exprs = append(raw.Exprs, ast.NewApplication(eq, ast.DummyFor(param), value.expr.TypedCopy()))
		return param, nil
	}

	param := ast.NewTypedParameter(pattern.Type())
	param.Token = pattern.GetToken()
	variable := ast.DummyFor(param)
	switch p := pattern.(type) {
	case *ast.Tuple:
		for i, comp := range p.Elems {
			proj := ast.NewTupleProjection(variable.TypedCopy(), ast.NewInt(int64(i+1)))
			if err := t.desugarComponent(raw, index, comp, proj, subst); err != nil {
				return nil, err
			}
		}
	case *ast.NamedTuple:
		for i, comp := range p.Elems {
			proj := ast.NewTupleProjection(variable.TypedCopy(), ast.NewString(p.Fields[i]))
			if err := t.desugarComponent(raw, index, comp, proj, subst); err != nil {
				return nil, err
			}
		}
	default:
		eq, err := t.equality(param.Token)
		if err != nil {
			return nil, err
		}
		raw.Exprs = append(raw.Exprs, ast.NewApplication(eq, variable, pattern))
	}
	return param, nil
}

func (t *Translator) desugarComponent(raw *ast.RawComprehension, index int, comp ast.Expression, proj *ast.TupleProjection, subst map[string]indexed) error {
	switch c := comp.(type) {
	case *ast.Dummy:
		if _, seen := subst[c.Name]; !seen && !t.tables.IsDefinedScalar(c.Name) {
			subst[c.Name] = indexed{index: index, expr: proj}
			return nil
		}
		eq, err := t.equality(c.Token)
		if err != nil {
			return err
		}
		raw.Exprs = append(raw.Exprs, ast.NewApplication(eq, proj, c.TypedCopy()))
		return nil
	case *ast.Tuple:
		for i, sub := range c.Elems {
			p := ast.NewTupleProjection(proj.TypedCopy(), ast.NewInt(int64(i+1)))
			if err := t.desugarComponent(raw, index, sub, p, subst); err != nil {
				return err
			}
		}
		return nil
	case *ast.NamedTuple:
		for i, sub := range c.Elems {
			p := ast.NewTupleProjection(proj.TypedCopy(), ast.NewString(c.Fields[i]))
			if err := t.desugarComponent(raw, index, sub, p, subst); err != nil {
				return err
			}
		}
		return nil
	}
	eq, err := t.equality(comp.GetToken())
	if err != nil {
		return err
	}
	raw.Exprs = append(raw.Exprs, ast.NewApplication(eq, proj, comp))
	return nil
}

// substituteDesugaring replaces the pattern names by their desugared
// meaning. A name bound by generator i is visible in the qualifiers after
// it and in the main expression.
func (t *Translator) substituteDesugaring(raw *ast.RawComprehension, subst map[string]indexed) {
	if len(subst) == 0 {
		return
	}
	start := 0
	for start < len(raw.Exprs) {
		if p, ok := raw.Patterns[start].(*ast.Parameter); ok && p.Internal {
			break
		}
		start++
	}
	visible := func(i int) map[string]ast.Expression {
		m := make(map[string]ast.Expression)
		for name, v := range subst {
			if v.index >= 0 && v.index < i {
				m[name] = v.expr
			}
		}
		return m
	}
	for i := start; i < len(raw.Exprs); i++ {
		raw.Exprs[i] = ast.Substitute(raw.Exprs[i], visible(i), t.opaque)
	}
	raw.Expr = ast.Substitute(raw.Expr, visible(len(raw.Exprs)), t.opaque)
}

func (t *Translator) unnestInnerFilters(c *ast.Comprehension) {
	raw := c.Raw
	if c.NestedComprehensions() > 0 {
		t.unnestNested(raw.Expr)
		for i := len(raw.Exprs) - 1; i >= 0; i-- {
			t.unnestNested(raw.Exprs[i])
		}
	}
	t.unnestFilters(c)
}

func (t *Translator) unnestNested(e ast.Expression) {
	ast.Inspect(e, func(n ast.Expression) bool {
		if c, ok := n.(*ast.Comprehension); ok && c.IsRaw() {
			t.unnestInnerFilters(c)
			return false
		}
		return true
	})
}

type qualifier struct {
	param     *ast.Parameter
	expr      ast.Expression
	slicings  []ast.Expression
	selectors []ast.Expression
}

func (q *qualifier) isGenerator() bool { return q.param != nil }

func (t *Translator) unnestFilters(c *ast.Comprehension) {
	raw := c.Raw
	qs := make([]*qualifier, len(raw.Exprs))
	for i := range qs {
		var p *ast.Parameter
		if raw.Patterns[i] != nil {
			p = raw.Patterns[i].(*ast.Parameter)
		}
		qs[i] = &qualifier{param: p, expr: raw.Exprs[i]}
	}
	if len(qs) > 0 {
		t.normalize(c, qs, len(qs)-1)
	}
	c.Construct = t.translate(c, qs, 0)
	if !c.NoLetWrapping && !isLetWrapped(c) {
		params := []*ast.Parameter{
			ast.NewParameter(config.MonoidOpName),
			ast.NewParameter(config.MonoidIdentityName),
		}
		c.Construct = ast.NewLet(params, []ast.Expression{c.Operation, c.Identity}, c.Construct)
	}
	c.Raw = nil
}

func sameMonoid(a, b *ast.Comprehension) bool {
	return ast.Equal(a.Operation, b.Operation) && ast.Equal(a.Identity, b.Identity)
}

// isLetWrapped reports whether the nearest enclosing comprehension has the
// same monoid, and thus already binds $OP$ and $ID$.
func isLetWrapped(c *ast.Comprehension) bool {
	for e := ast.EnclosingOf(c); e != nil; e = ast.EnclosingOf(e) {
		if outer, ok := e.(*ast.Comprehension); ok {
			return sameMonoid(c, outer)
		}
	}
	return false
}

// normalize moves the filter at index to the left after normalizing the
// qualifiers before it. Selectors and slicings are handed to their
// generator.
func (t *Translator) normalize(c *ast.Comprehension, qs []*qualifier, index int) {
	if index == -1 {
		return
	}
	upper := index
	t.normalize(c, qs, upper-1)
	q := qs[index]

	i := index - 1
	for i >= 0 && qs[i] == nil {
		i--
	}
	if i < index-1 {
		qs[index] = nil
		index = i + 1
		qs[index] = q
	}

	if q.isGenerator() {
		return
	}

	for index > 0 {
		prev := qs[index-1]
		if prev.isGenerator() {
			if !ast.ContainsFreeName(q.expr, prev.param.Name) {
				qs[index] = prev
				index--
				qs[index] = q
				continue
			}
			if IsSelector(t.tables, q.expr, prev.param) {
				prev.selectors = append(prev.selectors, q.expr)
				eraseQualifier(index, upper, qs)
			} else if prev.selectors == nil && IsSlicing(t.tables, q.expr, prev.param) {
				prev.slicings = append(prev.slicings, q.expr)
				eraseQualifier(index, upper, qs)
			}
			return
		}

		// prev is a filter; the qualifier before it, if any, is a generator.
		if index > 1 {
			gen := qs[index-2]
			if !ast.ContainsFreeName(q.expr, gen.param.Name) {
				qs[index] = prev
				qs[index-1] = gen
				index -= 2
				qs[index] = q
				continue
			}
			switch {
			case IsSelector(t.tables, q.expr, gen.param):
				gen.selectors = append(gen.selectors, q.expr)
			case gen.selectors == nil && IsSlicing(t.tables, q.expr, gen.param):
				gen.slicings = append(gen.slicings, q.expr)
			default:
				prev.expr = ast.NewAnd(prev.expr, q.expr)
			}
			eraseQualifier(index, upper, qs)
			return
		}

		if !t.isFurtherUnnestable(c, q.expr) {
			prev.expr = ast.NewAnd(prev.expr, q.expr)
		}
		eraseQualifier(index, upper, qs)
		return
	}

	if t.isFurtherUnnestable(c, q.expr) {
		eraseQualifier(index, upper, qs)
	}
}

// isFurtherUnnestable hands filter over to the nearest enclosing
// comprehension when it has the same monoid and no scope in between binds
// a name of the filter or holds another comprehension.
func (t *Translator) isFurtherUnnestable(c *ast.Comprehension, filter ast.Expression) bool {
	e := ast.EnclosingOf(c)
	for e != nil && e.Node().NestedComprehensions() == 1 {
		if outer, ok := e.(*ast.Comprehension); ok {
			if sameMonoid(c, outer) && outer.IsRaw() {
				outer.Raw.Patterns = append(outer.Raw.Patterns, nil)
				outer.Raw.Exprs = append(outer.Raw.Exprs, filter)
				return true
			}
			return false
		}
		if b, ok := e.(ast.Binder); ok {
			for _, p := range b.ScopeNode().Params {
				if ast.ContainsFreeName(filter, p.Name) {
					return false
				}
			}
		}
		e = ast.EnclosingOf(e)
	}
	return false
}

// eraseQualifier clears qs[index] and moves the hole right, up to upper.
func eraseQualifier(index, upper int, qs []*qualifier) {
	qs[index] = nil
	for i := index; i < upper && qs[i+1] != nil; i++ {
		qs[i] = qs[i+1]
		qs[i+1] = nil
	}
}

func (t *Translator) inPlaceMode(raw *ast.RawComprehension) config.InPlaceMode {
	if raw.InPlace != "" && raw.InPlace != config.InPlaceDefault {
		return raw.InPlace
	}
	if t.inPlace != "" {
		return t.inPlace
	}
	return config.InPlaceDefault
}

func (t *Translator) translate(c *ast.Comprehension, qs []*qualifier, index int) ast.Expression {
	raw := c.Raw
	op := func() ast.Expression { return raw.Operation.TypedCopy() }
	id := func() ast.Expression { return raw.Identity.TypedCopy() }

	if index == len(qs) || qs[index] == nil {
		return ast.NewApplication(op(), raw.Expr, id())
	}

	q := qs[index]
	var hom *ast.Homomorphism
	var result ast.Expression

	if index < len(qs)-1 && q.isGenerator() && qs[index+1] != nil && !qs[index+1].isGenerator() {
		body := t.translate(c, qs, index+2)
		if q.selectors != nil {
			return t.selectorExpression(c, q, qs[index+1].expr, body)
		}
		filter := ast.NewScope([]*ast.Parameter{q.param.TypedCopy().(*ast.Parameter)}, qs[index+1].expr)
		fh := ast.NewFilterHomomorphism(q.expr, ast.NewScope([]*ast.Parameter{q.param}, body), op(), id(), filter)
		hom, result = &fh.Homomorphism, fh
	} else {
		body := t.translate(c, qs, index+1)
		if !q.isGenerator() {
			return ast.NewIfThenElse(q.expr, body, id())
		}
		if q.selectors != nil {
			return t.selectorExpression(c, q, nil, body)
		}
		hom = ast.NewHomomorphism(q.expr, ast.NewScope([]*ast.Parameter{q.param}, body), op(), id())
		result = hom
	}

	hom.Slicings = q.slicings
	hom.InPlace = t.inPlaceMode(raw)
	return result
}

// selectorExpression translates a generator x <- s with selectors
// x == v1, ..., x == vn, slicings s1...sm and filter f into
//
//	let x = v1 in if x in s and x == v2 ... and s1 ... and f then body else id
func (t *Translator) selectorExpression(c *ast.Comprehension, q *qualifier, filter, body ast.Expression) ast.Expression {
	var cond ast.Expression = ast.NewApplication(ast.NewDummy(config.InName), ast.DummyFor(q.param), q.expr)
	for _, s := range q.selectors[1:] {
		cond = ast.NewAnd(cond, s)
	}
	for _, s := range q.slicings {
		cond = ast.NewAnd(cond, UndoDummyLocal(s))
	}
	if filter != nil {
		cond = ast.NewAnd(cond, filter)
	}
	value := q.selectors[0].(*ast.Application).Args[1]
	return ast.NewLet([]*ast.Parameter{q.param}, []ast.Expression{value},
		ast.NewIfThenElse(cond, body, c.Raw.Identity.TypedCopy()))
}
