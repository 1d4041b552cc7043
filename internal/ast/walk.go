package ast

import (
	"github.com/funvibe/kernel/internal/typesystem"
)

// MapChildren replaces every direct subexpression of e by f of it. The
// components of a raw comprehension are visited without translating it.
func MapChildren(e Expression, f func(Expression) Expression) {
	if c, ok := e.(*Comprehension); ok && c.Raw != nil {
		c.Operation = f(c.Operation)
		c.Identity = f(c.Identity)
		for i, x := range c.Raw.Exprs {
			c.Raw.Exprs[i] = f(x)
		}
		c.Raw.Expr = f(c.Raw.Expr)
		return
	}
	for i, n := 0, e.NumberOfSubexpressions(); i < n; i++ {
		e.SetSubexpression(i, f(e.Subexpression(i)))
	}
}

// Children returns the direct subexpressions of e.
func Children(e Expression) []Expression {
	var out []Expression
	if c, ok := e.(*Comprehension); ok && c.Raw != nil {
		out = append(out, c.Operation, c.Identity)
		out = append(out, c.Raw.Exprs...)
		return append(out, c.Raw.Expr)
	}
	for i, n := 0, e.NumberOfSubexpressions(); i < n; i++ {
		out = append(out, e.Subexpression(i))
	}
	return out
}

// Inspect calls f on e and its descendants in depth-first order, skipping
// the descendants of nodes for which f returns false.
func Inspect(e Expression, f func(Expression) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, c := range Children(e) {
		Inspect(c, f)
	}
}

// Rebind redirects the references to the parameters in m, in place.
func Rebind(e Expression, m map[*Parameter]*Parameter) Expression {
	if len(m) == 0 {
		return e
	}
	Inspect(e, func(n Expression) bool {
		switch l := n.(type) {
		case *Local:
			if p, ok := m[l.Param]; ok {
				l.Param = p
			}
		case *DummyLocal:
			if p, ok := m[l.Param]; ok {
				l.Param = p
			}
		}
		return true
	})
	return e
}

// Substitute replaces the free names of e found in values by typed copies
// of their values. Binders hide their parameters. In a raw comprehension a
// generator whose pattern is a plain name hides it from the qualifiers on
// its right when opaque is set; other patterns are substituted.
func Substitute(e Expression, values map[string]Expression, opaque bool) Expression {
	if len(values) == 0 {
		return e
	}
	switch n := e.(type) {
	case *Dummy:
		if v, ok := values[n.Name]; ok {
			return v.TypedCopy()
		}
		return e
	case Binder:
		s := n.ScopeNode()
		hidden := hide(values, s.Params)
		s.Body = Substitute(s.Body, hidden, opaque)
		return e
	case *Comprehension:
		if n.Raw == nil {
			n.Construct = Substitute(n.Construct, values, opaque)
			return e
		}
		n.Operation = Substitute(n.Operation, values, opaque)
		n.Identity = Substitute(n.Identity, values, opaque)
		substituteQualifiers(n.Raw, 0, values, opaque)
		return e
	}
	MapChildren(e, func(c Expression) Expression { return Substitute(c, values, opaque) })
	return e
}

func substituteQualifiers(raw *RawComprehension, i int, values map[string]Expression, opaque bool) {
	for ; i < len(raw.Exprs); i++ {
		raw.Exprs[i] = Substitute(raw.Exprs[i], values, opaque)
		p := raw.Patterns[i]
		if p == nil {
			continue
		}
		if name, ok := opaqueName(p, opaque); ok {
			values = hideName(values, name)
			continue
		}
		raw.Patterns[i] = Substitute(p, values, opaque)
	}
	raw.Expr = Substitute(raw.Expr, values, opaque)
}

func opaqueName(p Expression, opaque bool) (string, bool) {
	switch v := p.(type) {
	case *Parameter:
		return v.Name, true
	case *Dummy:
		if opaque {
			return v.Name, true
		}
	}
	return "", false
}

func hide(values map[string]Expression, params []*Parameter) map[string]Expression {
	out := values
	for _, p := range params {
		out = hideName(out, p.Name)
	}
	return out
}

// hideName returns values without name, copying the map only when needed.
func hideName(values map[string]Expression, name string) map[string]Expression {
	if _, ok := values[name]; !ok {
		return values
	}
	out := make(map[string]Expression, len(values)-1)
	for k, v := range values {
		if k != name {
			out[k] = v
		}
	}
	return out
}

// ContainsFreeName reports whether name occurs free in e.
func ContainsFreeName(e Expression, name string) bool {
	switch n := e.(type) {
	case *Dummy:
		return n.Name == name
	case *DummyAssignment:
		return n.Name == name || ContainsFreeName(n.Value, name)
	case Binder:
		if n.ScopeNode().ParamIndex(name) >= 0 {
			return false
		}
		return ContainsFreeName(n.ScopeNode().Body, name)
	case *Comprehension:
		if n.Raw == nil {
			return ContainsFreeName(n.Construct, name)
		}
		if ContainsFreeName(n.Operation, name) || ContainsFreeName(n.Identity, name) {
			return true
		}
		for i, x := range n.Raw.Exprs {
			if ContainsFreeName(x, name) {
				return true
			}
			if p := n.Raw.Patterns[i]; p != nil && bindsName(p, name) {
				return false
			}
		}
		return ContainsFreeName(n.Raw.Expr, name)
	}
	for _, c := range Children(e) {
		if ContainsFreeName(c, name) {
			return true
		}
	}
	return false
}

// bindsName reports whether a generator pattern binds name.
func bindsName(p Expression, name string) bool {
	switch v := p.(type) {
	case *Parameter:
		return v.Name == name
	case *Dummy:
		return v.Name == name
	case *Tuple:
		for _, c := range v.Elems {
			if bindsName(c, name) {
				return true
			}
		}
	case *NamedTuple:
		for _, c := range v.Elems {
			if bindsName(c, name) {
				return true
			}
		}
	}
	return false
}

// Sorts is a count per runtime sort, indexed by Sort.Index.
type Sorts = [typesystem.NumSorts]int

func localSort(p *Parameter) (int, bool) {
	t := p.CheckedType()
	if t == nil {
		t = p.Type()
	}
	if typesystem.IsVoid(t) {
		return 0, false
	}
	return typesystem.BoxSortOf(t).Index(), true
}

// ShiftOffsets adds shift to the offset of every local of e that refers
// past depth, that is to a parameter bound outside e. Moving an expression
// under new binders requires it.
func ShiftOffsets(e Expression, shift, depth Sorts) {
	switch n := e.(type) {
	case *Local:
		if s, ok := localSort(n.Param); ok && n.Offset >= depth[s] {
			n.Offset += shift[s]
		}
		return
	case *DummyLocal:
		return
	case *Dummy, *Definition:
		Violation(e, "offset shift over an unresolved expression")
	case *UndecidedExpression:
		if d := n.Decided(); d != nil {
			ShiftOffsets(d, shift, depth)
			return
		}
	case *Abstraction:
		inner := addSorts(depth, n.Arity)
		ShiftOffsets(n.Body, shift, inner)
		if n.sortSanitized {
			n.FrameSize = CapturedSpan(n.Body, n.Arity)
		}
		return
	case *Scope:
		ShiftOffsets(n.Body, shift, addSorts(depth, n.Arity))
		return
	}
	for _, c := range Children(e) {
		ShiftOffsets(c, shift, depth)
	}
}

// CapturedSpan returns, per sort, how many entries above depth the free
// locals of e reach into the environment.
func CapturedSpan(e Expression, depth Sorts) Sorts {
	var span Sorts
	Inspect(e, func(n Expression) bool {
		switch x := n.(type) {
		case *Local:
			if s, ok := localSort(x.Param); ok && x.Offset >= depth[s] {
				span[s] = max(span[s], x.Offset-depth[s]+1)
			}
		case Binder:
			inner := CapturedSpan(x.ScopeNode().Body, addSorts(depth, x.ScopeNode().Arity))
			for s := range span {
				span[s] = max(span[s], inner[s])
			}
			return false
		case *UndecidedExpression:
			if d := x.Decided(); d != nil {
				inner := CapturedSpan(d, depth)
				for s := range span {
					span[s] = max(span[s], inner[s])
				}
				return false
			}
		}
		return true
	})
	return span
}

func addSorts(a, b Sorts) Sorts {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

// LinkScopeTree records, in every scope and comprehension of e, its nearest
// enclosing scope or comprehension. It returns the number of comprehensions
// in e, which each comprehension and scope also keeps.
func LinkScopeTree(e Expression, ancestor Expression) int {
	switch n := e.(type) {
	case Binder:
		s := n.ScopeNode()
		if s.scopeTreeLinked {
			return s.nestedComprehensions
		}
		s.enclosing = ancestor
		s.nestedComprehensions = LinkScopeTree(s.Body, e)
		s.scopeTreeLinked = true
		return s.nestedComprehensions
	case *Comprehension:
		if n.scopeTreeLinked {
			return 1 + n.nestedComprehensions
		}
		n.enclosing = ancestor
		if n.Raw == nil {
			n.nestedComprehensions = LinkScopeTree(n.Construct, e)
		} else {
			count := LinkScopeTree(n.Raw.Expr, e)
			for _, x := range n.Raw.Exprs {
				count += LinkScopeTree(x, e)
			}
			n.nestedComprehensions = count
		}
		n.scopeTreeLinked = true
		return 1 + n.nestedComprehensions
	}
	count := 0
	for _, c := range Children(e) {
		count += LinkScopeTree(c, ancestor)
	}
	return count
}

// EnclosingOf returns the link recorded by LinkScopeTree for a scope or a
// comprehension, and nil for any other node.
func EnclosingOf(e Expression) Expression {
	switch n := e.(type) {
	case Binder:
		return n.ScopeNode().enclosing
	case *Comprehension:
		return n.enclosing
	}
	return nil
}
