package ast

import (
	"strings"

	"github.com/funvibe/kernel/internal/config"
)

// RawComprehension is a comprehension as written, before translation.
type RawComprehension struct {
	// Operation and Identity stand for the monoid inside the translation.
	// They are the $OP$ and $ID$ names unless let-wrapping is disabled.
	Operation Expression
	Identity  Expression
	Expr      Expression
	// Patterns[i] is nil when qualifier i is a filter.
	Patterns  []Expression
	Exprs     []Expression
	InPlace   config.InPlaceMode
	Desugared bool
}

// NumberOfQualifiers returns the number of qualifiers.
func (r *RawComprehension) NumberOfQualifiers() int { return len(r.Exprs) }

// IsGenerator reports whether qualifier i binds a pattern.
func (r *RawComprehension) IsGenerator(i int) bool { return r.Patterns[i] != nil }

// Comprehension is a monoid comprehension [op, id]{ e | q1, ..., qn }. It
// is raw until the analyzer translates it into Construct.
type Comprehension struct {
	Base
	Operation Expression
	Identity  Expression
	Raw       *RawComprehension
	Construct Expression

	// NoLetWrapping keeps the monoid inline in the translation.
	NoLetWrapping bool

	enclosing Expression
}

// NewComprehension returns a raw comprehension. patterns and exprs run in
// parallel; a nil pattern marks a filter.
func NewComprehension(op, id, expr Expression, patterns, exprs []Expression, inPlace config.InPlaceMode) *Comprehension {
	c := &Comprehension{Operation: op, Identity: id}
	opName := NewDummy(config.MonoidOpName)
	AddTypes(opName, op)
	opName.Token = op.GetToken()
	idName := NewDummy(config.MonoidIdentityName)
	AddTypes(idName, id)
	idName.Token = id.GetToken()
	if patterns == nil {
		patterns = make([]Expression, len(exprs))
	}
	c.Raw = &RawComprehension{
		Operation: opName,
		Identity:  idName,
		Expr:      expr,
		Patterns:  patterns,
		Exprs:     exprs,
		InPlace:   inPlace,
	}
	return c
}

// ConstructedComprehension wraps an already translated expression.
func ConstructedComprehension(construct Expression) *Comprehension {
	return &Comprehension{Construct: construct}
}

// SetNoLetWrapping disables let-wrapping of the monoid.
func (c *Comprehension) SetNoLetWrapping() *Comprehension {
	c.NoLetWrapping = true
	if c.Raw != nil {
		c.Raw.Operation = c.Operation
		c.Raw.Identity = c.Identity
	}
	return c
}

// IsRaw reports whether the comprehension still awaits translation.
func (c *Comprehension) IsRaw() bool { return c.Raw != nil }

// Enclosing is the nearest binder or comprehension above c.
func (c *Comprehension) Enclosing() Expression { return c.enclosing }

func (c *Comprehension) Copy() Expression {
	if c.Raw == nil {
		return ConstructedComprehension(c.Construct.Copy())
	}
	n := NewComprehension(c.Operation.Copy(), c.Identity.Copy(), c.Raw.Expr.Copy(),
		copyPatterns(c.Raw.Patterns, false), copyAll(c.Raw.Exprs), c.Raw.InPlace)
	if c.NoLetWrapping {
		n.SetNoLetWrapping()
	}
	n.Token = c.Token
	return n
}

func (c *Comprehension) TypedCopy() Expression {
	if c.Raw == nil {
		return AddTypes(ConstructedComprehension(c.Construct.TypedCopy()), c)
	}
	n := NewComprehension(c.Operation.TypedCopy(), c.Identity.TypedCopy(), c.Raw.Expr.TypedCopy(),
		copyPatterns(c.Raw.Patterns, true), typedCopyAll(c.Raw.Exprs), c.Raw.InPlace)
	if c.NoLetWrapping {
		n.SetNoLetWrapping()
	}
	n.Token = c.Token
	return AddTypes(n, c)
}

func copyPatterns(ps []Expression, typed bool) []Expression {
	out := make([]Expression, len(ps))
	for i, p := range ps {
		switch {
		case p == nil:
		case typed:
			out[i] = p.TypedCopy()
		default:
			out[i] = p.Copy()
		}
	}
	return out
}

func (c *Comprehension) constructed() Expression {
	if c.Raw != nil {
		Violation(c, "comprehension used before translation")
	}
	return c.Construct
}

func (c *Comprehension) NumberOfSubexpressions() int {
	return c.constructed().NumberOfSubexpressions()
}

func (c *Comprehension) Subexpression(i int) Expression {
	return c.constructed().Subexpression(i)
}

func (c *Comprehension) SetSubexpression(i int, e Expression) {
	c.constructed().SetSubexpression(i, e)
}

func (c *Comprehension) String() string {
	if c.Raw == nil {
		return c.Construct.String()
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(c.Operation.String())
	b.WriteString(", ")
	b.WriteString(c.Identity.String())
	b.WriteString("] { ")
	b.WriteString(c.Raw.Expr.String())
	b.WriteString(" | ")
	for i, e := range c.Raw.Exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		if p := c.Raw.Patterns[i]; p != nil {
			b.WriteString(p.String())
			b.WriteString(" <- ")
		}
		b.WriteString(e.String())
	}
	b.WriteString(" }")
	return b.String()
}

// Homomorphism folds Function over the elements of Collection with the
// monoid (Operation, Identity). Slicings are equalities x.path == e that
// restrict the elements visited to those whose components match.
type Homomorphism struct {
	Base
	Collection Expression
	Function   Expression
	Operation  Expression
	Identity   Expression
	Slicings   []Expression
	InPlace    config.InPlaceMode
}

func NewHomomorphism(coll, fn, op, id Expression) *Homomorphism {
	return &Homomorphism{Collection: coll, Function: fn, Operation: op, Identity: id, InPlace: config.InPlaceDefault}
}

// Parameter returns the generator parameter bound by the function.
func (h *Homomorphism) Parameter() *Parameter {
	return h.Function.(*Scope).Params[0]
}

func (h *Homomorphism) copyInto(c *Homomorphism, typed bool) {
	cp := Expression.Copy
	cpAll := copyAll
	if typed {
		cp = Expression.TypedCopy
		cpAll = typedCopyAll
	}
	c.Token = h.Token
	c.Collection = cp(h.Collection)
	c.Function = cp(h.Function)
	c.Operation = cp(h.Operation)
	c.Identity = cp(h.Identity)
	c.Slicings = cpAll(h.Slicings)
	c.InPlace = h.InPlace
	// Slicings refer to the generator through DummyLocals.
	if fs, ok := h.Function.(*Scope); ok {
		m := map[*Parameter]*Parameter{fs.Params[0]: c.Function.(*Scope).Params[0]}
		for i, s := range c.Slicings {
			c.Slicings[i] = Rebind(s, m)
		}
	}
}

func (h *Homomorphism) Copy() Expression {
	c := &Homomorphism{}
	h.copyInto(c, false)
	return c
}

func (h *Homomorphism) TypedCopy() Expression {
	c := &Homomorphism{}
	h.copyInto(c, true)
	return AddTypes(c, h)
}

func (h *Homomorphism) NumberOfSubexpressions() int { return 4 + len(h.Slicings) }

func (h *Homomorphism) Subexpression(i int) Expression {
	switch i {
	case 0:
		return h.Collection
	case 1:
		return h.Function
	case 2:
		return h.Operation
	case 3:
		return h.Identity
	}
	if s := i - 4; s >= 0 && s < len(h.Slicings) {
		return h.Slicings[s]
	}
	noSuch(h, i)
	return nil
}

func (h *Homomorphism) SetSubexpression(i int, e Expression) {
	switch i {
	case 0:
		h.Collection = e
	case 1:
		h.Function = e
	case 2:
		h.Operation = e
	case 3:
		h.Identity = e
	default:
		if s := i - 4; s >= 0 && s < len(h.Slicings) {
			h.Slicings[s] = e
			return
		}
		noSuch(h, i)
	}
}

func (h *Homomorphism) String() string {
	return "hom(" + h.fields() + ")"
}

func (h *Homomorphism) fields() string {
	s := h.Collection.String() + ", " + h.Function.String() + ", " + h.Operation.String() + ", " + h.Identity.String()
	if len(h.Slicings) > 0 {
		s += ", [" + joinExpressions(h.Slicings, ", ") + "]"
	}
	return s
}

// FilterHomomorphism is a homomorphism that skips the elements rejected by
// Filter, a scope over the generator.
type FilterHomomorphism struct {
	Homomorphism
	Filter Expression
}

func NewFilterHomomorphism(coll, fn, op, id, filter Expression) *FilterHomomorphism {
	return &FilterHomomorphism{Homomorphism: *NewHomomorphism(coll, fn, op, id), Filter: filter}
}

func (h *FilterHomomorphism) copyFilter(c *FilterHomomorphism, typed bool) {
	if h.Filter == nil {
		return
	}
	if typed {
		c.Filter = h.Filter.TypedCopy()
	} else {
		c.Filter = h.Filter.Copy()
	}
}

func (h *FilterHomomorphism) Copy() Expression {
	c := &FilterHomomorphism{}
	h.copyInto(&c.Homomorphism, false)
	h.copyFilter(c, false)
	return c
}

func (h *FilterHomomorphism) TypedCopy() Expression {
	c := &FilterHomomorphism{}
	h.copyInto(&c.Homomorphism, true)
	h.copyFilter(c, true)
	return AddTypes(c, h)
}

func (h *FilterHomomorphism) NumberOfSubexpressions() int {
	if h.Filter == nil {
		return h.Homomorphism.NumberOfSubexpressions()
	}
	return 5 + len(h.Slicings)
}

func (h *FilterHomomorphism) Subexpression(i int) Expression {
	if h.Filter == nil || i < 4 {
		return h.Homomorphism.Subexpression(i)
	}
	if i == 4 {
		return h.Filter
	}
	if s := i - 5; s < len(h.Slicings) {
		return h.Slicings[s]
	}
	noSuch(h, i)
	return nil
}

func (h *FilterHomomorphism) SetSubexpression(i int, e Expression) {
	if h.Filter == nil || i < 4 {
		h.Homomorphism.SetSubexpression(i, e)
		return
	}
	if i == 4 {
		h.Filter = e
		return
	}
	if s := i - 5; s < len(h.Slicings) {
		h.Slicings[s] = e
		return
	}
	noSuch(h, i)
}

func (h *FilterHomomorphism) String() string {
	if h.Filter == nil {
		return "fhom(" + h.fields() + ")"
	}
	return "fhom(" + h.fields() + ", " + h.Filter.String() + ")"
}
