package ast

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

var parameterCounter atomic.Int64

// Parameter is a binding site. Every Local occurrence of the bound name
// refers to the same Parameter.
type Parameter struct {
	Base
	ID       int64
	Name     string
	Internal bool
}

// NewParameter returns a parameter called name.
func NewParameter(name string) *Parameter {
	return &Parameter{ID: parameterCounter.Add(1), Name: name}
}

// NewInternalParameter returns a parameter with a fresh synthetic name.
func NewInternalParameter() *Parameter {
	id := parameterCounter.Add(1)
	return &Parameter{ID: id, Name: "?" + strconv.FormatInt(id, 10), Internal: true}
}

// NewTypedParameter returns a fresh synthetic parameter ascribed t.
func NewTypedParameter(t typesystem.Type) *Parameter {
	p := NewInternalParameter()
	AddType(p, t)
	return p
}

// NewVoidParameter is the single parameter of a nullary function.
func NewVoidParameter() *Parameter {
	p := NewParameter("")
	p.SetType(typesystem.Void)
	return p
}

func (p *Parameter) Copy() Expression {
	c := NewParameter(p.Name)
	c.Internal = p.Internal
	if p.Name == "" && typesystem.IsVoid(p.Type()) {
		c.SetType(typesystem.Void)
	}
	return c
}

func (p *Parameter) TypedCopy() Expression {
	c := NewParameter(p.Name)
	c.Internal = p.Internal
	return AddTypes(c, p)
}

func (p *Parameter) NumberOfSubexpressions() int { return 0 }
func (p *Parameter) Subexpression(i int) Expression { noSuch(p, i); return nil }
func (p *Parameter) SetSubexpression(i int, _ Expression) { noSuch(p, i) }
func (p *Parameter) String() string { return p.Name }

// Dummy is an unresolved name as produced by the parser. Name resolution
// replaces it by a Local or a Global.
type Dummy struct {
	Base
	Name string
}

func NewDummy(name string) *Dummy {
	return &Dummy{Name: name}
}

// DummyFor returns a reference to p by name, carrying p's types.
func DummyFor(p *Parameter) *Dummy {
	d := NewDummy(p.Name)
	AddTypes(d, p)
	return d
}

func (d *Dummy) Copy() Expression { return NewDummy(d.Name) }
func (d *Dummy) TypedCopy() Expression { return AddTypes(NewDummy(d.Name), d) }
func (d *Dummy) NumberOfSubexpressions() int { return 0 }
func (d *Dummy) Subexpression(i int) Expression { noSuch(d, i); return nil }
func (d *Dummy) SetSubexpression(i int, _ Expression) { noSuch(d, i) }
func (d *Dummy) String() string { return d.Name }

func (d *Dummy) CheckedType() typesystem.Type {
	Violation(d, "checked type of an unresolved name")
	return nil
}

func (d *Dummy) SetCheckedType(typesystem.Type) {
	Violation(d, "checked type of an unresolved name")
}

// Local is a resolved reference to a Parameter. Its offset counts, among the
// parameters of the same sort, those bound between the reference and its
// binder. It is -1 until sorts are sanitized.
type Local struct {
	Base
	Param  *Parameter
	Offset int
}

func NewLocal(p *Parameter) *Local {
	return &Local{Param: p, Offset: -1}
}

func (l *Local) Name() string { return l.Param.Name }

func (l *Local) Copy() Expression { return NewLocal(l.Param) }

func (l *Local) TypedCopy() Expression {
	c := NewLocal(l.Param)
	c.Offset = l.Offset
	return c
}

func (l *Local) Type() typesystem.Type { return l.Param.Type() }
func (l *Local) SetType(t typesystem.Type) { AddType(l.Param, t) }
func (l *Local) CheckedType() typesystem.Type { return l.Param.CheckedType() }
func (l *Local) SetCheckedType(typesystem.Type) {}
func (l *Local) NumberOfSubexpressions() int { return 0 }
func (l *Local) Subexpression(i int) Expression { noSuch(l, i); return nil }
func (l *Local) SetSubexpression(i int, _ Expression) { noSuch(l, i) }
func (l *Local) String() string { return l.Param.Name }

// DummyLocal stands for the generator variable inside a slicing filter. It
// is neither resolved, offset nor compiled.
type DummyLocal struct {
	Base
	Param *Parameter
}

func NewDummyLocal(p *Parameter) *DummyLocal {
	return &DummyLocal{Param: p}
}

func (l *DummyLocal) Name() string { return l.Param.Name }
func (l *DummyLocal) Copy() Expression { return NewDummyLocal(l.Param) }
func (l *DummyLocal) TypedCopy() Expression { return NewDummyLocal(l.Param) }
func (l *DummyLocal) Type() typesystem.Type { return l.Param.Type() }
func (l *DummyLocal) SetType(t typesystem.Type) { AddType(l.Param, t) }
func (l *DummyLocal) CheckedType() typesystem.Type { return l.Param.CheckedType() }
func (l *DummyLocal) SetCheckedType(typesystem.Type) {}
func (l *DummyLocal) NumberOfSubexpressions() int { return 0 }
func (l *DummyLocal) Subexpression(i int) Expression { noSuch(l, i); return nil }
func (l *DummyLocal) SetSubexpression(i int, _ Expression) { noSuch(l, i) }
func (l *DummyLocal) String() string { return l.Param.Name }

// Global is a reference to a symbol of the global table. Entry is the
// overload selected by the checker.
type Global struct {
	Base
	Symbol *symbols.Symbol
	Entry  symbols.CodeEntry
}

func NewGlobal(s *symbols.Symbol) *Global {
	return &Global{Symbol: s}
}

func (g *Global) Name() string { return g.Symbol.Name() }

func (g *Global) Copy() Expression { return NewGlobal(g.Symbol) }
func (g *Global) TypedCopy() Expression { return AddTypes(NewGlobal(g.Symbol), g) }

// DefinedEntry returns the selected entry when it is a user definition.
func (g *Global) DefinedEntry() (*symbols.DefinedEntry, bool) {
	d, ok := g.Entry.(*symbols.DefinedEntry)
	return d, ok
}

// IsProjection reports whether the selected entry is a field projection.
func (g *Global) IsProjection() bool {
	return g.Entry != nil && g.Entry.IsProjection()
}

func (g *Global) NumberOfSubexpressions() int { return 0 }
func (g *Global) Subexpression(i int) Expression { noSuch(g, i); return nil }
func (g *Global) SetSubexpression(i int, _ Expression) { noSuch(g, i) }
func (g *Global) String() string { return g.Symbol.Name() }

// ConstantKind distinguishes the literal forms.
type ConstantKind int

const (
	VoidConstant ConstantKind = iota
	BoolConstant
	IntConstant
	RealConstant
	CharConstant
	StringConstant
	// NullConstant is the default value of its type.
	NullConstant
)

// Constant is a literal.
type Constant struct {
	Base
	Kind ConstantKind
	Bool bool
	Int  int64
	Real float64
	Str  string
}

func NewVoid() *Constant { return newConstant(&Constant{Kind: VoidConstant}) }

func NewBool(v bool) *Constant { return newConstant(&Constant{Kind: BoolConstant, Bool: v}) }

func NewInt(v int64) *Constant { return newConstant(&Constant{Kind: IntConstant, Int: v}) }

func NewReal(v float64) *Constant { return newConstant(&Constant{Kind: RealConstant, Real: v}) }

func NewChar(v rune) *Constant { return newConstant(&Constant{Kind: CharConstant, Int: int64(v)}) }

func NewString(v string) *Constant { return newConstant(&Constant{Kind: StringConstant, Str: v}) }

// NewNull returns the default value of an unknown type.
func NewNull() *Constant { return newConstant(&Constant{Kind: NullConstant}) }

// NullOf returns the literal default value of t: false, 0, 0.0, "" or null.
func NullOf(t typesystem.Type) *Constant {
	switch typesystem.Deref(t) {
	case typesystem.Void:
		return NewVoid()
	case typesystem.Bool:
		return NewBool(false)
	case typesystem.Int:
		return NewInt(0)
	case typesystem.Real:
		return NewReal(0)
	case typesystem.String:
		return NewString("")
	}
	c := NewNull()
	c.SetType(t)
	return c
}

func newConstant(c *Constant) *Constant {
	switch c.Kind {
	case VoidConstant:
		c.typ = typesystem.Void
	case BoolConstant:
		c.typ = typesystem.Bool
	case IntConstant:
		c.typ = typesystem.Int
	case RealConstant:
		c.typ = typesystem.Real
	case CharConstant:
		c.typ = typesystem.Char
	case StringConstant:
		c.typ = typesystem.String
	}
	return c
}

func (c *Constant) IsVoid() bool { return c.Kind == VoidConstant }
func (c *Constant) IsTrue() bool { return c.Kind == BoolConstant && c.Bool }
func (c *Constant) IsFalse() bool { return c.Kind == BoolConstant && !c.Bool }

// IsNull reports whether c is the default value of its type.
func (c *Constant) IsNull() bool {
	switch c.Kind {
	case NullConstant:
		return true
	case IntConstant:
		return c.Int == 0
	case RealConstant:
		return c.Real == 0
	case StringConstant:
		return c.Str == ""
	}
	return false
}

func (c *Constant) sameValue(o *Constant) bool {
	if c.Kind == NullConstant || o.Kind == NullConstant {
		return c.IsNull() && o.IsNull()
	}
	return c.Kind == o.Kind && c.Bool == o.Bool && c.Int == o.Int && c.Real == o.Real && c.Str == o.Str
}

func (c *Constant) Copy() Expression {
	n := newConstant(&Constant{Kind: c.Kind, Bool: c.Bool, Int: c.Int, Real: c.Real, Str: c.Str})
	n.Token = c.Token
	return n
}

func (c *Constant) TypedCopy() Expression {
	n := c.Copy()
	if c.Kind == NullConstant {
		return AddTypes(n, c)
	}
	return n
}

func (c *Constant) NumberOfSubexpressions() int { return 0 }
func (c *Constant) Subexpression(i int) Expression { noSuch(c, i); return nil }
func (c *Constant) SetSubexpression(i int, _ Expression) { noSuch(c, i) }

func (c *Constant) String() string {
	switch c.Kind {
	case VoidConstant:
		return "()"
	case BoolConstant:
		return strconv.FormatBool(c.Bool)
	case IntConstant:
		return strconv.FormatInt(c.Int, 10)
	case RealConstant:
		return strconv.FormatFloat(c.Real, 'g', -1, 64)
	case CharConstant:
		return strconv.QuoteRune(rune(c.Int))
	case StringConstant:
		return strconv.Quote(c.Str)
	}
	t := c.checked
	if t == nil {
		t = c.Type()
	}
	return fmt.Sprintf("null(%s)", t)
}
