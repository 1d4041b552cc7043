package ast

import (
	"strings"

	"github.com/funvibe/kernel/internal/typesystem"
)

type IfThenElse struct {
	Base
	Condition Expression
	Then      Expression
	Else      Expression
}

func NewIfThenElse(cond, then, els Expression) *IfThenElse {
	return &IfThenElse{Condition: cond, Then: then, Else: els}
}

func (n *IfThenElse) Copy() Expression {
	c := NewIfThenElse(n.Condition.Copy(), n.Then.Copy(), n.Else.Copy())
	c.Token = n.Token
	return c
}

func (n *IfThenElse) TypedCopy() Expression {
	c := NewIfThenElse(n.Condition.TypedCopy(), n.Then.TypedCopy(), n.Else.TypedCopy())
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *IfThenElse) NumberOfSubexpressions() int { return 3 }

func (n *IfThenElse) Subexpression(i int) Expression {
	switch i {
	case 0:
		return n.Condition
	case 1:
		return n.Then
	case 2:
		return n.Else
	}
	noSuch(n, i)
	return nil
}

func (n *IfThenElse) SetSubexpression(i int, e Expression) {
	switch i {
	case 0:
		n.Condition = e
	case 1:
		n.Then = e
	case 2:
		n.Else = e
	default:
		noSuch(n, i)
	}
}

func (n *IfThenElse) String() string {
	return "if " + n.Condition.String() + " then " + n.Then.String() + " else " + n.Else.String()
}

// binary is the shape shared by the short-circuit connectives.
type binary struct {
	Base
	Left  Expression
	Right Expression
}

func (n *binary) NumberOfSubexpressions() int { return 2 }

func (n *binary) subexpression(self Expression, i int) Expression {
	switch i {
	case 0:
		return n.Left
	case 1:
		return n.Right
	}
	noSuch(self, i)
	return nil
}

func (n *binary) setSubexpression(self Expression, i int, e Expression) {
	switch i {
	case 0:
		n.Left = e
	case 1:
		n.Right = e
	default:
		noSuch(self, i)
	}
}

// And is the short-circuit conjunction.
type And struct{ binary }

func NewAnd(l, r Expression) *And {
	n := &And{binary{Left: l, Right: r}}
	n.typ = typesystem.Bool
	return n
}

func (n *And) Copy() Expression {
	c := NewAnd(n.Left.Copy(), n.Right.Copy())
	c.Token = n.Token
	return c
}

func (n *And) TypedCopy() Expression {
	c := NewAnd(n.Left.TypedCopy(), n.Right.TypedCopy())
	c.Token = n.Token
	c.typ = n.typ
	return c
}

func (n *And) Subexpression(i int) Expression       { return n.subexpression(n, i) }
func (n *And) SetSubexpression(i int, e Expression) { n.setSubexpression(n, i, e) }
func (n *And) String() string                       { return "(" + n.Left.String() + " and " + n.Right.String() + ")" }

// Or is the short-circuit disjunction.
type Or struct{ binary }

func NewOr(l, r Expression) *Or {
	n := &Or{binary{Left: l, Right: r}}
	n.typ = typesystem.Bool
	return n
}

func (n *Or) Copy() Expression {
	c := NewOr(n.Left.Copy(), n.Right.Copy())
	c.Token = n.Token
	return c
}

func (n *Or) TypedCopy() Expression {
	c := NewOr(n.Left.TypedCopy(), n.Right.TypedCopy())
	c.Token = n.Token
	c.typ = n.typ
	return c
}

func (n *Or) Subexpression(i int) Expression       { return n.subexpression(n, i) }
func (n *Or) SetSubexpression(i int, e Expression) { n.setSubexpression(n, i, e) }
func (n *Or) String() string                       { return "(" + n.Left.String() + " or " + n.Right.String() + ")" }

// Sequence evaluates its expressions in order. Its value is the last one.
type Sequence struct {
	Base
	Exprs []Expression
}

func NewSequence(exprs ...Expression) *Sequence {
	return &Sequence{Exprs: exprs}
}

func (n *Sequence) Last() Expression { return n.Exprs[len(n.Exprs)-1] }

func (n *Sequence) Type() typesystem.Type            { return n.Last().Type() }
func (n *Sequence) SetType(t typesystem.Type)        { AddType(n.Last(), t) }
func (n *Sequence) CheckedType() typesystem.Type     { return n.Last().CheckedType() }
func (n *Sequence) SetCheckedType(t typesystem.Type) {}

func (n *Sequence) Copy() Expression {
	c := NewSequence(copyAll(n.Exprs)...)
	c.Token = n.Token
	return c
}

func (n *Sequence) TypedCopy() Expression {
	c := NewSequence(typedCopyAll(n.Exprs)...)
	c.Token = n.Token
	return c
}

func (n *Sequence) NumberOfSubexpressions() int { return len(n.Exprs) }

func (n *Sequence) Subexpression(i int) Expression {
	if i < 0 || i >= len(n.Exprs) {
		noSuch(n, i)
	}
	return n.Exprs[i]
}

func (n *Sequence) SetSubexpression(i int, e Expression) {
	if i < 0 || i >= len(n.Exprs) {
		noSuch(n, i)
	}
	n.Exprs[i] = e
}

func (n *Sequence) String() string {
	return "{" + joinExpressions(n.Exprs, "; ") + "}"
}

// Loop repeats Body while Condition holds.
type Loop struct {
	Base
	Condition Expression
	Body      Expression
}

func NewLoop(cond, body Expression) *Loop {
	n := &Loop{Condition: cond, Body: body}
	n.typ = typesystem.Void
	return n
}

func (n *Loop) Copy() Expression {
	c := NewLoop(n.Condition.Copy(), n.Body.Copy())
	c.Token = n.Token
	return c
}

func (n *Loop) TypedCopy() Expression {
	c := NewLoop(n.Condition.TypedCopy(), n.Body.TypedCopy())
	c.Token = n.Token
	return c
}

func (n *Loop) NumberOfSubexpressions() int { return 2 }

func (n *Loop) Subexpression(i int) Expression {
	switch i {
	case 0:
		return n.Condition
	case 1:
		return n.Body
	}
	noSuch(n, i)
	return nil
}

func (n *Loop) SetSubexpression(i int, e Expression) {
	switch i {
	case 0:
		n.Condition = e
	case 1:
		n.Body = e
	default:
		noSuch(n, i)
	}
}

func (n *Loop) String() string {
	return "while " + n.Condition.String() + " do " + n.Body.String()
}

// ExitWithValue leaves the innermost exitable abstraction, which returns
// Value.
type ExitWithValue struct {
	Base
	Value Expression
}

func NewExitWithValue(v Expression) *ExitWithValue {
	return &ExitWithValue{Value: v}
}

func (n *ExitWithValue) Copy() Expression {
	c := NewExitWithValue(n.Value.Copy())
	c.Token = n.Token
	return c
}

func (n *ExitWithValue) TypedCopy() Expression {
	c := NewExitWithValue(n.Value.TypedCopy())
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *ExitWithValue) NumberOfSubexpressions() int { return 1 }

func (n *ExitWithValue) Subexpression(i int) Expression {
	if i != 0 {
		noSuch(n, i)
	}
	return n.Value
}

func (n *ExitWithValue) SetSubexpression(i int, e Expression) {
	if i != 0 {
		noSuch(n, i)
	}
	n.Value = e
}

func (n *ExitWithValue) String() string { return "exit " + n.Value.String() }

// DummyAssignment assigns to a name not resolved yet.
type DummyAssignment struct {
	Base
	Name  string
	Value Expression
}

func NewDummyAssignment(name string, v Expression) *DummyAssignment {
	return &DummyAssignment{Name: name, Value: v}
}

func (n *DummyAssignment) Copy() Expression {
	c := NewDummyAssignment(n.Name, n.Value.Copy())
	c.Token = n.Token
	return c
}

func (n *DummyAssignment) TypedCopy() Expression {
	c := NewDummyAssignment(n.Name, n.Value.TypedCopy())
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *DummyAssignment) NumberOfSubexpressions() int { return 1 }

func (n *DummyAssignment) Subexpression(i int) Expression {
	if i != 0 {
		noSuch(n, i)
	}
	return n.Value
}

func (n *DummyAssignment) SetSubexpression(i int, e Expression) {
	if i != 0 {
		noSuch(n, i)
	}
	n.Value = e
}

func (n *DummyAssignment) String() string { return n.Name + " := " + n.Value.String() }

// LocalAssignment stores into a parameter.
type LocalAssignment struct {
	Base
	Target *Local
	Value  Expression
}

func NewLocalAssignment(target *Local, v Expression) *LocalAssignment {
	return &LocalAssignment{Target: target, Value: v}
}

func (n *LocalAssignment) Copy() Expression {
	c := NewLocalAssignment(n.Target.Copy().(*Local), n.Value.Copy())
	c.Token = n.Token
	return c
}

func (n *LocalAssignment) TypedCopy() Expression {
	c := NewLocalAssignment(n.Target.TypedCopy().(*Local), n.Value.TypedCopy())
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *LocalAssignment) NumberOfSubexpressions() int { return 2 }

func (n *LocalAssignment) Subexpression(i int) Expression {
	switch i {
	case 0:
		return n.Target
	case 1:
		return n.Value
	}
	noSuch(n, i)
	return nil
}

func (n *LocalAssignment) SetSubexpression(i int, e Expression) {
	switch i {
	case 0:
		n.Target = e.(*Local)
	case 1:
		n.Value = e
	default:
		noSuch(n, i)
	}
}

func (n *LocalAssignment) String() string { return n.Target.String() + " := " + n.Value.String() }

// GlobalAssignment stores into a scalar global.
type GlobalAssignment struct {
	Base
	Target *Global
	Value  Expression
}

func NewGlobalAssignment(target *Global, v Expression) *GlobalAssignment {
	return &GlobalAssignment{Target: target, Value: v}
}

func (n *GlobalAssignment) Copy() Expression {
	c := NewGlobalAssignment(n.Target.Copy().(*Global), n.Value.Copy())
	c.Token = n.Token
	return c
}

func (n *GlobalAssignment) TypedCopy() Expression {
	c := NewGlobalAssignment(n.Target.TypedCopy().(*Global), n.Value.TypedCopy())
	c.Token = n.Token
	return AddTypes(c, n)
}

func (n *GlobalAssignment) NumberOfSubexpressions() int { return 2 }

func (n *GlobalAssignment) Subexpression(i int) Expression {
	switch i {
	case 0:
		return n.Target
	case 1:
		return n.Value
	}
	noSuch(n, i)
	return nil
}

func (n *GlobalAssignment) SetSubexpression(i int, e Expression) {
	switch i {
	case 0:
		n.Target = e.(*Global)
	case 1:
		n.Value = e
	default:
		noSuch(n, i)
	}
}

func (n *GlobalAssignment) String() string { return n.Target.String() + " := " + n.Value.String() }

// UndecidedExpression holds two readings of an ambiguous construct. The
// checker keeps the first one that types and records it in Choice.
type UndecidedExpression struct {
	Base
	First  Expression
	Second Expression
	// Choice is 0 or 1 once decided, -1 before.
	Choice int
}

func NewUndecided(first, second Expression) *UndecidedExpression {
	return &UndecidedExpression{First: first, Second: second, Choice: -1}
}

// Decided returns the chosen reading, or nil.
func (n *UndecidedExpression) Decided() Expression {
	switch n.Choice {
	case 0:
		return n.First
	case 1:
		return n.Second
	}
	return nil
}

func (n *UndecidedExpression) Copy() Expression {
	c := NewUndecided(n.First.Copy(), n.Second.Copy())
	c.Token = n.Token
	return c
}

func (n *UndecidedExpression) TypedCopy() Expression {
	c := NewUndecided(n.First.TypedCopy(), n.Second.TypedCopy())
	c.Token = n.Token
	c.Choice = n.Choice
	return AddTypes(c, n)
}

func (n *UndecidedExpression) NumberOfSubexpressions() int { return 2 }

func (n *UndecidedExpression) Subexpression(i int) Expression {
	switch i {
	case 0:
		return n.First
	case 1:
		return n.Second
	}
	noSuch(n, i)
	return nil
}

func (n *UndecidedExpression) SetSubexpression(i int, e Expression) {
	switch i {
	case 0:
		n.First = e
	case 1:
		n.Second = e
	default:
		noSuch(n, i)
	}
}

func (n *UndecidedExpression) String() string {
	if d := n.Decided(); d != nil {
		return d.String()
	}
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(n.First.String())
	b.WriteString(" | ")
	b.WriteString(n.Second.String())
	b.WriteString(")")
	return b.String()
}
