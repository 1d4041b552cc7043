package ast

import (
	"fmt"

	"github.com/funvibe/kernel/internal/token"
	"github.com/funvibe/kernel/internal/typesystem"
)

// TokenProvider is an interface for any node that can provide its source
// location. This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Expression is a node of the kernel expression tree.
//
// Every node owns its subexpressions. The only sharing is between the
// Local occurrences of one Parameter.
type Expression interface {
	TokenProvider
	// Node returns the state shared by every kind of node.
	Node() *Base

	// Copy clones the node structurally. Types are dropped.
	Copy() Expression
	// TypedCopy clones the node and keeps the current type of every
	// subexpression.
	TypedCopy() Expression

	NumberOfSubexpressions() int
	// Subexpression panics with NoSuchSubexpression when i is out of range.
	Subexpression(i int) Expression
	SetSubexpression(i int, e Expression)

	// Type returns the unresolved type cell of the node.
	Type() typesystem.Type
	SetType(t typesystem.Type)
	// CheckedType is the type fixed once checking is over, or nil.
	CheckedType() typesystem.Type
	SetCheckedType(t typesystem.Type)

	String() string
}

// Base is embedded in every node.
type Base struct {
	Token token.Token

	typ     typesystem.Type
	checked typesystem.Type
	others  []typesystem.Type

	typeCheckLocked   bool
	checkedTypeLocked bool

	scopeTreeLinked      bool
	nestedComprehensions int
}

func (b *Base) Node() *Base { return b }

func (b *Base) GetToken() token.Token {
	if b == nil {
		return token.Token{}
	}
	return b.Token
}

func (b *Base) TokenLiteral() string { return b.Token.Lexeme }

// Type returns the node's type cell, creating a fresh variable on first use.
func (b *Base) Type() typesystem.Type {
	if b.typ == nil {
		b.typ = typesystem.NewVar()
	}
	return b.typ
}

// Typed reports whether a type was ascribed to the node or its cell was
// created.
func (b *Base) Typed() bool { return b.typ != nil }

func (b *Base) SetType(t typesystem.Type) {
	if t != nil {
		b.typ = t
	}
}

func (b *Base) CheckedType() typesystem.Type     { return b.checked }
func (b *Base) SetCheckedType(t typesystem.Type) { b.checked = t }

// OtherTypes are the types ascribed to the node beyond its own cell. The
// checker unifies them with the cell.
func (b *Base) OtherTypes() []typesystem.Type { return b.others }

// LockTypeCheck fires the type-check latch. It reports whether the latch had
// already fired, in which case the caller must not check the node again.
func (b *Base) LockTypeCheck() bool {
	if b.typeCheckLocked {
		return true
	}
	b.typeCheckLocked = true
	return false
}

// UnlockTypeCheck re-arms the latch. Only rewrites performed while checking
// the node itself may call it.
func (b *Base) UnlockTypeCheck() { b.typeCheckLocked = false }

// LockCheckedType fires the checked-type latch, reporting whether it had
// already fired.
func (b *Base) LockCheckedType() bool {
	if b.checkedTypeLocked {
		return true
	}
	b.checkedTypeLocked = true
	return false
}

// UnlockCheckedType re-arms the checked-type latch.
func (b *Base) UnlockCheckedType() { b.checkedTypeLocked = false }

// NestedComprehensions is the number of comprehensions below the node, valid
// once the scope tree is linked.
func (b *Base) NestedComprehensions() int { return b.nestedComprehensions }

// AddType ascribes t to e. The first type becomes the node's cell, later
// ones are kept for the checker.
func AddType(e Expression, t typesystem.Type) Expression {
	if t == nil {
		return e
	}
	switch n := e.(type) {
	case *Local:
		AddType(n.Param, t)
		return e
	case *DummyLocal:
		AddType(n.Param, t)
		return e
	case *And, *Or, *Loop, *Sequence:
		return e
	}
	b := e.Node()
	if b.typ == nil {
		b.typ = t
		return e
	}
	if b.typ == t || typesystem.Deref(b.typ) == typesystem.Deref(t) {
		return e
	}
	b.others = append(b.others, t)
	return e
}

// AddTypes ascribes the cell and the other types of from to e.
func AddTypes(e, from Expression) Expression {
	AddType(e, from.Type())
	for _, t := range from.Node().others {
		AddType(e, t)
	}
	return e
}

// WithToken sets the source location of e and returns it.
func WithToken(e Expression, tok token.Token) Expression {
	e.Node().Token = tok
	return e
}

// InvariantViolation is the panic value raised when a phase meets a node it
// must never see, such as a Dummy after name resolution. It is never
// recovered.
type InvariantViolation struct {
	Node    Expression
	Message string
}

func (v InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s (%v)", v.Message, v.Node)
}

// Violation panics with an InvariantViolation.
func Violation(e Expression, format string, args ...any) {
	panic(InvariantViolation{Node: e, Message: fmt.Sprintf(format, args...)})
}

// NoSuchSubexpression is the panic value of an out-of-range subexpression
// access.
type NoSuchSubexpression struct {
	Node  Expression
	Index int
}

func (n NoSuchSubexpression) Error() string {
	return fmt.Sprintf("no subexpression %d in %v", n.Index, n.Node)
}

func noSuch(e Expression, i int) {
	panic(NoSuchSubexpression{Node: e, Index: i})
}

// Equal compares the monoid components of comprehensions: names compare by
// name, globals by symbol, constants by value. Any other nodes are equal
// only to themselves.
func Equal(a, b Expression) bool {
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *Dummy:
		y, ok := b.(*Dummy)
		return ok && x.Name == y.Name
	case *Global:
		y, ok := b.(*Global)
		return ok && x.Symbol == y.Symbol
	case *Local:
		y, ok := b.(*Local)
		return ok && x.Param == y.Param
	case *Constant:
		y, ok := b.(*Constant)
		return ok && x.sameValue(y)
	}
	return false
}

func copyAll(es []Expression) []Expression {
	if es == nil {
		return nil
	}
	out := make([]Expression, len(es))
	for i, e := range es {
		out[i] = e.Copy()
	}
	return out
}

func typedCopyAll(es []Expression) []Expression {
	if es == nil {
		return nil
	}
	out := make([]Expression, len(es))
	for i, e := range es {
		out[i] = e.TypedCopy()
	}
	return out
}
