package ast

import (
	"strings"

	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Binder is implemented by the nodes that bind parameters.
type Binder interface {
	Expression
	ScopeNode() *Scope
}

// Scope binds Params in Body. A scope evaluates to a function; it appears
// as the function of a Let or as a component of a homomorphism.
type Scope struct {
	Base
	Params []*Parameter
	Body   Expression

	// Arity counts the parameters of each sort, indexed by Sort.Index.
	Arity [typesystem.NumSorts]int

	enclosing     Expression
	sortSanitized bool
}

// NewScope binds params in body. A nested plain scope is merged into the
// new one; no parameters means a single void parameter.
func NewScope(params []*Parameter, body Expression) *Scope {
	s := &Scope{}
	s.init(params, body)
	return s
}

func (s *Scope) init(params []*Parameter, body Expression) {
	if len(params) == 0 {
		params = []*Parameter{NewVoidParameter()}
	}
	if inner, ok := body.(*Scope); ok {
		params = append(append([]*Parameter(nil), params...), inner.Params...)
		body = inner.Body
	}
	s.Params = params
	s.Body = body
}

func (s *Scope) ScopeNode() *Scope { return s }

// Enclosing is the nearest binder or comprehension above the scope, once
// the scope tree is linked.
func (s *Scope) Enclosing() Expression { return s.enclosing }

// SortSanitized reports whether offsets below the scope are final.
func (s *Scope) SortSanitized() bool { return s.sortSanitized }

func (s *Scope) MarkSortSanitized() { s.sortSanitized = true }

// ParamIndex returns the position of the parameter called name, or -1.
func (s *Scope) ParamIndex(name string) int {
	for i, p := range s.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// SetSortedArities counts the non-void parameters of each sort.
func (s *Scope) SetSortedArities() {
	s.Arity = [typesystem.NumSorts]int{}
	for _, p := range s.Params {
		t := p.CheckedType()
		if t == nil {
			t = p.Type()
		}
		if typesystem.IsVoid(t) {
			continue
		}
		s.Arity[typesystem.BoxSortOf(t).Index()]++
	}
}

// VoidArity reports whether every parameter is void.
func (s *Scope) VoidArity() bool {
	return s.Arity == [typesystem.NumSorts]int{}
}

func (s *Scope) copyParams(typed bool) ([]*Parameter, map[*Parameter]*Parameter) {
	params := make([]*Parameter, len(s.Params))
	m := make(map[*Parameter]*Parameter, len(s.Params))
	for i, p := range s.Params {
		var c Expression
		if typed {
			c = p.TypedCopy()
		} else {
			c = p.Copy()
		}
		params[i] = c.(*Parameter)
		m[p] = params[i]
	}
	return params, m
}

func (s *Scope) Copy() Expression {
	params, m := s.copyParams(false)
	return &Scope{Base: Base{Token: s.Token}, Params: params, Body: Rebind(s.Body.Copy(), m)}
}

func (s *Scope) TypedCopy() Expression {
	params, m := s.copyParams(true)
	c := &Scope{Base: Base{Token: s.Token}, Params: params, Body: Rebind(s.Body.TypedCopy(), m)}
	c.Arity = s.Arity
	return AddTypes(c, s)
}

func (s *Scope) NumberOfSubexpressions() int { return 1 }

func (s *Scope) Subexpression(i int) Expression {
	if i != 0 {
		noSuch(s, i)
	}
	return s.Body
}

func (s *Scope) SetSubexpression(i int, e Expression) {
	if i != 0 {
		noSuch(s, i)
	}
	s.Body = e
}

func (s *Scope) String() string {
	return "\\" + paramList(s.Params) + "." + s.Body.String()
}

func paramList(params []*Parameter) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return strings.Join(names, " ")
}

// Abstraction is a user lambda. Unlike a plain scope it is compiled to a
// closure, and an exitable abstraction is the target of ExitWithValue.
type Abstraction struct {
	Scope
	Exitable bool

	// FrameSize counts, per sort, the entries of the creating environment
	// captured by the closure.
	FrameSize [typesystem.NumSorts]int
}

// NewAbstraction binds params in body, merging a directly nested
// abstraction.
func NewAbstraction(params []*Parameter, body Expression) *Abstraction {
	a := &Abstraction{Exitable: true}
	if inner, ok := body.(*Abstraction); ok {
		params = append(append([]*Parameter(nil), params...), inner.Params...)
		a.Exitable = inner.Exitable
		body = inner.Body
	}
	a.init(params, body)
	return a
}

func (a *Abstraction) Copy() Expression {
	params, m := a.copyParams(false)
	c := &Abstraction{Exitable: a.Exitable}
	c.Token = a.Token
	c.Params = params
	c.Body = Rebind(a.Body.Copy(), m)
	return c
}

func (a *Abstraction) TypedCopy() Expression {
	params, m := a.copyParams(true)
	c := &Abstraction{Exitable: a.Exitable, FrameSize: a.FrameSize}
	c.Token = a.Token
	c.Params = params
	c.Body = Rebind(a.Body.TypedCopy(), m)
	c.Arity = a.Arity
	return AddTypes(c, a)
}

func (a *Abstraction) String() string {
	return "\\" + paramList(a.Params) + ":" + a.Body.String()
}

// Application applies Function to Args. With NoCurrying the arguments must
// match the parameters of the function one to one.
type Application struct {
	Base
	Function   Expression
	Args       []Expression
	NoCurrying bool
}

// NewApplication applies f to args; no arguments means the void constant.
func NewApplication(f Expression, args ...Expression) *Application {
	if len(args) == 0 {
		args = []Expression{NewVoid()}
	}
	return &Application{Function: f, Args: args}
}

// Flatten merges the applications nested in function position, so that
// f(a)(b) becomes f(a, b).
func (a *Application) Flatten() *Application {
	for {
		inner, ok := a.Function.(*Application)
		if !ok || inner.NoCurrying || a.NoCurrying {
			return a
		}
		a.Args = append(append([]Expression(nil), inner.Args...), a.Args...)
		a.Function = inner.Function
	}
}

// Arg returns the i-th argument, starting at zero.
func (a *Application) Arg(i int) Expression { return a.Args[i] }

func (a *Application) Copy() Expression {
	c := &Application{Function: a.Function.Copy(), Args: copyAll(a.Args), NoCurrying: a.NoCurrying}
	c.Token = a.Token
	return c
}

func (a *Application) TypedCopy() Expression {
	c := &Application{Function: a.Function.TypedCopy(), Args: typedCopyAll(a.Args), NoCurrying: a.NoCurrying}
	c.Token = a.Token
	return AddTypes(c, a)
}

func (a *Application) NumberOfSubexpressions() int { return len(a.Args) + 1 }

func (a *Application) Subexpression(i int) Expression {
	switch {
	case i == 0:
		return a.Function
	case i > 0 && i <= len(a.Args):
		return a.Args[i-1]
	}
	noSuch(a, i)
	return nil
}

func (a *Application) SetSubexpression(i int, e Expression) {
	switch {
	case i == 0:
		a.Function = e
	case i > 0 && i <= len(a.Args):
		a.Args[i-1] = e
	default:
		noSuch(a, i)
	}
}

func (a *Application) String() string {
	return a.Function.String() + "(" + joinExpressions(a.Args, ", ") + ")"
}

func joinExpressions(es []Expression, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

// Let binds the parameters of its scope to its arguments.
type Let struct {
	Application
}

func NewLet(params []*Parameter, args []Expression, body Expression) *Let {
	l := &Let{}
	l.Function = NewScope(params, body)
	l.Args = args
	l.NoCurrying = true
	return l
}

// LetOf wraps an existing scope.
func LetOf(s *Scope, args []Expression) *Let {
	l := &Let{}
	l.Function = s
	l.Args = args
	l.NoCurrying = true
	return l
}

// Scope returns the bound scope.
func (l *Let) Scope() *Scope { return l.Function.(*Scope) }

func (l *Let) Copy() Expression {
	c := LetOf(l.Scope().Copy().(*Scope), copyAll(l.Args))
	c.Token = l.Token
	return c
}

func (l *Let) TypedCopy() Expression {
	c := LetOf(l.Scope().TypedCopy().(*Scope), typedCopyAll(l.Args))
	c.Token = l.Token
	return AddTypes(c, l)
}

func (l *Let) String() string {
	s := l.Scope()
	var b strings.Builder
	b.WriteString("let ")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(" = ")
		if i < len(l.Args) {
			b.WriteString(l.Args[i].String())
		}
	}
	b.WriteString(" in ")
	b.WriteString(s.Body.String())
	return b.String()
}

// Definition binds a global name. Entry is the code entry registered for it
// by the checker.
type Definition struct {
	Base
	Symbol *symbols.Symbol
	Body   Expression
	Entry  *symbols.DefinedEntry
}

func NewDefinition(s *symbols.Symbol, body Expression) *Definition {
	return &Definition{Symbol: s, Body: body}
}

func (d *Definition) Copy() Expression {
	c := NewDefinition(d.Symbol, d.Body.Copy())
	c.Token = d.Token
	return c
}

func (d *Definition) TypedCopy() Expression {
	c := NewDefinition(d.Symbol, d.Body.TypedCopy())
	c.Token = d.Token
	c.Entry = d.Entry
	return AddTypes(c, d)
}

func (d *Definition) NumberOfSubexpressions() int { return 1 }

func (d *Definition) Subexpression(i int) Expression {
	if i != 0 {
		noSuch(d, i)
	}
	return d.Body
}

func (d *Definition) SetSubexpression(i int, e Expression) {
	if i != 0 {
		noSuch(d, i)
	}
	d.Body = e
}

func (d *Definition) String() string {
	return d.Symbol.Name() + " = " + d.Body.String()
}
