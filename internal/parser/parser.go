// Package parser reads expression documents. A document is YAML: each top
// level item is one expression or definition, written with the forms below.
// A document written as a block list holds one unit per item, unless it is
// tagged !call; a flow list such as [f, a] is a single application.
//
//	42, 1.5, true, null      constants
//	"text", !char a, !void   string, char and void constants
//	x, +, !name "-"          names
//	[f, a, b]                application of f to a and b
//	{fn: [x, {y: int}], body: e, exitable: false}
//	{let: [{x: e1}, {y: e2}], in: e}
//	{def: f, body: e}
//	{if: [c, t, e]}, {and: [a, b]}, {or: [a, b]}, {seq: [...]}
//	{while: [c, e]}, {exit: e}, {assign: [x, e]}
//	{tuple: [...]}, {record: {a: e, b: e}}, {proj: [e, 1]}, {proj: [e, a]}
//	[a, e]                   field a of a record; every record shape written
//	                         in a document or a type declares its fields
//	{set: [...]}, {list: [...]}, {bag: [...]}
//	{array: [dims...], of: T}, {items: [...], index: e}
//	{at: [a, i]}, {store: [a, i, v]}
//	{comp: [op, id], yield: e, where: [{gen: [p, c]}, filter...], in_place: enabled}
//	{either: [a, b]}, {as: [e, T]}
package parser

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/token"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Parser builds raw expression trees. Definitions name symbols of tables.
type Parser struct {
	tables *symbols.Tables
}

func New(tables *symbols.Tables) *Parser {
	return &Parser{tables: tables}
}

// ParseDocument returns the top-level expressions of src in order. A YAML
// stream may hold several documents; a document that is a block sequence
// holds one expression per item.
func (p *Parser) ParseDocument(src []byte) ([]ast.Expression, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	var out []ast.Expression
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, diagnostics.Wrap(diagnostics.ErrL001, token.Token{}, err)
		}
		if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
			continue
		}
		root := doc.Content[0]
		items := []*yaml.Node{root}
		if root.Kind == yaml.SequenceNode && root.Style&yaml.FlowStyle == 0 && root.Tag != "!call" {
			items = root.Content
		}
		for _, n := range items {
			e, err := p.ParseExpression(n)
			if err != nil {
				return out, err
			}
			out = append(out, e)
		}
	}
}

// ParseExpression builds the expression written by n.
func (p *Parser) ParseExpression(n *yaml.Node) (ast.Expression, error) {
	e, err := p.parse(n)
	if err != nil {
		return nil, err
	}
	if e.GetToken().IsZero() {
		ast.WithToken(e, tokenOf(n))
	}
	return e, nil
}

func tokenOf(n *yaml.Node) token.Token {
	return token.Token{Line: n.Line, Column: n.Column, Lexeme: n.Value}
}

func errorAt(n *yaml.Node, format string, args ...any) error {
	return diagnostics.Errorf(diagnostics.ErrL001, tokenOf(n), format, args...)
}

func (p *Parser) parse(n *yaml.Node) (ast.Expression, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return p.parseScalar(n)
	case yaml.SequenceNode:
		return p.parseApplication(n)
	case yaml.MappingNode:
		return p.parseForm(n)
	case yaml.AliasNode:
		return p.parse(n.Alias)
	}
	return nil, errorAt(n, "unexpected YAML node")
}

func (p *Parser) parseScalar(n *yaml.Node) (ast.Expression, error) {
	switch n.Tag {
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, errorAt(n, "bad integer %q", n.Value)
		}
		return ast.NewInt(v), nil
	case "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			return nil, errorAt(n, "bad real %q", n.Value)
		}
		return ast.NewReal(v), nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, errorAt(n, "bad boolean %q", n.Value)
		}
		return ast.NewBool(v), nil
	case "!!null":
		return ast.NewNull(), nil
	case "!char":
		r, size := utf8.DecodeRuneInString(n.Value)
		if size == 0 || size != len(n.Value) {
			return nil, errorAt(n, "a char constant holds one character, got %q", n.Value)
		}
		return ast.NewChar(r), nil
	case "!void":
		return ast.NewVoid(), nil
	case "!str":
		return ast.NewString(n.Value), nil
	case "!name":
		return ast.NewDummy(n.Value), nil
	}
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return ast.NewString(n.Value), nil
	}
	return ast.NewDummy(n.Value), nil
}

func (p *Parser) parseApplication(n *yaml.Node) (ast.Expression, error) {
	if len(n.Content) == 0 {
		return nil, errorAt(n, "empty application")
	}
	parts, err := p.parseAll(n.Content)
	if err != nil {
		return nil, err
	}
	return ast.NewApplication(parts[0], parts[1:]...), nil
}

func (p *Parser) parseAll(ns []*yaml.Node) ([]ast.Expression, error) {
	out := make([]ast.Expression, len(ns))
	for i, c := range ns {
		e, err := p.ParseExpression(c)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// form is a mapping node seen as keyword arguments.
type form struct {
	node *yaml.Node
	head string
	args map[string]*yaml.Node
}

func newForm(n *yaml.Node) (*form, error) {
	if len(n.Content) == 0 {
		return nil, errorAt(n, "empty form")
	}
	f := &form{node: n, head: n.Content[0].Value, args: make(map[string]*yaml.Node)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		if _, dup := f.args[k]; dup {
			return nil, errorAt(n.Content[i], "duplicate key %q", k)
		}
		f.args[k] = n.Content[i+1]
	}
	return f, nil
}

func (f *form) get(key string) (*yaml.Node, error) {
	v, ok := f.args[key]
	if !ok {
		return nil, errorAt(f.node, "%s: missing %q", f.head, key)
	}
	return v, nil
}

// list returns the items of key, which must be a sequence of length n
// unless n is negative.
func (f *form) list(key string, n int) ([]*yaml.Node, error) {
	v, err := f.get(key)
	if err != nil {
		return nil, err
	}
	if v.Kind != yaml.SequenceNode {
		return nil, errorAt(v, "%s: expected a list", key)
	}
	if n >= 0 && len(v.Content) != n {
		return nil, errorAt(v, "%s: expected %d items, got %d", key, n, len(v.Content))
	}
	return v.Content, nil
}

func (p *Parser) parseForm(n *yaml.Node) (ast.Expression, error) {
	f, err := newForm(n)
	if err != nil {
		return nil, err
	}
	switch f.head {
	case "fn":
		return p.parseAbstraction(f)
	case "let":
		return p.parseLet(f)
	case "def":
		name, err := f.get("def")
		if err != nil {
			return nil, err
		}
		body, err := p.parseKey(f, "body")
		if err != nil {
			return nil, err
		}
		return ast.NewDefinition(p.tables.Symbol(name.Value), body), nil
	case "if":
		items, err := f.list("if", -1)
		if err != nil {
			return nil, err
		}
		if len(items) != 2 && len(items) != 3 {
			return nil, errorAt(n, "if: expected a condition and one or two branches")
		}
		parts, err := p.parseAll(items)
		if err != nil {
			return nil, err
		}
		if len(parts) == 2 {
			parts = append(parts, ast.WithToken(ast.NewVoid(), tokenOf(n)))
		}
		return ast.NewIfThenElse(parts[0], parts[1], parts[2]), nil
	case "and", "or":
		parts, err := p.parseList(f, f.head, 2)
		if err != nil {
			return nil, err
		}
		if f.head == "and" {
			return ast.NewAnd(parts[0], parts[1]), nil
		}
		return ast.NewOr(parts[0], parts[1]), nil
	case "seq":
		parts, err := p.parseList(f, "seq", -1)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			return nil, errorAt(n, "seq: empty sequence")
		}
		return ast.NewSequence(parts...), nil
	case "while":
		parts, err := p.parseList(f, "while", 2)
		if err != nil {
			return nil, err
		}
		return ast.NewLoop(parts[0], parts[1]), nil
	case "exit":
		v, err := p.parseKey(f, "exit")
		if err != nil {
			return nil, err
		}
		return ast.NewExitWithValue(v), nil
	case "assign":
		items, err := f.list("assign", 2)
		if err != nil {
			return nil, err
		}
		v, err := p.ParseExpression(items[1])
		if err != nil {
			return nil, err
		}
		return ast.NewDummyAssignment(items[0].Value, v), nil
	case "tuple":
		parts, err := p.parseList(f, "tuple", -1)
		if err != nil {
			return nil, err
		}
		return ast.NewTuple(parts...), nil
	case "record":
		return p.parseRecord(f)
	case "proj":
		items, err := f.list("proj", 2)
		if err != nil {
			return nil, err
		}
		tuple, err := p.ParseExpression(items[0])
		if err != nil {
			return nil, err
		}
		field := ast.NewString(items[1].Value)
		if items[1].Tag == "!!int" {
			pos, err := strconv.Atoi(items[1].Value)
			if err != nil {
				return nil, errorAt(items[1], "bad position %q", items[1].Value)
			}
			field = ast.NewInt(int64(pos))
		}
		ast.WithToken(field, tokenOf(items[1]))
		return ast.NewTupleProjection(tuple, field), nil
	case "set", "list", "bag":
		parts, err := p.parseList(f, f.head, -1)
		if err != nil {
			return nil, err
		}
		kind := map[string]typesystem.CollectionKind{
			"set": typesystem.SetKind, "list": typesystem.ListKind, "bag": typesystem.BagKind,
		}[f.head]
		return ast.NewCollectionOf(kind, parts...), nil
	case "array":
		dims, err := p.parseList(f, "array", -1)
		if err != nil {
			return nil, err
		}
		if len(dims) == 0 {
			return nil, errorAt(n, "array: at least one dimension is required")
		}
		elem, err := p.parseTypeKey(f, "of")
		if err != nil {
			return nil, err
		}
		return ast.NewArrayOf(elem, dims...), nil
	case "items":
		elems, err := p.parseList(f, "items", -1)
		if err != nil {
			return nil, err
		}
		var index ast.Expression
		if _, ok := f.args["index"]; ok {
			if index, err = p.parseKey(f, "index"); err != nil {
				return nil, err
			}
		}
		return ast.NewArrayExtension(index, elems...), nil
	case "at":
		parts, err := p.parseList(f, "at", 2)
		if err != nil {
			return nil, err
		}
		return ast.NewArraySlot(parts[0], parts[1]), nil
	case "store":
		parts, err := p.parseList(f, "store", 3)
		if err != nil {
			return nil, err
		}
		slot := ast.NewArraySlot(parts[0], parts[1])
		ast.WithToken(slot, tokenOf(n))
		return ast.NewArraySlotUpdate(slot, parts[2]), nil
	case "comp":
		return p.parseComprehension(f)
	case "either":
		parts, err := p.parseList(f, "either", 2)
		if err != nil {
			return nil, err
		}
		return ast.NewUndecided(parts[0], parts[1]), nil
	case "as":
		items, err := f.list("as", 2)
		if err != nil {
			return nil, err
		}
		e, err := p.ParseExpression(items[0])
		if err != nil {
			return nil, err
		}
		t, err := p.parseType(items[1])
		if err != nil {
			return nil, err
		}
		return ast.AddType(e, t), nil
	}
	return nil, errorAt(n.Content[0], "unknown form %q", f.head)
}

func (p *Parser) parseKey(f *form, key string) (ast.Expression, error) {
	v, err := f.get(key)
	if err != nil {
		return nil, err
	}
	return p.ParseExpression(v)
}

func (p *Parser) parseList(f *form, key string, n int) ([]ast.Expression, error) {
	items, err := f.list(key, n)
	if err != nil {
		return nil, err
	}
	return p.parseAll(items)
}

func (p *Parser) parseTypeKey(f *form, key string) (typesystem.Type, error) {
	v, err := f.get(key)
	if err != nil {
		return nil, err
	}
	return p.parseType(v)
}

// parseType reads a type. Each record shape written in it declares its
// field accessors.
func (p *Parser) parseType(n *yaml.Node) (typesystem.Type, error) {
	t, err := ParseType(n.Value, tokenOf(n))
	if err != nil {
		return nil, err
	}
	p.declareFields(t)
	return t, nil
}

func (p *Parser) declareFields(t typesystem.Type) {
	switch tt := t.(type) {
	case *typesystem.TNamedTuple:
		names := make([]string, len(tt.Fields))
		for i, f := range tt.Fields {
			names[i] = f.Name
			p.declareFields(f.Type)
		}
		p.tables.DeclareFields(names)
	case *typesystem.TTuple:
		for _, e := range tt.Elems {
			p.declareFields(e)
		}
	case *typesystem.TCollection:
		p.declareFields(tt.Elem)
	case *typesystem.TArray:
		p.declareFields(tt.Index)
		p.declareFields(tt.Elem)
	case *typesystem.TFunc:
		for _, param := range tt.Params {
			p.declareFields(param)
		}
		p.declareFields(tt.ReturnType)
	}
}

// parseParameter reads "x" or "{x: type}".
func (p *Parser) parseParameter(n *yaml.Node) (*ast.Parameter, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		param := ast.NewParameter(n.Value)
		param.Token = tokenOf(n)
		return param, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, errorAt(n, "a parameter is a name or {name: type}")
		}
		param := ast.NewParameter(n.Content[0].Value)
		param.Token = tokenOf(n.Content[0])
		t, err := p.parseType(n.Content[1])
		if err != nil {
			return nil, err
		}
		ast.AddType(param, t)
		return param, nil
	}
	return nil, errorAt(n, "a parameter is a name or {name: type}")
}

func (p *Parser) parseAbstraction(f *form) (ast.Expression, error) {
	items, err := f.list("fn", -1)
	if err != nil {
		return nil, err
	}
	params := make([]*ast.Parameter, 0, len(items))
	for _, it := range items {
		param, err := p.parseParameter(it)
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	if len(params) == 0 {
		params = append(params, ast.NewVoidParameter())
	}
	body, err := p.parseKey(f, "body")
	if err != nil {
		return nil, err
	}
	abs := ast.NewAbstraction(params, body)
	if v, ok := f.args["exitable"]; ok {
		if err := v.Decode(&abs.Exitable); err != nil {
			return nil, errorAt(v, "exitable: expected a boolean")
		}
	}
	return abs, nil
}

// parseLet reads bindings written {x: e} or {x: e, type: T}.
func (p *Parser) parseLet(f *form) (ast.Expression, error) {
	items, err := f.list("let", -1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errorAt(f.node, "let: no bindings")
	}
	params := make([]*ast.Parameter, len(items))
	args := make([]ast.Expression, len(items))
	for i, it := range items {
		if it.Kind != yaml.MappingNode {
			return nil, errorAt(it, "let: a binding is {name: expression}")
		}
		b, err := newForm(it)
		if err != nil {
			return nil, err
		}
		params[i] = ast.NewParameter(b.head)
		params[i].Token = tokenOf(it.Content[0])
		if args[i], err = p.parseKey(b, b.head); err != nil {
			return nil, err
		}
		if _, ok := b.args["type"]; ok {
			t, err := p.parseTypeKey(b, "type")
			if err != nil {
				return nil, err
			}
			ast.AddType(params[i], t)
		}
	}
	body, err := p.parseKey(f, "in")
	if err != nil {
		return nil, err
	}
	return ast.NewLet(params, args, body), nil
}

func (p *Parser) parseRecord(f *form) (ast.Expression, error) {
	v, err := f.get("record")
	if err != nil {
		return nil, err
	}
	if v.Kind != yaml.MappingNode {
		return nil, errorAt(v, "record: expected a mapping of fields")
	}
	var names []string
	var elems []ast.Expression
	for i := 0; i+1 < len(v.Content); i += 2 {
		e, err := p.ParseExpression(v.Content[i+1])
		if err != nil {
			return nil, err
		}
		names = append(names, v.Content[i].Value)
		elems = append(elems, e)
	}
	p.tables.DeclareFields(names)
	return ast.NewNamedTuple(names, elems), nil
}

func (p *Parser) parseComprehension(f *form) (ast.Expression, error) {
	monoid, err := p.parseList(f, "comp", 2)
	if err != nil {
		return nil, err
	}
	yield, err := p.parseKey(f, "yield")
	if err != nil {
		return nil, err
	}

	var patterns, exprs []ast.Expression
	if _, ok := f.args["where"]; ok {
		quals, err := f.list("where", -1)
		if err != nil {
			return nil, err
		}
		for _, q := range quals {
			if q.Kind == yaml.MappingNode && len(q.Content) == 2 && q.Content[0].Value == "gen" {
				g, err := newForm(q)
				if err != nil {
					return nil, err
				}
				parts, err := p.parseList(g, "gen", 2)
				if err != nil {
					return nil, err
				}
				patterns = append(patterns, parts[0])
				exprs = append(exprs, parts[1])
				continue
			}
			e, err := p.ParseExpression(q)
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, nil)
			exprs = append(exprs, e)
		}
	}

	mode := config.InPlaceDefault
	if v, ok := f.args["in_place"]; ok {
		mode = config.InPlaceMode(v.Value)
		switch mode {
		case config.InPlaceDefault, config.InPlaceEnabled, config.InPlaceDisabled:
		default:
			return nil, errorAt(v, "in_place: expected default, enabled or disabled")
		}
	}
	c := ast.NewComprehension(monoid[0], monoid[1], yield, patterns, exprs, mode)
	if v, ok := f.args["no_let"]; ok {
		var noLet bool
		if err := v.Decode(&noLet); err != nil {
			return nil, errorAt(v, "no_let: expected a boolean")
		}
		if noLet {
			c.SetNoLetWrapping()
		}
	}
	return c, nil
}
