// Package prettyprinter prints raw expression trees back as expression
// documents, in the notation the parser reads. Parsing the output gives
// the same trees again.
package prettyprinter

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/typesystem"
)

// DocumentPrinter turns expressions into YAML nodes.
type DocumentPrinter struct {
	indent int
}

func NewDocumentPrinter() *DocumentPrinter {
	return &DocumentPrinter{indent: 2}
}

// SetIndent sets the number of spaces per block level.
func (p *DocumentPrinter) SetIndent(n int) {
	p.indent = n
}

// Print renders exprs as one document holding a block list of units.
func Print(exprs []ast.Expression) ([]byte, error) {
	return NewDocumentPrinter().Print(exprs)
}

func (p *DocumentPrinter) Print(exprs []ast.Expression) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.SequenceNode}
	for _, e := range exprs {
		n, err := p.Node(e)
		if err != nil {
			return nil, err
		}
		root.Content = append(root.Content, n)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(p.indent)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Node returns the YAML form of e.
func (p *DocumentPrinter) Node(e ast.Expression) (*yaml.Node, error) {
	n, err := p.node(e)
	if err != nil {
		return nil, err
	}
	if t, ok := ascribed(e); ok {
		return form("as", flow(n, quoted(TypeString(t)))), nil
	}
	return n, nil
}

// ascribed returns the type written on e with "as", if any. Constants and
// the connectives carry their type from construction.
func ascribed(e ast.Expression) (typesystem.Type, bool) {
	switch e.(type) {
	case *ast.Dummy, *ast.Application, *ast.Tuple, *ast.NamedTuple, *ast.NewCollection,
		*ast.IfThenElse, *ast.TupleProjection, *ast.ArraySlot, *ast.Comprehension:
	default:
		return nil, false
	}
	return declared(e)
}

// declared returns the type of e unless it is unknown.
func declared(e ast.Expression) (typesystem.Type, bool) {
	if !e.Node().Typed() {
		return nil, false
	}
	t := e.Type()
	if _, free := typesystem.Deref(t).(*typesystem.TVar); free {
		return nil, false
	}
	return t, true
}

func (p *DocumentPrinter) nodes(es []ast.Expression) ([]*yaml.Node, error) {
	out := make([]*yaml.Node, len(es))
	for i, e := range es {
		n, err := p.Node(e)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (p *DocumentPrinter) node(e ast.Expression) (*yaml.Node, error) {
	switch n := e.(type) {
	case *ast.Constant:
		return constant(n), nil
	case *ast.Dummy:
		return name(n.Name), nil
	case *ast.Let:
		return p.let(n)
	case *ast.Application:
		parts, err := p.nodes(append([]ast.Expression{n.Function}, n.Args...))
		if err != nil {
			return nil, err
		}
		return flow(parts...), nil
	case *ast.Abstraction:
		params, err := parameters(n.Params)
		if err != nil {
			return nil, err
		}
		body, err := p.Node(n.Body)
		if err != nil {
			return nil, err
		}
		out := form("fn", params, "body", body)
		if !n.Exitable {
			out = form("fn", params, "body", body, "exitable", scalar("!!bool", "false"))
		}
		return out, nil
	case *ast.Definition:
		body, err := p.Node(n.Body)
		if err != nil {
			return nil, err
		}
		return form("def", name(n.Symbol.Name()), "body", body), nil
	case *ast.IfThenElse:
		return p.list("if", n.Condition, n.Then, n.Else)
	case *ast.And:
		return p.list("and", n.Left, n.Right)
	case *ast.Or:
		return p.list("or", n.Left, n.Right)
	case *ast.Sequence:
		return p.list("seq", n.Exprs...)
	case *ast.Loop:
		return p.list("while", n.Condition, n.Body)
	case *ast.ExitWithValue:
		v, err := p.Node(n.Value)
		if err != nil {
			return nil, err
		}
		return form("exit", v), nil
	case *ast.DummyAssignment:
		v, err := p.Node(n.Value)
		if err != nil {
			return nil, err
		}
		return form("assign", flow(name(n.Name), v)), nil
	case *ast.Tuple:
		return p.list("tuple", n.Elems...)
	case *ast.NamedTuple:
		fields := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		for i, f := range n.Fields {
			v, err := p.Node(n.Elems[i])
			if err != nil {
				return nil, err
			}
			fields.Content = append(fields.Content, name(f), v)
		}
		return form("record", fields), nil
	case *ast.TupleProjection:
		t, err := p.Node(n.Tuple)
		if err != nil {
			return nil, err
		}
		field := name(n.Field.Str)
		if n.Field.Kind == ast.IntConstant {
			field = scalar("!!int", strconv.FormatInt(n.Field.Int, 10))
		}
		return form("proj", flow(t, field)), nil
	case *ast.NewCollection:
		return p.list(n.Kind.String(), n.Elems...)
	case *ast.NewArray:
		dims, err := p.nodes(n.Dims)
		if err != nil {
			return nil, err
		}
		elem := "_"
		if n.ElemType != nil {
			elem = TypeString(n.ElemType)
		}
		return form("array", flow(dims...), "of", quoted(elem)), nil
	case *ast.ArrayExtension:
		elems, err := p.nodes(n.Elems)
		if err != nil {
			return nil, err
		}
		if n.Indexable == nil {
			return form("items", flow(elems...)), nil
		}
		index, err := p.Node(n.Indexable)
		if err != nil {
			return nil, err
		}
		return form("items", flow(elems...), "index", index), nil
	case *ast.ArraySlot:
		return p.list("at", n.Array, n.Index)
	case *ast.ArraySlotUpdate:
		return p.list("store", n.Slot.Array, n.Slot.Index, n.Value)
	case *ast.Comprehension:
		return p.comprehension(n)
	case *ast.UndecidedExpression:
		return p.list("either", n.First, n.Second)
	}
	return nil, fmt.Errorf("prettyprinter: %T has no document form", e)
}

func (p *DocumentPrinter) list(head string, es ...ast.Expression) (*yaml.Node, error) {
	items, err := p.nodes(es)
	if err != nil {
		return nil, err
	}
	return form(head, flow(items...)), nil
}

func (p *DocumentPrinter) let(n *ast.Let) (*yaml.Node, error) {
	scope, ok := n.Function.(*ast.Scope)
	if !ok {
		return nil, fmt.Errorf("prettyprinter: let over %T", n.Function)
	}
	bindings := flow()
	for i, param := range scope.Params {
		arg, err := p.Node(n.Args[i])
		if err != nil {
			return nil, err
		}
		b := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle,
			Content: []*yaml.Node{name(param.Name), arg}}
		if t, ok := declared(param); ok {
			b.Content = append(b.Content, name("type"), quoted(TypeString(t)))
		}
		bindings.Content = append(bindings.Content, b)
	}
	body, err := p.Node(scope.Body)
	if err != nil {
		return nil, err
	}
	return form("let", bindings, "in", body), nil
}

func (p *DocumentPrinter) comprehension(n *ast.Comprehension) (*yaml.Node, error) {
	if n.Raw == nil {
		return nil, fmt.Errorf("prettyprinter: comprehension already translated")
	}
	monoid, err := p.nodes([]ast.Expression{n.Operation, n.Identity})
	if err != nil {
		return nil, err
	}
	yield, err := p.Node(n.Raw.Expr)
	if err != nil {
		return nil, err
	}
	args := []any{"comp", flow(monoid...), "yield", yield}
	if len(n.Raw.Exprs) > 0 {
		where := flow()
		for i, q := range n.Raw.Exprs {
			e, err := p.Node(q)
			if err != nil {
				return nil, err
			}
			if n.Raw.Patterns[i] == nil {
				where.Content = append(where.Content, e)
				continue
			}
			pat, err := p.Node(n.Raw.Patterns[i])
			if err != nil {
				return nil, err
			}
			where.Content = append(where.Content, form("gen", flow(pat, e)))
		}
		args = append(args, "where", where)
	}
	if n.Raw.InPlace != "" && n.Raw.InPlace != config.InPlaceDefault {
		args = append(args, "in_place", name(string(n.Raw.InPlace)))
	}
	if n.NoLetWrapping {
		args = append(args, "no_let", scalar("!!bool", "true"))
	}
	return form(args...), nil
}

func parameters(params []*ast.Parameter) (*yaml.Node, error) {
	out := flow()
	if len(params) == 1 && params[0].Name == "" {
		return out, nil
	}
	for _, param := range params {
		if param.Internal {
			return nil, fmt.Errorf("prettyprinter: synthetic parameter %s", param.Name)
		}
		t, ok := declared(param)
		if !ok {
			out.Content = append(out.Content, name(param.Name))
			continue
		}
		out.Content = append(out.Content, &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle,
			Content: []*yaml.Node{name(param.Name), quoted(TypeString(t))}})
	}
	return out, nil
}

// form builds a mapping from alternating keys and values; the first key
// names the form.
func form(kv ...any) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Content = append(m.Content, name(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return m
}

func flow(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle, Content: items}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
}

var plainName = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// name writes a name plainly when YAML reads it back as a plain string,
// and as !name "..." otherwise.
func name(s string) *yaml.Node {
	switch strings.ToLower(s) {
	case "true", "false", "null", "yes", "no", "on", "off":
	default:
		if plainName.MatchString(s) {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!name", Value: s, Style: yaml.DoubleQuotedStyle}
}

func constant(c *ast.Constant) *yaml.Node {
	switch c.Kind {
	case ast.VoidConstant:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!void", Value: "", Style: yaml.DoubleQuotedStyle}
	case ast.BoolConstant:
		return scalar("!!bool", strconv.FormatBool(c.Bool))
	case ast.IntConstant:
		return scalar("!!int", strconv.FormatInt(c.Int, 10))
	case ast.RealConstant:
		return scalar("!!float", realLiteral(c.Real))
	case ast.CharConstant:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!char", Value: string(rune(c.Int)), Style: yaml.DoubleQuotedStyle}
	case ast.StringConstant:
		return quoted(c.Str)
	}
	return scalar("!!null", "null")
}

// realLiteral keeps a decimal point so that YAML does not read an int.
func realLiteral(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
