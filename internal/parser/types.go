package parser

import (
	"fmt"

	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/lexer"
	"github.com/funvibe/kernel/internal/token"
	"github.com/funvibe/kernel/internal/typesystem"
)

// typeParser reads the type notation printed by typesystem:
//
//	int | real | char | bool | string | void | intrange | ? | _
//	set(T) | list(T) | bag(T) | array[I](T)
//	(T, ...) | (name: T, ...) | (T, ...) -> R
type typeParser struct {
	l       *lexer.Lexer
	cur     lexer.Item
	peek    lexer.Item
	named   map[string]*typesystem.TVar
	lexemes string
}

// ParseType parses an annotation written at tok. Type variables named by
// the same identifier within one annotation, such as 'a, are shared.
func ParseType(src string, tok token.Token) (typesystem.Type, error) {
	if tok.IsZero() {
		tok = token.Token{Line: 1, Column: 1}
	}
	p := &typeParser{l: lexer.New(src, tok.Line, tok.Column), lexemes: src}
	p.nextItem()
	p.nextItem()
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != lexer.EOF {
		return nil, p.errorf("unexpected %s after type", p.cur.Kind)
	}
	return t, nil
}

func (p *typeParser) nextItem() {
	p.cur = p.peek
	p.peek = p.l.NextItem()
}

func (p *typeParser) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return diagnostics.Errorf(diagnostics.ErrL001, p.cur.Token, "type %q: %s", p.lexemes, msg)
}

func (p *typeParser) expect(k lexer.Kind) error {
	if p.cur.Kind != k {
		return p.errorf("expected %s, got %s", k, p.cur.Kind)
	}
	p.nextItem()
	return nil
}

func (p *typeParser) parseType() (typesystem.Type, error) {
	switch p.cur.Kind {
	case lexer.WILDCARD:
		p.nextItem()
		return typesystem.NewVar(), nil
	case lexer.LPAREN:
		return p.parseParenthesized()
	case lexer.IDENT:
		return p.parseNamed()
	}
	return nil, p.errorf("expected a type, got %s", p.cur.Kind)
}

func (p *typeParser) parseNamed() (typesystem.Type, error) {
	name := p.cur.Token.Lexeme
	p.nextItem()
	switch name {
	case "int":
		return typesystem.Int, nil
	case "real":
		return typesystem.Real, nil
	case "char":
		return typesystem.Char, nil
	case "bool":
		return typesystem.Bool, nil
	case "string":
		return typesystem.String, nil
	case "void":
		return typesystem.Void, nil
	case "intrange":
		return typesystem.IntRange, nil
	case "set", "list", "bag":
		elem, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		switch name {
		case "set":
			return typesystem.NewSet(elem), nil
		case "list":
			return typesystem.NewList(elem), nil
		}
		return typesystem.NewBag(elem), nil
	case "array":
		var index typesystem.Type = typesystem.Int
		if p.cur.Kind == lexer.LBRACKET {
			p.nextItem()
			var err error
			if index, err = p.parseType(); err != nil {
				return nil, err
			}
			if err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
		}
		elem, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		return &typesystem.TArray{Elem: elem, Index: index}, nil
	}
	// Any other name is a type variable.
	if p.named == nil {
		p.named = make(map[string]*typesystem.TVar)
	}
	v, ok := p.named[name]
	if !ok {
		v = typesystem.NewVar()
		p.named[name] = v
	}
	return v, nil
}

// parseArgument parses "(T)".
func (p *typeParser) parseArgument() (typesystem.Type, error) {
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return t, p.expect(lexer.RPAREN)
}

// parseParenthesized parses a tuple, a named tuple or a function type.
// A single parenthesized type not followed by an arrow is that type.
func (p *typeParser) parseParenthesized() (typesystem.Type, error) {
	p.nextItem() // (
	var elems []typesystem.Type
	var fields []typesystem.Field
	for p.cur.Kind != lexer.RPAREN {
		if len(elems)+len(fields) > 0 {
			if err := p.expect(lexer.COMMA); err != nil {
				return nil, err
			}
		}
		if p.cur.Kind == lexer.IDENT && p.peek.Kind == lexer.COLON {
			name := p.cur.Token.Lexeme
			p.nextItem()
			p.nextItem()
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fields = append(fields, typesystem.Field{Name: name, Type: t})
			continue
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		elems = append(elems, t)
	}
	p.nextItem() // )

	if len(fields) > 0 {
		if len(elems) > 0 {
			return nil, p.errorf("named and positional components mixed")
		}
		return typesystem.NewNamedTuple(fields), nil
	}
	if p.cur.Kind == lexer.ARROW {
		p.nextItem()
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if len(elems) == 0 {
			elems = []typesystem.Type{typesystem.Void}
		}
		return typesystem.NewFunc(ret, elems...), nil
	}
	switch len(elems) {
	case 0:
		return typesystem.Void, nil
	case 1:
		return elems[0], nil
	}
	return &typesystem.TTuple{Elems: elems}, nil
}
