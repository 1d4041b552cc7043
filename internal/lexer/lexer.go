// Package lexer splits type annotations such as "(int, set(real)) -> bool"
// into tokens.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/kernel/internal/token"
)

// Kind classifies a lexeme.
type Kind int

const (
	EOF Kind = iota
	ILLEGAL
	IDENT
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
	COLON    // :
	ARROW    // ->
	WILDCARD // ? or _
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of type"
	case IDENT:
		return "name"
	case LPAREN:
		return "'('"
	case RPAREN:
		return "')'"
	case LBRACKET:
		return "'['"
	case RBRACKET:
		return "']'"
	case COMMA:
		return "','"
	case COLON:
		return "':'"
	case ARROW:
		return "'->'"
	case WILDCARD:
		return "'?'"
	}
	return "illegal character"
}

// Item is a lexeme with its kind. Token positions are absolute, given the
// position of the annotation in its document.
type Item struct {
	Kind  Kind
	Token token.Token
}

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int
	column       int
}

// New creates a lexer over input, which starts at line:column.
func New(input string, line, column int) *Lexer {
	l := &Lexer{input: input, line: line, column: column - 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// NextItem returns the next lexeme, EOF at the end of the input.
func (l *Lexer) NextItem() Item {
	l.skipWhitespace()
	tok := token.Token{Line: l.line, Column: l.column}

	single := map[rune]Kind{
		'(': LPAREN, ')': RPAREN, '[': LBRACKET, ']': RBRACKET,
		',': COMMA, ':': COLON, '?': WILDCARD,
	}
	switch {
	case l.ch == 0:
		return Item{Kind: EOF, Token: tok}
	case l.ch == '-' && l.peekChar() == '>':
		l.readChar()
		l.readChar()
		tok.Lexeme = "->"
		return Item{Kind: ARROW, Token: tok}
	case l.ch == '_' && !isLetter(l.peekChar()) && !unicode.IsDigit(l.peekChar()):
		l.readChar()
		tok.Lexeme = "_"
		return Item{Kind: WILDCARD, Token: tok}
	case isLetter(l.ch):
		tok.Lexeme = l.readIdentifier()
		return Item{Kind: IDENT, Token: tok}
	}
	if k, ok := single[l.ch]; ok {
		tok.Lexeme = string(l.ch)
		l.readChar()
		return Item{Kind: k, Token: tok}
	}
	tok.Lexeme = string(l.ch)
	l.readChar()
	return Item{Kind: ILLEGAL, Token: tok}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || unicode.IsDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}
