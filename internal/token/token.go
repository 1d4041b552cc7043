// Package token describes source extents carried by expression nodes.
package token

import "fmt"

// Token marks where a node came from in its source document.
// A zero Token means the location is unknown.
type Token struct {
	Line   int
	Column int
	Lexeme string
}

// IsZero reports whether the location is unknown.
func (t Token) IsZero() bool {
	return t.Line == 0 && t.Column == 0
}

func (t Token) String() string {
	if t.IsZero() {
		return "?"
	}
	return fmt.Sprintf("%d:%d", t.Line, t.Column)
}
