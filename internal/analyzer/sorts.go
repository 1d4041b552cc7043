package analyzer

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Enclosure is the chain of scopes around the node being sanitized, the
// innermost last.
type Enclosure struct {
	scopes []*ast.Scope
}

func NewEnclosure() *Enclosure {
	return &Enclosure{}
}

func (e *Enclosure) Push(s *ast.Scope) { e.scopes = append(e.scopes, s) }
func (e *Enclosure) Pop()              { e.scopes = e.scopes[:len(e.scopes)-1] }

// SetLocalInfo computes the environment offset of l: the number of
// parameters of the same runtime sort bound after its own, counting from
// the innermost scope outwards. A void local has no offset.
func (e *Enclosure) SetLocalInfo(l *ast.Local) {
	sort, ok := paramSort(l.Param)
	if !ok {
		l.Offset = -1
		return
	}
	offset := 0
	for i := len(e.scopes) - 1; i >= 0; i-- {
		params := e.scopes[i].Params
		for j := len(params) - 1; j >= 0; j-- {
			p := params[j]
			if p == l.Param {
				l.Offset = offset
				return
			}
			if s, ok := paramSort(p); ok && s == sort {
				offset++
			}
		}
	}
	ast.Violation(l, "local %s is not bound by an enclosing scope", l.Name())
}

func paramSort(p *ast.Parameter) (typesystem.Sort, bool) {
	t := p.CheckedType()
	if t == nil {
		t = p.Type()
	}
	if typesystem.IsVoid(t) {
		return typesystem.VoidSort, false
	}
	return typesystem.BoxSortOf(t), true
}

// SanitizeSorts assigns the environment offset of every local of e and the
// frame size of every abstraction. Checked types must be set.
func SanitizeSorts(e ast.Expression, enc *Enclosure) {
	switch n := e.(type) {
	case *ast.Dummy:
		ast.Violation(n, "sort sanitization of an unresolved name")
	case *ast.Local:
		enc.SetLocalInfo(n)
		return
	case ast.Binder:
		s := n.ScopeNode()
		enc.Push(s)
		SanitizeSorts(s.Body, enc)
		enc.Pop()
		if abs, ok := n.(*ast.Abstraction); ok {
			abs.FrameSize = ast.CapturedSpan(s.Body, s.Arity)
		}
		s.MarkSortSanitized()
		return
	}
	for _, c := range ast.Children(e) {
		SanitizeSorts(c, enc)
	}
}
