package analyzer

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/comprehension"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Analyzer runs the phases that take a raw expression to a tree ready for
// the compiler: name resolution, type checking, checked types and sort
// sanitization.
type Analyzer struct {
	tables     *symbols.Tables
	cfg        *config.Config
	translator *comprehension.Translator
	unifier    *typesystem.Unifier

	// exitables is the stack of exitable abstractions being checked.
	exitables []*ast.Abstraction
	// pending holds overloaded globals whose entry is chosen once the
	// whole expression is checked.
	pending []*ast.Global
}

// New creates an Analyzer over tables. A nil cfg means config.Default().
func New(tables *symbols.Tables, cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Analyzer{
		tables:     tables,
		cfg:        cfg,
		translator: comprehension.NewTranslator(tables, cfg),
		unifier:    typesystem.NewUnifier(),
	}
}

// Tables returns the symbol tables the analyzer resolves globals in.
func (a *Analyzer) Tables() *symbols.Tables { return a.tables }

// Analyze runs every phase on e and returns the rewritten expression.
// On error the provisional entry of a definition is dropped.
func (a *Analyzer) Analyze(e ast.Expression) (ast.Expression, error) {
	e, err := a.SanitizeNames(e, NewParameterStack())
	if err != nil {
		return nil, err
	}
	if err := a.TypeCheck(e); err != nil {
		if d, ok := e.(*ast.Definition); ok {
			d.Symbol.DropProvisional()
		}
		return nil, err
	}
	e = a.SetCheckedTypes(e)
	SanitizeSorts(e, NewEnclosure())
	return e, nil
}

// ParameterStack holds the parameters visible during name resolution.
type ParameterStack struct {
	params []*ast.Parameter
}

func NewParameterStack() *ParameterStack {
	return &ParameterStack{}
}

func (s *ParameterStack) Push(params ...*ast.Parameter) {
	s.params = append(s.params, params...)
}

// Pop removes the n parameters pushed last.
func (s *ParameterStack) Pop(n int) {
	s.params = s.params[:len(s.params)-n]
}

// Lookup returns the innermost parameter called name.
func (s *ParameterStack) Lookup(name string) (*ast.Parameter, bool) {
	for i := len(s.params) - 1; i >= 0; i-- {
		if s.params[i].Name == name {
			return s.params[i], true
		}
	}
	return nil, false
}

func (s *ParameterStack) Len() int { return len(s.params) }
