package pipeline

import (
	"io"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/symbols"
)

// Processor is one stage of the pipeline. A stage reads the context left by
// the previous ones and appends its diagnostics to ctx.Errors.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Unit is one top-level expression of a document as it moves through the
// stages.
type Unit struct {
	// Name is the defined symbol for a definition, or "#n" for the n-th
	// top-level expression.
	Name string
	Expr ast.Expression
	// Code is the compiled code of the unit, ending with END.
	Code bytecode.Code
	// Entry is the code entry of a definition.
	Entry *symbols.DefinedEntry
	// Result is the value the unit evaluated to, once executed.
	Result any
	// Executed is set once the unit ran without error.
	Executed bool
	// Failed is set by the first stage that reported an error for the unit.
	Failed bool
}

// PipelineContext carries the state shared by the stages of one run.
type PipelineContext struct {
	SourceCode []byte
	FilePath   string

	Config *config.Config
	Tables *symbols.Tables

	Units []*Unit

	// Output receives the values written by executed code and the
	// disassembly dumps.
	Output io.Writer

	Errors []*diagnostics.DiagnosticError
}

// NewPipelineContext creates a context for source read from path.
func NewPipelineContext(source []byte, path string, cfg *config.Config) *PipelineContext {
	if cfg == nil {
		cfg = config.Default()
	}
	tables := symbols.NewTables()
	tables.SetInlineThreshold(cfg.Inline())
	return &PipelineContext{
		SourceCode: source,
		FilePath:   path,
		Config:     cfg,
		Tables:     tables,
		Output:     io.Discard,
	}
}

// Fail records err against u.
func (ctx *PipelineContext) Fail(u *Unit, err error) {
	if u != nil {
		u.Failed = true
	}
	ctx.Errors = append(ctx.Errors, diagnostics.AsDiagnostic(err).WithFile(ctx.FilePath))
}

// Live returns the units no stage has failed yet.
func (ctx *PipelineContext) Live() []*Unit {
	var out []*Unit
	for _, u := range ctx.Units {
		if !u.Failed {
			out = append(out, u)
		}
	}
	return out
}
