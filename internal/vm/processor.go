package vm

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/pipeline"
)

// CompileProcessor compiles every analyzed unit. Units are compiled in
// document order, so that a unit can call the definitions before it.
type CompileProcessor struct{}

func (cp *CompileProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	compiler := NewCompiler(ctx.Config)
	compiler.SetOutput(ctx.Output)
	for _, u := range ctx.Live() {
		code, err := compiler.Compile(u.Expr)
		if err != nil {
			ctx.Fail(u, err)
			continue
		}
		u.Code = code
		if d, ok := u.Expr.(*ast.Definition); ok {
			u.Entry = d.Entry
		}
	}
	return ctx
}
