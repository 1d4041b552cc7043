package parser

import (
	"fmt"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/pipeline"
)

// ParserProcessor turns the source of the context into one unit per
// top-level expression.
type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	exprs, err := New(ctx.Tables).ParseDocument(ctx.SourceCode)
	if err != nil {
		ctx.Fail(nil, err)
	}
	for i, e := range exprs {
		name := fmt.Sprintf("#%d", i+1)
		if d, ok := e.(*ast.Definition); ok {
			name = d.Symbol.Name()
		}
		ctx.Units = append(ctx.Units, &pipeline.Unit{Name: name, Expr: e})
	}
	return ctx
}
