package analyzer

import (
	"github.com/funvibe/kernel/internal/pipeline"
)

// SemanticAnalyzerProcessor runs the analyzer over every unit. Units are
// analyzed in document order so that a definition is visible to the units
// after it.
type SemanticAnalyzerProcessor struct{}

func (sap *SemanticAnalyzerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if len(ctx.Units) == 0 {
		return ctx
	}
	analyzer := New(ctx.Tables, ctx.Config)
	for _, u := range ctx.Live() {
		e, err := analyzer.Analyze(u.Expr)
		if err != nil {
			ctx.Fail(u, err)
			continue
		}
		u.Expr = e
	}
	return ctx
}
