package backend

import (
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/pipeline"
	"github.com/funvibe/kernel/internal/token"
)

// ExecutionProcessor implements pipeline.Processor to run a Backend
type ExecutionProcessor struct {
	Backend Backend
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// A load error leaves no units to run.
	if len(ctx.Units) == 0 {
		return ctx
	}
	if err := p.Backend.Run(ctx); err != nil {
		ctx.Errors = append(ctx.Errors, diagnostics.Errorf(
			diagnostics.ErrR001,
			token.Token{},
			"%s backend: %v", p.Backend.Name(), err,
		).WithFile(ctx.FilePath))
	}
	return ctx
}
