package codecache

import (
	"context"

	"github.com/google/uuid"

	"github.com/funvibe/kernel/internal/pipeline"
)

// Processor records the compiled units of a context as a new run.
type Processor struct {
	Store *Store
	// Run is the id of the recorded run, set by Process.
	Run uuid.UUID
	ctx context.Context
}

func NewProcessor(ctx context.Context, s *Store) *Processor {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Processor{Store: s, ctx: ctx}
}

func (p *Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	live := ctx.Live()
	if len(live) == 0 {
		return ctx
	}
	run, err := p.Store.Begin(p.ctx, ctx.FilePath)
	if err != nil {
		ctx.Fail(nil, err)
		return ctx
	}
	p.Run = run
	for _, u := range live {
		if u.Code == nil {
			continue
		}
		if err := p.Store.Put(p.ctx, run, u.Name, u.Code); err != nil {
			ctx.Fail(nil, err)
			return ctx
		}
	}
	return ctx
}
