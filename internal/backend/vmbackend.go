package backend

import (
	"context"
	"fmt"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/pipeline"
	"github.com/funvibe/kernel/internal/vm"
)

// VMBackend runs the top-level expressions on one machine, in document
// order. Definitions are not run; they execute when called.
type VMBackend struct {
	ctx     context.Context
	machine *vm.Machine
	// Echo prints the value of every expression unit to the output.
	Echo bool
}

// NewVM creates a machine backend. Runs stop when ctx is done.
func NewVM(ctx context.Context) *VMBackend {
	if ctx == nil {
		ctx = context.Background()
	}
	return &VMBackend{ctx: ctx}
}

// WithMachine makes every run use m, so that the values of definitions
// outlive one document.
func (b *VMBackend) WithMachine(m *vm.Machine) *VMBackend {
	b.machine = m
	return b
}

func (b *VMBackend) Run(ctx *pipeline.PipelineContext) error {
	machine := b.machine
	if machine == nil {
		machine = vm.New()
	}
	machine.SetOutput(ctx.Output)
	machine.SetContext(b.ctx)

	for _, u := range ctx.Live() {
		if _, ok := u.Expr.(*ast.Definition); ok {
			continue
		}
		if u.Code == nil {
			return fmt.Errorf("unit %s was not compiled", u.Name)
		}
		v, err := machine.Run(u.Code, vm.SortOf(u.Expr))
		if err != nil {
			ctx.Fail(u, err)
			if b.ctx.Err() != nil {
				return b.ctx.Err()
			}
			continue
		}
		u.Result, u.Executed = v, true
		if b.Echo {
			fmt.Fprintf(ctx.Output, "%s = %s\n", u.Name, vm.Format(v, u.Expr.CheckedType()))
		}
	}
	return nil
}

func (b *VMBackend) Name() string {
	return "vm"
}
