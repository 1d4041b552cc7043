// Package kernel embeds the compiler and machine in a Go program.
//
// A Kernel is a session: definitions made by one Eval stay visible to the
// later ones, and their values can be read or applied from Go.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/funvibe/kernel/internal/analyzer"
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/backend"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/parser"
	"github.com/funvibe/kernel/internal/pipeline"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
	"github.com/funvibe/kernel/internal/vm"
)

// Result is the value of one top-level expression of an evaluated document.
type Result struct {
	// Name is "#n" for the n-th top-level expression.
	Name string
	// Value is the value converted to Go by the Marshaller.
	Value any
	// Text is the value as the command line tool prints it.
	Text string
}

// Kernel holds the symbol tables and the machine shared by the documents
// evaluated in one session. It is not safe for concurrent use.
type Kernel struct {
	cfg        *config.Config
	tables     *symbols.Tables
	machine    *vm.Machine
	marshaller *Marshaller
	ctx        context.Context
	output     io.Writer
}

// New creates a session with the default configuration. The environment
// is not consulted.
func New() *Kernel {
	return newKernel(config.Default())
}

// NewWithConfig creates a session configured by the kernel.yaml file at
// path, or by the defaults when path is empty. KERNEL_* variables of the
// environment override the file.
func NewWithConfig(path string) (*Kernel, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return newKernel(cfg), nil
}

func newKernel(cfg *config.Config) *Kernel {
	tables := symbols.NewTables()
	tables.SetInlineThreshold(cfg.Inline())
	return &Kernel{
		cfg:        cfg,
		tables:     tables,
		machine:    vm.New(),
		marshaller: NewMarshaller(),
		ctx:        context.Background(),
		output:     io.Discard,
	}
}

// SetOutput sets where the values written by evaluated code go.
func (k *Kernel) SetOutput(w io.Writer) {
	k.output = w
}

// SetContext bounds the execution of later evaluations and calls.
func (k *Kernel) SetContext(ctx context.Context) {
	k.ctx = ctx
}

func (k *Kernel) newContext(src []byte, path string) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(src, path, k.cfg)
	ctx.Tables = k.tables
	ctx.Output = k.output
	return ctx
}

func (k *Kernel) execute(ctx *pipeline.PipelineContext, stages ...pipeline.Processor) error {
	k.machine.SetOutput(k.output)
	k.machine.SetContext(k.ctx)
	stages = append(stages,
		&analyzer.SemanticAnalyzerProcessor{},
		&vm.CompileProcessor{},
		backend.NewExecutionProcessor(backend.NewVM(k.ctx).WithMachine(k.machine)),
	)
	pipeline.New(stages...).Run(ctx)
	if len(ctx.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(ctx.Errors))
	for i, e := range ctx.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Eval compiles and runs a document. It returns the results of the units
// that ran, together with the errors of the others.
func (k *Kernel) Eval(src string) ([]Result, error) {
	return k.eval([]byte(src), "<eval>")
}

// LoadFile evaluates the document stored at path.
func (k *Kernel) LoadFile(path string) ([]Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return k.eval(src, path)
}

func (k *Kernel) eval(src []byte, path string) ([]Result, error) {
	ctx := k.newContext(src, path)
	err := k.execute(ctx, &parser.ParserProcessor{})
	var results []Result
	for _, u := range ctx.Units {
		if !u.Executed {
			continue
		}
		t := u.Expr.CheckedType()
		v, cerr := k.marshaller.FromValue(u.Result, t)
		if cerr != nil {
			err = errors.Join(err, fmt.Errorf("%s: %w", u.Name, cerr))
			continue
		}
		results = append(results, Result{Name: u.Name, Value: v, Text: vm.Format(u.Result, t)})
	}
	return results, err
}

// Get returns the value of the definition called name, converted to Go.
func (k *Kernel) Get(name string) (any, error) {
	v, t, err := k.global(name)
	if err != nil {
		return nil, err
	}
	return k.marshaller.FromValue(v, t)
}

// Call applies the function defined as name to args. Too few arguments
// give back a partial application, which is not converted.
func (k *Kernel) Call(name string, args ...any) (any, error) {
	f, t, err := k.global(name)
	if err != nil {
		return nil, err
	}
	boxed := make([]any, len(args))
	for i, a := range args {
		if boxed[i], err = k.marshaller.ToValue(a); err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i+1, name, err)
		}
	}
	r, err := k.machine.Apply(f, boxed...)
	if err != nil {
		return nil, err
	}
	return k.marshaller.FromValue(r, resultType(t, len(args)))
}

// global evaluates name as a one-unit document.
func (k *Kernel) global(name string) (any, typesystem.Type, error) {
	if _, ok := k.tables.Lookup(name); !ok {
		return nil, nil, fmt.Errorf("%s is not defined", name)
	}
	ctx := k.newContext(nil, "<"+name+">")
	u := &pipeline.Unit{Name: name, Expr: ast.NewDummy(name)}
	load := pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
		ctx.Units = append(ctx.Units, u)
		return ctx
	})
	if err := k.execute(ctx, load); err != nil {
		return nil, nil, err
	}
	return u.Result, u.Expr.CheckedType(), nil
}

// resultType is the type left once n arguments are applied to a function
// of type t, or nil when it is not known.
func resultType(t typesystem.Type, n int) typesystem.Type {
	for n > 0 {
		f, ok := typesystem.Deref(t).(*typesystem.TFunc)
		if !ok || len(f.Params) > n {
			return nil
		}
		n -= len(f.Params)
		t = f.ReturnType
	}
	return t
}
