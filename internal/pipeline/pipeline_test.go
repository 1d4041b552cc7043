package pipeline

import (
	"errors"
	"testing"

	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/token"
)

func TestRunKeepsGoingAfterFailure(t *testing.T) {
	var seen [][]string
	record := ProcessorFunc(func(ctx *PipelineContext) *PipelineContext {
		var names []string
		for _, u := range ctx.Live() {
			names = append(names, u.Name)
		}
		seen = append(seen, names)
		return ctx
	})
	fail := ProcessorFunc(func(ctx *PipelineContext) *PipelineContext {
		ctx.Fail(ctx.Units[0], errors.New("boom"))
		return ctx
	})

	ctx := NewPipelineContext(nil, "doc.yaml", nil)
	ctx.Units = []*Unit{{Name: "#1"}, {Name: "#2"}}
	New(record, fail, record).Run(ctx)

	if len(seen) != 2 {
		t.Fatalf("got=%d runs, want=2", len(seen))
	}
	if len(seen[0]) != 2 || len(seen[1]) != 1 || seen[1][0] != "#2" {
		t.Errorf("live units got=%v, want=[[#1 #2] [#2]]", seen)
	}
	if len(ctx.Errors) != 1 {
		t.Fatalf("got=%d errors, want=1", len(ctx.Errors))
	}
	if ctx.Errors[0].File != "doc.yaml" {
		t.Errorf("file got=%q, want=%q", ctx.Errors[0].File, "doc.yaml")
	}
}

func TestFailWithoutUnit(t *testing.T) {
	ctx := NewPipelineContext(nil, "doc.yaml", nil)
	ctx.Fail(nil, diagnostics.NewError(diagnostics.ErrL001, token.Token{}, "bad document"))
	if len(ctx.Errors) != 1 || ctx.Errors[0].Code != diagnostics.ErrL001 {
		t.Errorf("got=%v, want one L001 error", ctx.Errors)
	}
}

func TestDefaultContext(t *testing.T) {
	ctx := NewPipelineContext([]byte("[+, 1, 2]"), "doc.yaml", nil)
	if ctx.Config == nil || ctx.Tables == nil || ctx.Output == nil {
		t.Fatal("context has unset fields")
	}
	if _, ok := ctx.Tables.Lookup("+"); !ok {
		t.Error("builtins are not registered")
	}
}
