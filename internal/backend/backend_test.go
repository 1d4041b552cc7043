package backend

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/funvibe/kernel/internal/analyzer"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/diagnostics"
	"github.com/funvibe/kernel/internal/parser"
	"github.com/funvibe/kernel/internal/pipeline"
	"github.com/funvibe/kernel/internal/vm"
)

func runWith(t *testing.T, src string, b Backend) (*pipeline.PipelineContext, string) {
	t.Helper()
	var out bytes.Buffer
	ctx := pipeline.NewPipelineContext([]byte(src), "doc.yaml", config.Default())
	ctx.Output = &out
	ctx = pipeline.New(
		&parser.ParserProcessor{},
		&analyzer.SemanticAnalyzerProcessor{},
		&vm.CompileProcessor{},
		NewExecutionProcessor(b),
	).Run(ctx)
	return ctx, out.String()
}

func TestVMBackendEcho(t *testing.T) {
	b := NewVM(context.Background())
	b.Echo = true
	ctx, out := runWith(t, "- {def: two, body: 2}\n- [+, two, 3]\n- [<, 1, 2]\n", b)
	if len(ctx.Errors) > 0 {
		t.Fatalf("errors: %v", ctx.Errors)
	}
	want := "#2 = 5\n#3 = true\n"
	if out != want {
		t.Errorf("got=%q, want=%q", out, want)
	}
	if !ctx.Units[1].Executed || ctx.Units[1].Result != int64(5) {
		t.Errorf("got=%v, want an executed unit with 5", ctx.Units[1].Result)
	}
	if ctx.Units[0].Executed {
		t.Errorf("a definition should not be executed on its own")
	}
}

func TestVMBackendKeepsGoingAfterFailure(t *testing.T) {
	b := NewVM(context.Background())
	ctx, _ := runWith(t, "- [/, 1, 0]\n- [+, 1, 1]\n", b)
	if len(ctx.Errors) != 1 {
		t.Fatalf("got=%d errors, want=1", len(ctx.Errors))
	}
	if code := diagnostics.CodeOf(ctx.Errors[0]); code != diagnostics.ErrR001 {
		t.Errorf("got=%q, want=%q", code, diagnostics.ErrR001)
	}
	if ctx.Errors[0].File != "doc.yaml" {
		t.Errorf("got=%q, want=doc.yaml", ctx.Errors[0].File)
	}
	if !ctx.Units[0].Failed || !ctx.Units[1].Executed {
		t.Errorf("the failure of the first unit should not stop the second")
	}
}

func TestListingBackend(t *testing.T) {
	ctx, out := runWith(t, "- [+, 1, 2]\n", NewListing(false))
	if len(ctx.Errors) > 0 {
		t.Fatalf("errors: %v", ctx.Errors)
	}
	if !strings.HasPrefix(out, "== #1 ==\n") {
		t.Errorf("got=%q, want a #1 header", out)
	}
	if !strings.Contains(out, "ADD_II") {
		t.Errorf("listing lacks ADD_II:\n%s", out)
	}
}

func TestColourize(t *testing.T) {
	got := colourize("== u ==\n0000 PUSH_VALUE_I 1\n0001 END\n")
	want := ansiBold + "== u ==" + ansiReset + "\n" +
		"0000 " + ansiCyan + "PUSH_VALUE_I" + ansiReset + " 1\n" +
		"0001 " + ansiCyan + "END" + ansiReset + "\n"
	if got != want {
		t.Errorf("got=%q, want=%q", got, want)
	}
}

func TestNoUnitsNoRun(t *testing.T) {
	ctx, out := runWith(t, "", NewListing(false))
	if len(ctx.Errors) > 0 || out != "" {
		t.Errorf("got errors=%v output=%q, want nothing", ctx.Errors, out)
	}
}
