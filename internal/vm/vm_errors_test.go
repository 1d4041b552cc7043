package vm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/kernel/internal/diagnostics"
)

// runVMExpectError compiles and runs the input, expecting a runtime error.
func runVMExpectError(t *testing.T, input string) error {
	t.Helper()
	m := New()
	// Timeout to catch loops that never hit the frame limit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.SetContext(ctx)

	_, err := runDocument(t, m, input, nil)
	if err == nil {
		t.Fatalf("expected runtime error, but code ran successfully")
	}
	return err
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"division by zero", `[/, 1, 0]`, errDivisionByZero},
		{"modulo by zero", `[!name "%", 1, [!name "-", 2, 2]]`, errDivisionByZero},
		{"first of empty", `[first, {as: [{list: []}, "list(int)"]}]`, errEmptyCollection},
		{"next of absent", `[next, {list: [1, 2]}, 7]`, errNotFound},
		{"next of last", `[next, {list: [1, 2]}, 2]`, errIndexOutOfRange},
		{"array index", `{at: [{array: [3], of: int}, 5]}`, errIndexOutOfRange},
		{
			"stack overflow",
			`
- {def: loop, body: {fn: [{n: int}], body: [+, 1, [loop, n]]}}
- [loop, 1]
`,
			errStackOverflow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runVMExpectError(t, tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("got=%v, want=%v", err, tt.want)
			}
		})
	}
}

func TestRuntimeErrorIsDiagnostic(t *testing.T) {
	err := runVMExpectError(t, `[/, 1, 0]`)
	if code := diagnostics.CodeOf(err); code != diagnostics.ErrR001 {
		t.Errorf("got=%q, want=%q", code, diagnostics.ErrR001)
	}
	if !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("error %q should mention the division", err.Error())
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := New()
	m.SetContext(ctx)
	_, err := runDocument(t, m,
		`{comp: [+, 0], yield: x, where: [{gen: [x, [range, 1, 100000]]}]}`, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got=%v, want=%v", err, context.Canceled)
	}
}

func TestApplyNonFunction(t *testing.T) {
	if _, err := New().Apply(int64(3), int64(1)); !errors.Is(err, errNotCallable) {
		t.Errorf("got=%v, want=%v", err, errNotCallable)
	}
}
