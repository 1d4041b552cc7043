package diagnostics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/funvibe/kernel/internal/token"
)

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *DiagnosticError
		want string
	}{
		{"no location", NewError(ErrR001, token.Token{}, "boom"), "?: [R001] boom"},
		{"location", NewError(ErrT001, token.Token{Line: 3, Column: 7}, "mismatch"), "3:7: [T001] mismatch"},
		{"file", NewError(ErrA001, token.Token{Line: 1, Column: 1}, "x").WithFile("a.yaml"), "a.yaml:1:1: [A001] x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got=%q, want=%q", got, tt.want)
			}
		})
	}
}

func TestWrapAndCodeOf(t *testing.T) {
	cause := errors.New("cannot unify int with real")
	err := fmt.Errorf("checking f: %w", Wrap(ErrT001, token.Token{Line: 2}, cause))
	if got := CodeOf(err); got != ErrT001 {
		t.Errorf("got=%q, want=%q", got, ErrT001)
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be reachable with errors.Is")
	}
	if got := CodeOf(cause); got != "" {
		t.Errorf("got=%q, want empty code", got)
	}
}
