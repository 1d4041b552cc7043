package kernel

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/funvibe/kernel/internal/typesystem"
	"github.com/funvibe/kernel/internal/vm"
)

func TestEval(t *testing.T) {
	tests := []struct {
		input    string
		wantVal  any
		wantText string
	}{
		{`[+, 1, 2]`, int64(3), "3"},
		{`[+, 1.5, 2.25]`, 3.75, "3.75"},
		{`[<, 1, 2]`, true, "true"},
		{`{list: [1, 2, 3]}`, []any{int64(1), int64(2), int64(3)}, "[1, 2, 3]"},
	}

	for _, tt := range tests {
		results, err := New().Eval(tt.input)
		if err != nil {
			t.Fatalf("%s: %s", tt.input, err)
		}
		if len(results) != 1 {
			t.Fatalf("%s: got=%d results, want=1", tt.input, len(results))
		}
		r := results[0]
		if r.Name != "#1" {
			t.Errorf("%s: name got=%q, want=%q", tt.input, r.Name, "#1")
		}
		if !reflect.DeepEqual(r.Value, tt.wantVal) {
			t.Errorf("%s: value got=%#v, want=%#v", tt.input, r.Value, tt.wantVal)
		}
		if r.Text != tt.wantText {
			t.Errorf("%s: text got=%q, want=%q", tt.input, r.Text, tt.wantText)
		}
	}
}

func TestSessionKeepsDefinitions(t *testing.T) {
	k := New()
	if _, err := k.Eval(`
- {def: sq, body: {fn: [{x: int}], body: [!name "*", x, x]}}
- {def: k, body: [+, 20, 22]}
`); err != nil {
		t.Fatalf("definitions: %s", err)
	}

	results, err := k.Eval(`[sq, 7]`)
	if err != nil {
		t.Fatalf("eval: %s", err)
	}
	if len(results) != 1 || results[0].Value != int64(49) {
		t.Errorf("got=%v, want=[#1 = 49]", results)
	}

	got, err := k.Call("sq", 8)
	if err != nil {
		t.Fatalf("call: %s", err)
	}
	if got != int64(64) {
		t.Errorf("call got=%v, want=64", got)
	}

	got, err = k.Get("k")
	if err != nil {
		t.Fatalf("get: %s", err)
	}
	if got != int64(42) {
		t.Errorf("get got=%v, want=42", got)
	}
}

func TestCallPartial(t *testing.T) {
	k := New()
	if _, err := k.Eval(`{def: sub, body: {fn: [{x: int}, {y: int}], body: [!name "-", x, y]}}`); err != nil {
		t.Fatalf("definition: %s", err)
	}
	got, err := k.Call("sub", 10)
	if err != nil {
		t.Fatalf("call: %s", err)
	}
	if _, ok := got.(*vm.Partial); !ok {
		t.Fatalf("got=%T, want=*vm.Partial", got)
	}
	got, err = k.Call("sub", 10, 3)
	if err != nil {
		t.Fatalf("call: %s", err)
	}
	if got != int64(7) {
		t.Errorf("got=%v, want=7", got)
	}
}

func TestCallWithCollection(t *testing.T) {
	k := New()
	if _, err := k.Eval(`{def: count, body: {fn: [{s: "set(int)"}], body: [size, s]}}`); err != nil {
		t.Fatalf("definition: %s", err)
	}
	got, err := k.Call("count", map[int]bool{1: true, 2: true, 5: false})
	if err != nil {
		t.Fatalf("call: %s", err)
	}
	if got != int64(3) {
		t.Errorf("got=%v, want=3", got)
	}
}

func TestCallUndefined(t *testing.T) {
	if _, err := New().Call("nothing", 1); err == nil {
		t.Fatal("expected an error for an undefined name")
	}
}

func TestEvalKeepsGoingAfterFailure(t *testing.T) {
	results, err := New().Eval("- [/, 1, 0]\n- [+, 1, 1]\n")
	if err == nil {
		t.Fatal("expected a division error")
	}
	if len(results) != 1 || results[0].Name != "#2" || results[0].Value != int64(2) {
		t.Errorf("got=%v, want=[#2 = 2]", results)
	}
}

func TestOutput(t *testing.T) {
	var out bytes.Buffer
	k := New()
	k.SetOutput(&out)
	if _, err := k.Eval(`[write, 42]`); err != nil {
		t.Fatalf("eval: %s", err)
	}
	if out.String() != "42" {
		t.Errorf("got=%q, want=%q", out.String(), "42")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.yaml")
	if err := os.WriteFile(path, []byte("- [+, 2, 3]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	results, err := New().LoadFile(path)
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if len(results) != 1 || results[0].Value != int64(5) {
		t.Errorf("got=%v, want=[#1 = 5]", results)
	}

	if _, err := New().LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestNewWithConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.yaml")
	if err := os.WriteFile(path, []byte("lco: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	k, err := NewWithConfig(path)
	if err != nil {
		t.Fatalf("config: %s", err)
	}
	if !k.cfg.LCO {
		t.Error("lco got=false, want=true")
	}
}

func TestToValue(t *testing.T) {
	m := NewMarshaller()
	tests := []struct {
		in   any
		want any
	}{
		{7, int64(7)},
		{uint8(7), int64(7)},
		{float32(0.5), 0.5},
		{true, int64(1)},
		{false, int64(0)},
		{'x', int64('x')},
		{"abc", "abc"},
		{nil, nil},
		{[]int{1, 2}, &vm.Collection{Kind: typesystem.ListKind, Elems: []any{int64(1), int64(2)}}},
	}
	for _, tt := range tests {
		got, err := m.ToValue(tt.in)
		if err != nil {
			t.Fatalf("%#v: %s", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%#v: got=%#v, want=%#v", tt.in, got, tt.want)
		}
	}

	if _, err := m.ToValue(struct{}{}); err == nil {
		t.Error("expected an error for a struct")
	}
}

func TestFromValue(t *testing.T) {
	m := NewMarshaller()
	tests := []struct {
		name string
		in   any
		typ  typesystem.Type
		want any
	}{
		{"int", int64(3), typesystem.Int, int64(3)},
		{"bool", int64(1), typesystem.Bool, true},
		{"char", int64('a'), typesystem.Char, 'a'},
		{"void", nil, typesystem.Void, nil},
		{"bools", &vm.Collection{Kind: typesystem.SetKind, Elems: []any{int64(0)}},
			typesystem.NewSet(typesystem.Bool), []any{false}},
		{"tuple", &vm.Tuple{Elems: []any{int64(1), 2.5}},
			&typesystem.TTuple{Elems: []typesystem.Type{typesystem.Bool, typesystem.Real}}, []any{true, 2.5}},
		{"range", &vm.IntRange{Lo: 2, Hi: 4}, typesystem.IntRange, []any{int64(2), int64(3), int64(4)}},
	}
	for _, tt := range tests {
		got, err := m.FromValue(tt.in, tt.typ)
		if err != nil {
			t.Fatalf("%s: %s", tt.name, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got=%#v, want=%#v", tt.name, got, tt.want)
		}
	}

	if _, err := m.FromValue("x", typesystem.Bool); err == nil {
		t.Error("expected an error for a bool held as a string")
	}
}
