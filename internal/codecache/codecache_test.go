package codecache

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/funvibe/kernel/internal/bytecode"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEncodeDecode(t *testing.T) {
	code := bytecode.Code{
		{Op: bytecode.PUSH_VALUE_I, Int: math.MaxInt64, Line: 3},
		{Op: bytecode.PUSH_VALUE_R, Real: 2.5},
		{Op: bytecode.PUSH_VALUE_O, Str: "abc"},
		bytecode.Simple(bytecode.END),
	}
	blob, err := Encode(code)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ops, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ops) != len(code) {
		t.Fatalf("got=%d ops, want=%d", len(ops), len(code))
	}
	for i, in := range code {
		want := Op{Op: in.Op.String(), Int: in.Int, Real: in.Real, Str: in.Str, Line: in.Line}
		if ops[i] != want {
			t.Errorf("op %d: got=%+v, want=%+v", i, ops[i], want)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Errorf("expected an error")
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	run, err := s.Begin(ctx, "doc.yaml")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	code := bytecode.Code{
		{Op: bytecode.PUSH_VALUE_I, Int: 7},
		bytecode.Simple(bytecode.END),
	}
	if err := s.Put(ctx, run, "seven", code); err != nil {
		t.Fatalf("Put: %v", err)
	}

	u, err := s.Get(ctx, run, "seven")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if u.Run != run || u.Name != "seven" {
		t.Errorf("got=%s/%s, want=%s/seven", u.Run, u.Name, run)
	}
	if !strings.HasPrefix(u.Listing, "== seven ==") {
		t.Errorf("listing got=%q", u.Listing)
	}
	if len(u.Ops) != 2 || u.Ops[0].Int != 7 || u.Ops[1].Op != "END" {
		t.Errorf("ops got=%+v", u.Ops)
	}

	names, err := s.Units(ctx, run)
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	if len(names) != 1 || names[0] != "seven" {
		t.Errorf("units got=%v, want=[seven]", names)
	}
}

func TestGetMissing(t *testing.T) {
	s := openMemory(t)
	_, err := s.Get(context.Background(), uuid.New(), "nothing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got=%v, want ErrNotFound", err)
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	first, err := s.Begin(ctx, "a.yaml")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Begin(ctx, "b.yaml")
	if err != nil {
		t.Fatal(err)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got=%d runs, want=2", len(runs))
	}
	got := map[uuid.UUID]string{runs[0].ID: runs[0].Source, runs[1].ID: runs[1].Source}
	if got[first] != "a.yaml" || got[second] != "b.yaml" {
		t.Errorf("got=%v", got)
	}
}
