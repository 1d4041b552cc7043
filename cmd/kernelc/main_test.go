package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunListsAndExecutes(t *testing.T) {
	doc := writeDoc(t, "- [+, 1, 2]\n")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-run", doc}, &stdout, &stderr, false)
	if code != 0 {
		t.Fatalf("exit code got=%d, want=0; stderr:\n%s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "== #1 ==") || !strings.Contains(out, "ADD_II") {
		t.Errorf("listing missing from output:\n%s", out)
	}
	if !strings.HasSuffix(out, "#1 = 3\n") {
		t.Errorf("result missing from output:\n%s", out)
	}
}

func TestRunReportsErrors(t *testing.T) {
	doc := writeDoc(t, "- [+, 1, \"a\"]\n")
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{doc}, &stdout, &stderr, false); code != 1 {
		t.Errorf("exit code got=%d, want=1", code)
	}
	if !strings.Contains(stderr.String(), "doc.yaml") {
		t.Errorf("diagnostic should name the file:\n%s", stderr.String())
	}
}

func TestRunCaches(t *testing.T) {
	doc := writeDoc(t, "- [+, 1, 2]\n")
	db := filepath.Join(t.TempDir(), "cache.db")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-v", "-cache", db, doc}, &stdout, &stderr, false)
	if code != 0 {
		t.Fatalf("exit code got=%d, want=0; stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "cached as run") {
		t.Errorf("verbose output lacks the run id:\n%s", stderr.String())
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("cache file not created: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.yaml")
	if err := os.WriteFile(path, []byte("inline_threshold: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(&options{configPath: path, lco: true}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.LCO || cfg.Inline() != 0 {
		t.Errorf("got lco=%v inline=%d, want lco=true inline=0", cfg.LCO, cfg.Inline())
	}
}

func TestConfigNextToInput(t *testing.T) {
	doc := writeDoc(t, "- [+, 1, 2]\n")
	kernel := filepath.Join(filepath.Dir(doc), "kernel.yaml")
	if err := os.WriteFile(kernel, []byte("lco: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(&options{}, doc)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.LCO {
		t.Errorf("got lco=false, want the kernel.yaml next to the input to apply")
	}
}

func TestFormat(t *testing.T) {
	doc := writeDoc(t, "- [+,   1,\n     2]\n")
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-fmt", doc}, &stdout, &stderr, false); code != 0 {
		t.Fatalf("exit code got=%d, want=0; stderr:\n%s", code, stderr.String())
	}
	want := "- [!name \"+\", 1, 2]\n"
	if stdout.String() != want {
		t.Errorf("got=%q, want=%q", stdout.String(), want)
	}
}

func TestBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-nope"}, &stdout, &stderr, false); code != 2 {
		t.Errorf("exit code got=%d, want=2", code)
	}
}
