package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}\n"), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LCO {
		t.Error("expected lco to default to false")
	}
	if !cfg.Opaque() {
		t.Error("expected opaque_parameters to default to true")
	}
	if cfg.InPlace != InPlaceDefault {
		t.Errorf("in_place = %q, want default", cfg.InPlace)
	}
	if cfg.NullFilter != NullFilterDegrade {
		t.Errorf("null_filter = %q, want degrade", cfg.NullFilter)
	}
	if cfg.Inline() != DefaultInlineThreshold {
		t.Errorf("inline_threshold = %d, want %d", cfg.Inline(), DefaultInlineThreshold)
	}
}

func TestParseConfig_AllFields(t *testing.T) {
	yaml := `
lco: true
void_assignments: true
opaque_parameters: false
in_place: disabled
null_filter: keep
inline_threshold: 0
show_code: true
`
	cfg, err := ParseConfig([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.LCO || !cfg.VoidAssignments || !cfg.ShowCode {
		t.Errorf("booleans not read: %+v", cfg)
	}
	if cfg.Opaque() {
		t.Error("expected opaque_parameters to be false")
	}
	if cfg.InPlace != InPlaceDisabled {
		t.Errorf("in_place = %q, want disabled", cfg.InPlace)
	}
	if cfg.NullFilter != NullFilterKeep {
		t.Errorf("null_filter = %q, want keep", cfg.NullFilter)
	}
	if cfg.Inline() != 0 {
		t.Errorf("inline_threshold = %d, want 0", cfg.Inline())
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad in_place", "in_place: sometimes\n", "in_place"},
		{"bad null_filter", "null_filter: drop\n", "null_filter"},
		{"negative threshold", "inline_threshold: -1\n", "inline_threshold"},
		{"not yaml", "lco: [\n", "parsing test.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "test.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigName)
	if err := os.WriteFile(path, []byte("lco: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.LCO {
		t.Error("expected lco to be true")
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLCO, "true")
	t.Setenv(EnvOpaqueParameters, "false")
	t.Setenv(EnvInPlace, "ENABLED")
	t.Setenv(EnvInlineThreshold, "3")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.LCO {
		t.Error("expected lco from environment")
	}
	if cfg.Opaque() {
		t.Error("expected opaque_parameters=false from environment")
	}
	if cfg.InPlace != InPlaceEnabled {
		t.Errorf("in_place = %q, want enabled", cfg.InPlace)
	}
	if cfg.Inline() != 3 {
		t.Errorf("inline_threshold = %d, want 3", cfg.Inline())
	}
}

func TestApplyEnv_InvalidMode(t *testing.T) {
	t.Setenv(EnvInPlace, "maybe")
	cfg := Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected error for bad KERNEL_IN_PLACE")
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	cp := cfg.Clone()
	*cp.InlineThreshold = 1
	if cfg.Inline() != DefaultInlineThreshold {
		t.Errorf("clone shares inline_threshold with original")
	}
}

func TestIsSourceFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a/b.yaml", true},
		{"b.yml", true},
		{"x.txt", false},
		{"yaml", false},
	}
	for _, tt := range tests {
		if got := IsSourceFile(tt.path); got != tt.want {
			t.Errorf("%s: got=%v, want=%v", tt.path, got, tt.want)
		}
	}
}
