// Package config holds the reserved names of the kernel and the options that
// steer checking and code generation.
//
// Options are read from a kernel.yaml file and may be overridden from the
// environment:
//
//	lco: true
//	void_assignments: false
//	opaque_parameters: true
//	in_place: default
//	null_filter: degrade
//	inline_threshold: 8
//
// A Config is passed explicitly to the checker, the comprehension engine and
// the compiler, so several configurations can be used side by side.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// InPlaceMode overrides the in-place decision of comprehensions.
type InPlaceMode string

const (
	InPlaceDefault  InPlaceMode = "default"
	InPlaceEnabled  InPlaceMode = "enabled"
	InPlaceDisabled InPlaceMode = "disabled"
)

// NullFilterMode selects what a filtered homomorphism whose filter was
// entirely consumed by slicings compiles to.
type NullFilterMode string

const (
	NullFilterDegrade NullFilterMode = "degrade"
	NullFilterKeep    NullFilterMode = "keep"
)

// Config represents the kernel.yaml configuration.
type Config struct {
	// LCO enables last-call optimization of scope bodies.
	LCO bool `yaml:"lco"`

	// VoidAssignments makes assignments VOID-typed; their value is popped.
	VoidAssignments bool `yaml:"void_assignments"`

	// OpaqueParameters makes a generator name shadow an earlier binding of
	// the same name instead of producing an equality filter.
	// Defaults to true.
	OpaqueParameters *bool `yaml:"opaque_parameters,omitempty"`

	InPlace    InPlaceMode    `yaml:"in_place,omitempty"`
	NullFilter NullFilterMode `yaml:"null_filter,omitempty"`

	// InlineThreshold is the largest code length (END excluded) of a
	// definition that is inlined at its call sites. Zero disables inlining.
	InlineThreshold *int `yaml:"inline_threshold,omitempty"`

	// ShowCode dumps the disassembly of every compiled unit.
	ShowCode bool `yaml:"show_code"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a kernel.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses kernel.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) validate(path string) error {
	switch c.InPlace {
	case "", InPlaceDefault, InPlaceEnabled, InPlaceDisabled:
	default:
		return fmt.Errorf("%s: in_place: unknown mode %q (want default, enabled or disabled)", path, c.InPlace)
	}
	switch c.NullFilter {
	case "", NullFilterDegrade, NullFilterKeep:
	default:
		return fmt.Errorf("%s: null_filter: unknown mode %q (want degrade or keep)", path, c.NullFilter)
	}
	if c.InlineThreshold != nil && *c.InlineThreshold < 0 {
		return fmt.Errorf("%s: inline_threshold must not be negative", path)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.InPlace == "" {
		c.InPlace = InPlaceDefault
	}
	if c.NullFilter == "" {
		c.NullFilter = NullFilterDegrade
	}
	if c.OpaqueParameters == nil {
		v := true
		c.OpaqueParameters = &v
	}
	if c.InlineThreshold == nil {
		v := DefaultInlineThreshold
		c.InlineThreshold = &v
	}
}

// Opaque reports whether generator names are opaque.
func (c *Config) Opaque() bool {
	return c.OpaqueParameters == nil || *c.OpaqueParameters
}

// Inline returns the inlining threshold.
func (c *Config) Inline() int {
	if c.InlineThreshold == nil {
		return DefaultInlineThreshold
	}
	return *c.InlineThreshold
}

// Clone returns an independent copy of c.
func (c *Config) Clone() *Config {
	out := *c
	if c.OpaqueParameters != nil {
		v := *c.OpaqueParameters
		out.OpaqueParameters = &v
	}
	if c.InlineThreshold != nil {
		v := *c.InlineThreshold
		out.InlineThreshold = &v
	}
	return &out
}

// Environment variables read by ApplyEnv.
const (
	EnvLCO              = "KERNEL_LCO"
	EnvVoidAssignments  = "KERNEL_VOID_ASSIGNMENTS"
	EnvOpaqueParameters = "KERNEL_OPAQUE_PARAMETERS"
	EnvShowCode         = "KERNEL_SHOW_CODE"
	EnvInPlace          = "KERNEL_IN_PLACE"
	EnvInlineThreshold  = "KERNEL_INLINE_THRESHOLD"
)

// ApplyEnv overlays the KERNEL_* environment variables that are set onto c.
func (c *Config) ApplyEnv() error {
	if env.Has(EnvLCO) {
		c.LCO = env.Bool(EnvLCO)
	}
	if env.Has(EnvVoidAssignments) {
		c.VoidAssignments = env.Bool(EnvVoidAssignments)
	}
	if env.Has(EnvOpaqueParameters) {
		v := env.Bool(EnvOpaqueParameters)
		c.OpaqueParameters = &v
	}
	if env.Has(EnvShowCode) {
		c.ShowCode = env.Bool(EnvShowCode)
	}
	if env.Has(EnvInPlace) {
		c.InPlace = InPlaceMode(strings.ToLower(env.Str(EnvInPlace)))
	}
	if env.Has(EnvInlineThreshold) {
		v := env.Int(EnvInlineThreshold, DefaultInlineThreshold)
		c.InlineThreshold = &v
	}
	return c.validate("environment")
}
