package config

import "strings"

// SourceFileExtensions are all recognized document extensions
var SourceFileExtensions = []string{".yaml", ".yml"}

// DefaultConfigName is looked up next to the input when -config is not given.
const DefaultConfigName = "kernel.yaml"

// Names bound by the let that wraps a translated comprehension.
const (
	MonoidOpName       = "$OP$"
	MonoidIdentityName = "$ID$"
)

// Built-in function names the core refers to directly
const (
	EqualityName   = "=="
	InequalityName = "!="
	InName         = "in"
	AndName        = "and"
	OrName         = "or"
	NotName        = "not"
	RangeName      = "range"
	WriteName      = "write"
	IntToRealName  = "i2r"
	ConcatName     = "++"
)

// Prefix of parameters synthesized by the compiler and the comprehension engine.
const SyntheticPrefix = "$"

// DefaultInlineThreshold is the largest code length of an inlinable definition.
const DefaultInlineThreshold = 8

// IsSourceFile checks if a file has a recognized document extension
func IsSourceFile(path string) bool {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
