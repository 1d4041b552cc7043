// Package backend provides the ways a compiled document can be consumed:
// run on the reference machine, or listed.
package backend

import (
	"github.com/funvibe/kernel/internal/pipeline"
)

// Backend consumes the compiled units of a context.
type Backend interface {
	// Run processes the live units of ctx. It reports unit failures
	// through ctx and returns an error only when it cannot proceed at all.
	Run(ctx *pipeline.PipelineContext) error

	// Name returns the backend name for display
	Name() string
}
