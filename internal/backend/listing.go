package backend

import (
	"fmt"
	"strings"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/pipeline"
)

// ListingBackend writes the disassembly of every compiled unit instead of
// running it.
type ListingBackend struct {
	// Colour highlights the opcodes with ANSI escapes.
	Colour bool
}

func NewListing(colour bool) *ListingBackend {
	return &ListingBackend{Colour: colour}
}

func (b *ListingBackend) Run(ctx *pipeline.PipelineContext) error {
	for _, u := range ctx.Live() {
		if u.Code == nil {
			return fmt.Errorf("unit %s was not compiled", u.Name)
		}
		listing := bytecode.Disassemble(u.Code, u.Name)
		if b.Colour {
			listing = colourize(listing)
		}
		if _, err := fmt.Fprint(ctx.Output, listing); err != nil {
			return err
		}
	}
	return nil
}

func (b *ListingBackend) Name() string {
	return "listing"
}

const (
	ansiBold  = "\x1b[1m"
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

// colourize makes headers bold and opcodes cyan. A listing line is an
// address, the opcode and its operands.
func colourize(listing string) string {
	lines := strings.Split(strings.TrimSuffix(listing, "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "==") {
			lines[i] = ansiBold + line + ansiReset
			continue
		}
		addr, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		op, operands, _ := strings.Cut(rest, " ")
		lines[i] = addr + " " + ansiCyan + op + ansiReset
		if operands != "" {
			lines[i] += " " + operands
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
