package symbols

import (
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/typesystem"
)

// DefinedEntry is a user definition. Its code is installed once compiled.
//
// An entry whose code refers to a definition that has no code yet is
// unsafe: it may be called, but not inlined, and running it before its
// dependencies are defined is a runtime error. Installing the missing code
// releases the entries that were waiting on it.
type DefinedEntry struct {
	symbol      *Symbol
	typ         typesystem.Type
	code        bytecode.Code
	provisional bool
	inlinable   bool

	waitingOn  map[*DefinedEntry]bool
	dependents []*DefinedEntry
}

func (d *DefinedEntry) Type() typesystem.Type { return d.typ }
func (*DefinedEntry) IsBuiltIn() bool         { return false }
func (*DefinedEntry) IsField() bool           { return false }
func (*DefinedEntry) IsProjection() bool      { return false }

func (d *DefinedEntry) Name() string          { return d.symbol.name }
func (d *DefinedEntry) Symbol() *Symbol       { return d.symbol }
func (d *DefinedEntry) Code() bytecode.Code   { return d.code }
func (d *DefinedEntry) IsProvisional() bool   { return d.provisional }
func (d *DefinedEntry) HasCode() bool         { return d.code != nil }
func (d *DefinedEntry) SetInlinable(on bool)  { d.inlinable = on }
func (d *DefinedEntry) SetCode(c bytecode.Code) { d.code = c }

// IsSafe reports whether every definition this entry's code refers to has
// code of its own.
func (d *DefinedEntry) IsSafe() bool {
	return len(d.waitingOn) == 0
}

// WaitingOn lists the names of the definitions d is blocked on.
func (d *DefinedEntry) WaitingOn() []string {
	var names []string
	for w := range d.waitingOn {
		names = append(names, w.Name())
	}
	return names
}

// IsInlinable reports whether references to d may copy its straight-line
// code instead of calling it.
func (d *DefinedEntry) IsInlinable() bool {
	if !d.inlinable || d.code == nil || !d.IsSafe() {
		return false
	}
	n := 0
	for _, in := range d.code {
		if in.Op == bytecode.END {
			break
		}
		if in.Op == bytecode.CALL && in.Entry == bytecode.CodeRef(d) {
			return false
		}
		n++
	}
	return n <= d.symbol.tables.inlineThreshold
}

// DependOn records that d's code refers to other, which is not yet safe to
// run. d stays unsafe until other is released.
func (d *DefinedEntry) DependOn(other *DefinedEntry) {
	if d.waitingOn == nil {
		d.waitingOn = make(map[*DefinedEntry]bool)
	}
	if d.waitingOn[other] {
		return
	}
	d.waitingOn[other] = true
	other.dependents = append(other.dependents, d)
}

// ReleaseUnsafeEntries is called once d's code is installed. A reference of
// d to itself is satisfied at this point. If d is then safe, every
// dependent waiting on it is unblocked, transitively.
func (d *DefinedEntry) ReleaseUnsafeEntries() {
	delete(d.waitingOn, d)
	if !d.IsSafe() || d.code == nil {
		return
	}
	dependents := d.dependents
	d.dependents = nil
	for _, dep := range dependents {
		delete(dep.waitingOn, d)
		if dep != d {
			dep.ReleaseUnsafeEntries()
		}
	}
}
