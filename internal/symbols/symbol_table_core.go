package symbols

import (
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/typesystem"
)

// CodeEntry is one typed meaning of a symbol.
type CodeEntry interface {
	Type() typesystem.Type
	IsBuiltIn() bool
	IsField() bool
	IsProjection() bool
}

// Symbol is a global name. Overloaded names carry several entries, tried in
// registration order by the checker.
type Symbol struct {
	name    string
	tables  *Tables
	entries []CodeEntry
}

func (s *Symbol) Name() string         { return s.name }
func (s *Symbol) Entries() []CodeEntry { return s.entries }
func (s *Symbol) String() string       { return s.name }

// IsDefined reports whether the symbol has at least one entry.
func (s *Symbol) IsDefined() bool {
	return len(s.entries) > 0
}

// IsScalar reports whether some entry of s is not a function.
func (s *Symbol) IsScalar() bool {
	for _, e := range s.entries {
		if _, ok := typesystem.AsFunc(e.Type()); !ok {
			return true
		}
	}
	return false
}

// Provisional returns an entry typed by the unresolved cell t so that the
// body of a definition may refer to the name it defines. The entry becomes
// the real one when RegisterCodeEntry is called for the same definition.
func (s *Symbol) Provisional(t typesystem.Type) *DefinedEntry {
	for _, e := range s.entries {
		if d, ok := e.(*DefinedEntry); ok && d.provisional {
			return d
		}
	}
	d := s.newDefinedEntry(t)
	d.provisional = true
	s.entries = append(s.entries, d)
	return d
}

// DropProvisional removes a provisional entry left by a definition that
// failed to check.
func (s *Symbol) DropProvisional() {
	for i, e := range s.entries {
		if d, ok := e.(*DefinedEntry); ok && d.provisional {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// RegisterCodeEntry returns the entry a definition of type t compiles into.
// A provisional entry is promoted; an entry of an equivalent type is reset
// for redefinition; otherwise a new overload is added.
func (s *Symbol) RegisterCodeEntry(t typesystem.Type) *DefinedEntry {
	t = typesystem.Resolve(t)
	for _, e := range s.entries {
		d, ok := e.(*DefinedEntry)
		if !ok {
			continue
		}
		if d.provisional {
			d.provisional = false
			d.typ = t
			return d
		}
	}
	for _, e := range s.entries {
		if d, ok := e.(*DefinedEntry); ok && typesystem.Equivalent(d.typ, t) {
			d.typ = t
			d.code = nil
			d.inlinable = true
			return d
		}
	}
	d := s.newDefinedEntry(t)
	s.entries = append(s.entries, d)
	return d
}

func (s *Symbol) newDefinedEntry(t typesystem.Type) *DefinedEntry {
	return &DefinedEntry{symbol: s, typ: t, inlinable: true}
}

// BuiltinEntry is a library function implemented by one instruction, or by
// a placeholder the compiler expands according to the argument types.
type BuiltinEntry struct {
	typ         typesystem.Type
	Instruction bytecode.Instruction
}

func (b *BuiltinEntry) Type() typesystem.Type { return b.typ }
func (*BuiltinEntry) IsBuiltIn() bool         { return true }
func (*BuiltinEntry) IsField() bool           { return false }
func (*BuiltinEntry) IsProjection() bool      { return false }

// IsDummy reports whether the instruction is a placeholder.
func (b *BuiltinEntry) IsDummy() bool {
	return b.Instruction.Op.IsDummy()
}

// ProjectionEntry accesses one named field of a named tuple type.
type ProjectionEntry struct {
	typ   typesystem.Type
	Tuple *typesystem.TNamedTuple
	// Position is the 1-based position of the field in the tuple.
	Position int
}

func (p *ProjectionEntry) Type() typesystem.Type { return p.typ }
func (*ProjectionEntry) IsBuiltIn() bool         { return false }
func (*ProjectionEntry) IsField() bool           { return false }
func (*ProjectionEntry) IsProjection() bool      { return true }

// FieldSort is the runtime sort of the projected field.
func (p *ProjectionEntry) FieldSort() typesystem.Sort {
	return typesystem.BoxSortOf(typesystem.Range(p.typ))
}
