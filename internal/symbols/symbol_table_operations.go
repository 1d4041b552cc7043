package symbols

import (
	"sort"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Tables is the global symbol table shared by the phases of one session.
type Tables struct {
	symbols         map[string]*Symbol
	inlineThreshold int
}

// NewEmptyTables returns a table without the builtin library.
func NewEmptyTables() *Tables {
	return &Tables{
		symbols:         make(map[string]*Symbol),
		inlineThreshold: config.DefaultInlineThreshold,
	}
}

// NewTables returns a table holding the builtin library.
func NewTables() *Tables {
	t := NewEmptyTables()
	RegisterBuiltins(t)
	return t
}

// SetInlineThreshold bounds the straight-line code length of inlinable
// definitions.
func (t *Tables) SetInlineThreshold(n int) {
	t.inlineThreshold = n
}

// Symbol returns the symbol called name, creating an undefined one if needed.
func (t *Tables) Symbol(name string) *Symbol {
	if s, ok := t.symbols[name]; ok {
		return s
	}
	s := &Symbol{name: name, tables: t}
	t.symbols[name] = s
	return s
}

// Lookup returns the symbol called name if it has entries.
func (t *Tables) Lookup(name string) (*Symbol, bool) {
	s, ok := t.symbols[name]
	if !ok || !s.IsDefined() {
		return nil, false
	}
	return s, true
}

// IsDefinedScalar reports whether name is a defined global with a
// non-function meaning.
func (t *Tables) IsDefinedScalar(name string) bool {
	s, ok := t.Lookup(name)
	return ok && s.IsScalar()
}

// IsEquality reports whether name denotes the equality builtin.
func (t *Tables) IsEquality(name string) bool {
	return name == config.EqualityName
}

// Names lists the defined symbols in lexical order.
func (t *Tables) Names() []string {
	var names []string
	for name, s := range t.symbols {
		if s.IsDefined() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DefineBuiltin adds a builtin overload of name.
func (t *Tables) DefineBuiltin(name string, typ typesystem.Type, op bytecode.Opcode) *BuiltinEntry {
	s := t.Symbol(name)
	b := &BuiltinEntry{typ: typ, Instruction: bytecode.Simple(op)}
	s.entries = append(s.entries, b)
	return b
}

// DefineProjection declares name as the accessor of one field of the named
// tuple type tuple.
func (t *Tables) DefineProjection(name string, tuple *typesystem.TNamedTuple) (*ProjectionEntry, bool) {
	pos := tuple.FieldIndex(name)
	if pos < 0 {
		return nil, false
	}
	p := &ProjectionEntry{
		typ:      typesystem.NewFunc(tuple.Fields[pos].Type, tuple),
		Tuple:    tuple,
		Position: pos + 1,
	}
	s := t.Symbol(name)
	s.entries = append(s.entries, p)
	return p, true
}

// DeclareFields makes each name of a record shape the accessor of its
// field. The field types are left open, so the accessors serve every record
// with exactly these field names. A shape that is already declared keeps
// its accessors.
func (t *Tables) DeclareFields(names []string) []*ProjectionEntry {
	fields := make([]typesystem.Field, len(names))
	for i, name := range names {
		fields[i] = typesystem.Field{Name: name, Type: typesystem.NewVar()}
	}
	tuple := typesystem.NewNamedTuple(fields)
	var out []*ProjectionEntry
	for _, f := range tuple.Fields {
		if t.hasProjection(f.Name, tuple) {
			continue
		}
		p, _ := t.DefineProjection(f.Name, tuple)
		out = append(out, p)
	}
	return out
}

func (t *Tables) hasProjection(name string, tuple *typesystem.TNamedTuple) bool {
	s, ok := t.symbols[name]
	if !ok {
		return false
	}
	for _, e := range s.entries {
		if p, ok := e.(*ProjectionEntry); ok && sameFieldNames(p.Tuple, tuple) {
			return true
		}
	}
	return false
}

func sameFieldNames(a, b *typesystem.TNamedTuple) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name {
			return false
		}
	}
	return true
}
