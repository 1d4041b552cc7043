package prettyprinter

import (
	"strconv"
	"strings"

	"github.com/funvibe/kernel/internal/typesystem"
)

// TypeString writes t in annotation notation. Unbound variables are named
// a, b, ... in order of appearance, so equal variables get equal names.
func TypeString(t typesystem.Type) string {
	tp := &typePrinter{names: make(map[*typesystem.TVar]string)}
	tp.write(t)
	return tp.sb.String()
}

type typePrinter struct {
	sb    strings.Builder
	names map[*typesystem.TVar]string
}

func (tp *typePrinter) write(t typesystem.Type) {
	switch t := typesystem.Deref(t).(type) {
	case typesystem.TCon:
		tp.sb.WriteString(t.Name)
	case *typesystem.TVar:
		n, ok := tp.names[t]
		if !ok {
			n = varName(len(tp.names))
			tp.names[t] = n
		}
		tp.sb.WriteString(n)
	case *typesystem.TCollection:
		tp.sb.WriteString(t.Kind.String())
		tp.sb.WriteByte('(')
		tp.write(t.Elem)
		tp.sb.WriteByte(')')
	case *typesystem.TArray:
		tp.sb.WriteString("array[")
		tp.write(t.Index)
		tp.sb.WriteString("](")
		tp.write(t.Elem)
		tp.sb.WriteByte(')')
	case *typesystem.TTuple:
		tp.list(t.Elems)
	case *typesystem.TNamedTuple:
		tp.sb.WriteByte('(')
		for i, f := range t.Fields {
			if i > 0 {
				tp.sb.WriteString(", ")
			}
			tp.sb.WriteString(f.Name)
			tp.sb.WriteString(": ")
			tp.write(f.Type)
		}
		tp.sb.WriteByte(')')
	case *typesystem.TFunc:
		tp.list(t.Params)
		tp.sb.WriteString(" -> ")
		tp.write(t.ReturnType)
	default:
		tp.sb.WriteString("_")
	}
}

func (tp *typePrinter) list(ts []typesystem.Type) {
	tp.sb.WriteByte('(')
	for i, e := range ts {
		if i > 0 {
			tp.sb.WriteString(", ")
		}
		tp.write(e)
	}
	tp.sb.WriteByte(')')
}

// varName returns a, b, ..., z, a1, b1, ...
func varName(i int) string {
	s := string(rune('a' + i%26))
	if i >= 26 {
		s += strconv.Itoa(i / 26)
	}
	return s
}
