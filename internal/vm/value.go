package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/typesystem"
)

// Conversions between the boxed form of a value and the unboxed sorts.
// Booleans and characters are ints.

func toInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

func toReal(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}

func truthy(v any) bool {
	return toInt(v) != 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// equalValues compares runtime values structurally. Sets and bags compare
// regardless of order; closures compare by identity.
func equalValues(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case int64:
			return x == float64(y)
		}
		return false
	case string:
		y, ok := b.(string)
		return ok && x == y
	case *Tuple:
		y, ok := b.(*Tuple)
		return ok && equalSlices(x.Elems, y.Elems)
	case *Array:
		y, ok := b.(*Array)
		return ok && equalSlices(x.Elems, y.Elems)
	case *Map:
		y, ok := b.(*Map)
		return ok && equalValues(x.Index, y.Index) && equalSlices(x.Elems, y.Elems)
	case *IntRange:
		y, ok := b.(*IntRange)
		return ok && (*x == *y || x.Len() == 0 && y.Len() == 0)
	case *Collection:
		y, ok := b.(*Collection)
		if !ok || x.Kind != y.Kind || len(x.Elems) != len(y.Elems) {
			return false
		}
		if x.Kind == typesystem.ListKind {
			return equalSlices(x.Elems, y.Elems)
		}
		return sameMultiset(x.Elems, y.Elems)
	}
	return a == b
}

func equalSlices(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalValues(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameMultiset(a, b []any) bool {
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && equalValues(x, y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// copyValue copies the mutable structure of v: collections, arrays and
// maps. Array prototypes and collection identities are copied this way.
func copyValue(v any) any {
	switch x := v.(type) {
	case *Collection:
		return x.Copy()
	case *Array:
		elems := make([]any, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = copyValue(e)
		}
		return &Array{Elems: elems}
	case *Map:
		elems := make([]any, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = copyValue(e)
		}
		return &Map{Index: x.Index, Elems: elems}
	}
	return v
}

// inspect renders a value nested in a composite; strings are quoted.
func inspect(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return strconv.Quote(x)
	case Object:
		return x.Inspect()
	}
	return fmt.Sprint(v)
}

func inspectAll(vs []any) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = inspect(v)
	}
	return strings.Join(parts, ", ")
}

// display renders a value as write and string concatenation print it.
func display(v any, d bytecode.Display) string {
	switch d {
	case bytecode.DisplayChar:
		return string(rune(toInt(v)))
	case bytecode.DisplayBool:
		return strconv.FormatBool(truthy(v))
	}
	if s, ok := v.(string); ok {
		return s
	}
	return inspect(v)
}

// displayAt returns the i-th display mode of in, DisplayValue by default.
func displayAt(in *bytecode.Instruction, i int) bytecode.Display {
	if i < len(in.Display) {
		return in.Display[i]
	}
	return bytecode.DisplayValue
}

// Format renders a value of type t, such as the result of a unit.
func Format(v any, t typesystem.Type) string {
	switch typesystem.Deref(t) {
	case typesystem.Char:
		return strconv.QuoteRune(rune(toInt(v)))
	case typesystem.Bool:
		return strconv.FormatBool(truthy(v))
	case typesystem.Void:
		return "void"
	}
	return inspect(v)
}
