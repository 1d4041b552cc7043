package kernel

import (
	"fmt"
	"reflect"

	"github.com/funvibe/kernel/internal/typesystem"
	"github.com/funvibe/kernel/internal/vm"
)

// Marshaller handles conversion between Go and machine values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value to a machine value. Slices become lists and
// maps with comparable keys become sets of their keys; machine values pass
// through unchanged.
func (m *Marshaller) ToValue(val any) (any, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case vm.Object:
		return v, nil
	case rune:
		return int64(v), nil
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Bool:
		if v.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice, reflect.Array:
		return m.sliceToCollection(v, typesystem.ListKind)
	case reflect.Map:
		return m.mapToSet(v)
	}
	return nil, fmt.Errorf("cannot convert %T", val)
}

func (m *Marshaller) sliceToCollection(v reflect.Value, kind typesystem.CollectionKind) (*vm.Collection, error) {
	c := vm.NewCollection(kind)
	for i := 0; i < v.Len(); i++ {
		e, err := m.ToValue(v.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		c.Add(e)
	}
	return c, nil
}

func (m *Marshaller) mapToSet(v reflect.Value) (*vm.Collection, error) {
	c := vm.NewCollection(typesystem.SetKind)
	iter := v.MapRange()
	for iter.Next() {
		k, err := m.ToValue(iter.Key().Interface())
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		c.Add(k)
	}
	return c, nil
}

// FromValue converts a machine value of type t to Go. Integers come back
// as int64, booleans as bool, chars as rune, and collections, tuples and
// arrays as []any. Maps, closures and partial applications are returned
// unchanged. A nil t leaves integers as int64.
func (m *Marshaller) FromValue(val any, t typesystem.Type) (any, error) {
	switch typesystem.Deref(t) {
	case typesystem.Bool:
		i, ok := val.(int64)
		if !ok {
			return nil, fmt.Errorf("bool held as %T", val)
		}
		return i != 0, nil
	case typesystem.Char:
		i, ok := val.(int64)
		if !ok {
			return nil, fmt.Errorf("char held as %T", val)
		}
		return rune(i), nil
	case typesystem.Void:
		return nil, nil
	}

	switch v := val.(type) {
	case *vm.Collection:
		return m.elems(v.Elems, func(int) typesystem.Type { return typesystem.ElemType(t) })
	case *vm.Array:
		return m.elems(v.Elems, func(int) typesystem.Type { return typesystem.ElemType(t) })
	case *vm.Tuple:
		types, _ := typesystem.TupleElems(t)
		return m.elems(v.Elems, func(i int) typesystem.Type {
			if i < len(types) {
				return types[i]
			}
			return nil
		})
	case *vm.IntRange:
		out := make([]any, 0, v.Len())
		for i := v.Lo; i <= v.Hi; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	return val, nil
}

func (m *Marshaller) elems(vals []any, typeOf func(int) typesystem.Type) ([]any, error) {
	out := make([]any, len(vals))
	for i, e := range vals {
		v, err := m.FromValue(e, typeOf(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
