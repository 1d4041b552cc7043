package vm

import (
	"fmt"

	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/typesystem"
)

// execData runs the collection, tuple and array instructions.
func (m *Machine) execData(in *bytecode.Instruction) error {
	switch op := in.Op; op {
	case bytecode.PUSH_SET:
		m.pushObj(NewCollection(typesystem.SetKind))
	case bytecode.PUSH_LIST:
		m.pushObj(NewCollection(typesystem.ListKind))
	case bytecode.PUSH_BAG:
		m.pushObj(NewCollection(typesystem.BagKind))

	case bytecode.MAKE_SET_I, bytecode.MAKE_SET_R, bytecode.MAKE_SET_O:
		m.pushObj(m.makeCollection(typesystem.SetKind, op.SortIn(bytecode.MAKE_SET_I, bytecode.MAKE_SET_R, bytecode.MAKE_SET_O)))
	case bytecode.MAKE_LIST_I, bytecode.MAKE_LIST_R, bytecode.MAKE_LIST_O:
		m.pushObj(m.makeCollection(typesystem.ListKind, op.SortIn(bytecode.MAKE_LIST_I, bytecode.MAKE_LIST_R, bytecode.MAKE_LIST_O)))
	case bytecode.MAKE_BAG_I, bytecode.MAKE_BAG_R, bytecode.MAKE_BAG_O:
		m.pushObj(m.makeCollection(typesystem.BagKind, op.SortIn(bytecode.MAKE_BAG_I, bytecode.MAKE_BAG_R, bytecode.MAKE_BAG_O)))

	// The element is on top of the collection.
	case bytecode.SET_ADD_I, bytecode.SET_ADD_R, bytecode.SET_ADD_O:
		v := m.pop(op.SortIn(bytecode.SET_ADD_I, bytecode.SET_ADD_R, bytecode.SET_ADD_O))
		c, err := asCollection(m.popObj())
		if err != nil {
			return err
		}
		c.Add(v)
		m.pushObj(c)
	case bytecode.SET_RMV_I, bytecode.SET_RMV_R, bytecode.SET_RMV_O:
		v := m.pop(op.SortIn(bytecode.SET_RMV_I, bytecode.SET_RMV_R, bytecode.SET_RMV_O))
		c, err := asCollection(m.popObj())
		if err != nil {
			return err
		}
		c.Remove(v)
		m.pushObj(c)
	case bytecode.BELONGS_I, bytecode.BELONGS_R, bytecode.BELONGS_O:
		v := m.pop(op.SortIn(bytecode.BELONGS_I, bytecode.BELONGS_R, bytecode.BELONGS_O))
		elems, err := elements(m.popObj())
		if err != nil {
			return err
		}
		m.pushInt(boolInt(indexOf(elems, v) >= 0))

	case bytecode.FIRST_I, bytecode.FIRST_R, bytecode.FIRST_O, bytecode.LAST_I, bytecode.LAST_R, bytecode.LAST_O:
		elems, err := elements(m.popObj())
		if err != nil {
			return err
		}
		if len(elems) == 0 {
			return errEmptyCollection
		}
		if s := op.SortIn(bytecode.FIRST_I, bytecode.FIRST_R, bytecode.FIRST_O); s != typesystem.VoidSort {
			m.push(s, elems[0])
		} else {
			m.push(op.SortIn(bytecode.LAST_I, bytecode.LAST_R, bytecode.LAST_O), elems[len(elems)-1])
		}

	// The collection is on top of the element.
	case bytecode.ORD_I, bytecode.ORD_R, bytecode.ORD_O:
		elems, err := elements(m.popObj())
		if err != nil {
			return err
		}
		v := m.pop(op.SortIn(bytecode.ORD_I, bytecode.ORD_R, bytecode.ORD_O))
		m.pushInt(int64(indexOf(elems, v) + 1))
	case bytecode.NEXT_I, bytecode.NEXT_R, bytecode.NEXT_O, bytecode.PREV_I, bytecode.PREV_R, bytecode.PREV_O:
		s, step := op.SortIn(bytecode.NEXT_I, bytecode.NEXT_R, bytecode.NEXT_O), 1
		if s == typesystem.VoidSort {
			s, step = op.SortIn(bytecode.PREV_I, bytecode.PREV_R, bytecode.PREV_O), -1
		}
		elems, err := elements(m.popObj())
		if err != nil {
			return err
		}
		v := m.pop(s)
		i := indexOf(elems, v)
		if i < 0 {
			return fmt.Errorf("%w: %s", errNotFound, inspect(v))
		}
		if i+step < 0 || i+step >= len(elems) {
			return fmt.Errorf("%w: no neighbour of %s", errIndexOutOfRange, inspect(v))
		}
		m.push(s, elems[i+step])

	case bytecode.SIZE:
		elems, err := elements(m.popObj())
		if err != nil {
			return err
		}
		m.pushInt(int64(len(elems)))
	case bytecode.RANGE:
		lo := m.popInt()
		hi := m.popInt()
		m.pushObj(&IntRange{Lo: lo, Hi: hi})

	case bytecode.PUSH_TUPLE:
		elems := make([]any, len(in.Sorts))
		for i, s := range in.Sorts {
			elems[i] = m.pop(s)
		}
		m.pushObj(&Tuple{Elems: elems})
	case bytecode.GET_TUPLE_I, bytecode.GET_TUPLE_R, bytecode.GET_TUPLE_O:
		t, ok := m.popObj().(*Tuple)
		if !ok {
			return fmt.Errorf("%w: projection of a non-tuple", errBadOperand)
		}
		i := int(in.Int) - 1
		if i < 0 || i >= len(t.Elems) {
			return fmt.Errorf("%w: tuple component %d", errIndexOutOfRange, in.Int)
		}
		m.push(op.SortIn(bytecode.GET_TUPLE_I, bytecode.GET_TUPLE_R, bytecode.GET_TUPLE_O), t.Elems[i])

	default:
		return m.execArray(in)
	}
	return nil
}

// execArray runs the array and map instructions. Indices are pushed before
// the array they select in.
func (m *Machine) execArray(in *bytecode.Instruction) error {
	switch op := in.Op; op {
	case bytecode.PUSH_ARRAY_I, bytecode.PUSH_ARRAY_R, bytecode.PUSH_ARRAY_O:
		n := m.popInt()
		if n < 0 {
			return fmt.Errorf("%w: array size %d", errIndexOutOfRange, n)
		}
		m.pushObj(&Array{Elems: defaults(int(n), op.SortIn(bytecode.PUSH_ARRAY_I, bytecode.PUSH_ARRAY_R, bytecode.PUSH_ARRAY_O))})
	case bytecode.PUSH_MAP_I, bytecode.PUSH_MAP_R, bytecode.PUSH_MAP_O:
		idx, n, err := mapIndex(m.popObj())
		if err != nil {
			return err
		}
		m.pushObj(&Map{Index: idx, Elems: defaults(n, op.SortIn(bytecode.PUSH_MAP_I, bytecode.PUSH_MAP_R, bytecode.PUSH_MAP_O))})

	case bytecode.FILL_ARRAY:
		n := m.popInt()
		proto := m.popObj()
		if n < 0 {
			return fmt.Errorf("%w: array size %d", errIndexOutOfRange, n)
		}
		m.pushObj(&Array{Elems: replicate(proto, int(n))})
	case bytecode.FILL_MAP:
		idx, n, err := mapIndex(m.popObj())
		if err != nil {
			return err
		}
		proto := m.popObj()
		m.pushObj(&Map{Index: idx, Elems: replicate(proto, n)})

	case bytecode.MAKE_ARRAY_I, bytecode.MAKE_ARRAY_R, bytecode.MAKE_ARRAY_O:
		n := int(m.popInt())
		m.pushObj(&Array{Elems: m.popElems(n, op.SortIn(bytecode.MAKE_ARRAY_I, bytecode.MAKE_ARRAY_R, bytecode.MAKE_ARRAY_O))})
	case bytecode.MAKE_MAP_I, bytecode.MAKE_MAP_R, bytecode.MAKE_MAP_O:
		idx, size, err := mapIndex(m.popObj())
		if err != nil {
			return err
		}
		n := int(m.popInt())
		elems := m.popElems(n, op.SortIn(bytecode.MAKE_MAP_I, bytecode.MAKE_MAP_R, bytecode.MAKE_MAP_O))
		if n != size {
			return fmt.Errorf("%w: %d values for %d indices", errIndexOutOfRange, n, size)
		}
		m.pushObj(&Map{Index: idx, Elems: elems})

	case bytecode.GET_ARRAY_I, bytecode.GET_ARRAY_R, bytecode.GET_ARRAY_O:
		a, ok := m.popObj().(*Array)
		if !ok {
			return fmt.Errorf("%w: indexing a non-array", errBadOperand)
		}
		i := m.popInt()
		if i < 0 || i >= int64(len(a.Elems)) {
			return fmt.Errorf("%w: %d", errIndexOutOfRange, i)
		}
		m.push(op.SortIn(bytecode.GET_ARRAY_I, bytecode.GET_ARRAY_R, bytecode.GET_ARRAY_O), a.Elems[i])
	case bytecode.GET_MAP_I, bytecode.GET_MAP_R, bytecode.GET_MAP_O:
		mp, ok := m.popObj().(*Map)
		if !ok {
			return fmt.Errorf("%w: indexing a non-map", errBadOperand)
		}
		key := m.popObj()
		i := mp.position(key)
		if i < 0 {
			return fmt.Errorf("%w: %s", errNoSuchKey, inspect(key))
		}
		m.push(op.SortIn(bytecode.GET_MAP_I, bytecode.GET_MAP_R, bytecode.GET_MAP_O), mp.Elems[i])
	case bytecode.GET_INT_INDEXED_MAP_I, bytecode.GET_INT_INDEXED_MAP_R, bytecode.GET_INT_INDEXED_MAP_O:
		mp, ok := m.popObj().(*Map)
		if !ok {
			return fmt.Errorf("%w: indexing a non-map", errBadOperand)
		}
		key := m.popInt()
		i := mp.position(key)
		if i < 0 {
			return fmt.Errorf("%w: %d", errIndexOutOfRange, key)
		}
		m.push(op.SortIn(bytecode.GET_INT_INDEXED_MAP_I, bytecode.GET_INT_INDEXED_MAP_R, bytecode.GET_INT_INDEXED_MAP_O), mp.Elems[i])

	// The value is on top of the array, itself on top of the index.
	case bytecode.SET_ARRAY_I, bytecode.SET_ARRAY_R, bytecode.SET_ARRAY_O:
		s := op.SortIn(bytecode.SET_ARRAY_I, bytecode.SET_ARRAY_R, bytecode.SET_ARRAY_O)
		v := m.pop(s)
		a, ok := m.popObj().(*Array)
		if !ok {
			return fmt.Errorf("%w: indexing a non-array", errBadOperand)
		}
		i := m.popInt()
		if i < 0 || i >= int64(len(a.Elems)) {
			return fmt.Errorf("%w: %d", errIndexOutOfRange, i)
		}
		a.Elems[i] = v
		m.push(s, v)
	case bytecode.SET_MAP_I, bytecode.SET_MAP_R, bytecode.SET_MAP_O,
		bytecode.SET_INT_INDEXED_MAP_I, bytecode.SET_INT_INDEXED_MAP_R, bytecode.SET_INT_INDEXED_MAP_O:
		s := op.SortIn(bytecode.SET_MAP_I, bytecode.SET_MAP_R, bytecode.SET_MAP_O)
		intKey := s == typesystem.VoidSort
		if intKey {
			s = op.SortIn(bytecode.SET_INT_INDEXED_MAP_I, bytecode.SET_INT_INDEXED_MAP_R, bytecode.SET_INT_INDEXED_MAP_O)
		}
		v := m.pop(s)
		mp, ok := m.popObj().(*Map)
		if !ok {
			return fmt.Errorf("%w: indexing a non-map", errBadOperand)
		}
		var key any
		if intKey {
			key = m.popInt()
		} else {
			key = m.popObj()
		}
		i := mp.position(key)
		if i < 0 {
			return fmt.Errorf("%w: %s", errNoSuchKey, inspect(key))
		}
		mp.Elems[i] = v
		m.push(s, v)

	case bytecode.ARRAY_SIZE, bytecode.MAP_SIZE:
		switch a := m.popObj().(type) {
		case *Array:
			m.pushInt(int64(len(a.Elems)))
		case *Map:
			m.pushInt(int64(len(a.Elems)))
		default:
			return fmt.Errorf("%w: size of %s", errBadOperand, inspect(a))
		}

	default:
		return fmt.Errorf("%w: unexpected %s", errBadOperand, op)
	}
	return nil
}

// makeCollection pops a count, then that many elements, the first one
// first.
func (m *Machine) makeCollection(kind typesystem.CollectionKind, s typesystem.Sort) *Collection {
	n := int(m.popInt())
	c := NewCollection(kind)
	for _, v := range m.popElems(n, s) {
		c.Add(v)
	}
	return c
}

func (m *Machine) popElems(n int, s typesystem.Sort) []any {
	elems := make([]any, n)
	for i := range elems {
		elems[i] = m.pop(s)
	}
	return elems
}

func asCollection(v any) (*Collection, error) {
	if c, ok := v.(*Collection); ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s is not a collection", errBadOperand, inspect(v))
}

// elements lists the elements of a collection or int range, in iteration
// order. The slice is a snapshot.
func elements(v any) ([]any, error) {
	switch c := v.(type) {
	case *Collection:
		return append([]any(nil), c.Elems...), nil
	case *IntRange:
		elems := make([]any, c.Len())
		for i := range elems {
			elems[i] = c.Lo + int64(i)
		}
		return elems, nil
	}
	return nil, fmt.Errorf("%w: %s is not a collection", errBadOperand, inspect(v))
}

func indexOf(elems []any, v any) int {
	for i, e := range elems {
		if equalValues(e, v) {
			return i
		}
	}
	return -1
}

// mapIndex checks the index set of a map and returns its size.
func mapIndex(v any) (Object, int, error) {
	switch idx := v.(type) {
	case *IntRange:
		return idx, idx.Len(), nil
	case *Collection:
		return idx, len(idx.Elems), nil
	}
	return nil, 0, fmt.Errorf("%w: %s is not an index set", errBadOperand, inspect(v))
}

// defaults returns n null values of sort s.
func defaults(n int, s typesystem.Sort) []any {
	var zero any
	switch s {
	case typesystem.IntSort:
		zero = int64(0)
	case typesystem.RealSort:
		zero = float64(0)
	}
	elems := make([]any, n)
	for i := range elems {
		elems[i] = zero
	}
	return elems
}

func replicate(proto any, n int) []any {
	elems := make([]any, n)
	for i := range elems {
		elems[i] = copyValue(proto)
	}
	return elems
}

// applyHomomorphism pops the operands laid out by compileHomomorphism and
// folds the collection.
func (m *Machine) applyHomomorphism(in *bytecode.Instruction, shape homShape) error {
	h := in.Hom
	coll := m.popObj()
	slicers := make([]any, len(h.Slices))
	for i := range slicers {
		slicers[i] = m.popObj()
	}
	var filter any
	if shape.filtered {
		filter = m.popObj()
	}
	fn := m.popObj()
	var op any
	if shape.kind != inPlaceHom {
		op = m.popObj()
	}
	acc := m.pop(h.Identity)
	if shape.kind == collectionHom {
		acc = copyValue(acc)
	}

	elems, err := elements(coll)
	if err != nil {
		return err
	}
	for _, x := range elems {
		if !sliceMatches(x, h.Slices, slicers) {
			continue
		}
		if filter != nil {
			keep, err := m.apply(filter, []any{x})
			if err != nil {
				return err
			}
			if !truthy(keep) {
				continue
			}
		}
		img, err := m.apply(fn, []any{x})
		if err != nil {
			return err
		}
		switch shape.kind {
		case inPlaceHom:
			acc = img
		case collectionHom:
			ys, err := elements(img)
			if err != nil {
				return err
			}
			for _, y := range ys {
				if acc, err = m.apply(op, []any{y, acc}); err != nil {
					return err
				}
			}
		default:
			if acc, err = m.apply(op, []any{img, acc}); err != nil {
				return err
			}
		}
	}
	m.push(h.Result, acc)
	return nil
}

// sliceMatches reports whether the tuple x has, along each slice path, the
// component held by the matching slicer.
func sliceMatches(x any, slices [][]int, slicers []any) bool {
	for i, path := range slices {
		v := x
		for _, p := range path[:len(path)-1] {
			t, ok := v.(*Tuple)
			if !ok || p < 1 || p > len(t.Elems) {
				return false
			}
			v = t.Elems[p-1]
		}
		if !equalValues(v, slicers[i]) {
			return false
		}
	}
	return true
}
