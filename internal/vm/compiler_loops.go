package vm

import (
	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/typesystem"
)

// homKind tells how a homomorphism accumulates.
type homKind int

const (
	// plainHom folds the images with the monoid operation
	plainHom homKind = iota
	// inPlaceHom keeps the last image, the function having updated the
	// identity itself
	inPlaceHom
	// collectionHom adds every element of every image to the identity
	collectionHom
)

// homOpcodes is indexed by filtered, kind and element sort.
var homOpcodes = [2][3][3]bytecode.Opcode{
	{
		{bytecode.APPLY_HOM_I, bytecode.APPLY_HOM_R, bytecode.APPLY_HOM_O},
		{bytecode.APPLY_IP_HOM_I, bytecode.APPLY_IP_HOM_R, bytecode.APPLY_IP_HOM_O},
		{bytecode.APPLY_COLL_HOM_I, bytecode.APPLY_COLL_HOM_R, bytecode.APPLY_COLL_HOM_O},
	},
	{
		{bytecode.APPLY_FHOM_I, bytecode.APPLY_FHOM_R, bytecode.APPLY_FHOM_O},
		{bytecode.APPLY_IP_FHOM_I, bytecode.APPLY_IP_FHOM_R, bytecode.APPLY_IP_FHOM_O},
		{bytecode.APPLY_COLL_FHOM_I, bytecode.APPLY_COLL_FHOM_R, bytecode.APPLY_COLL_FHOM_O},
	},
}

// slicedHomOpcodes is indexed by filtered and kind. Sliced collections
// hold tuples, so there are only object forms.
var slicedHomOpcodes = [2][3]bytecode.Opcode{
	{bytecode.APPLY_SLICED_HOM_O, bytecode.APPLY_SLICED_IP_HOM_O, bytecode.APPLY_SLICED_COLL_HOM_O},
	{bytecode.APPLY_SLICED_FHOM_O, bytecode.APPLY_SLICED_IP_FHOM_O, bytecode.APPLY_SLICED_COLL_FHOM_O},
}

// homShape is what the machine needs to know about a homomorphism opcode.
type homShape struct {
	filtered bool
	kind     homKind
}

var homShapes = func() map[bytecode.Opcode]homShape {
	m := make(map[bytecode.Opcode]homShape)
	for f := range homOpcodes {
		for k := range homOpcodes[f] {
			for _, op := range homOpcodes[f][k] {
				m[op] = homShape{filtered: f == 1, kind: homKind(k)}
			}
			m[slicedHomOpcodes[f][k]] = homShape{filtered: f == 1, kind: homKind(k)}
		}
	}
	return m
}()

// compileHomomorphism pushes, from the bottom: the identity, the operation
// unless the homomorphism is in place, the function, the filter of a
// filtered homomorphism, the slicers boxed and the collection.
func (c *Compiler) compileHomomorphism(h *ast.Homomorphism, filter ast.Expression, filtered bool) error {
	opType := h.Operation.CheckedType()
	image := typesystem.Domain(opType, 0)
	isColl := typesystem.Rank(typesystem.Domain(opType, 1)) == 1+typesystem.Rank(image)

	kind := plainHom
	switch {
	case h.InPlace == config.InPlaceEnabled, h.InPlace != config.InPlaceDisabled && isColl:
		kind = inPlaceHom
	case isColl:
		kind = collectionHom
	}

	info := &bytecode.HomInfo{
		Identity: SortOf(h.Identity),
		Result:   SortOf(h),
	}
	if kind == collectionHom {
		info.Tally = typesystem.BoxSortOf(image)
	}

	if err := c.compileExpression(h.Identity); err != nil {
		return err
	}
	if kind != inPlaceHom {
		if err := c.compileAs(h.Operation, typesystem.ObjectSort); err != nil {
			return err
		}
	}
	if err := c.compileAs(h.Function, typesystem.ObjectSort); err != nil {
		return err
	}
	if filtered {
		if filter == nil {
			c.generate(bytecode.Simple(bytecode.PUSH_NULL))
		} else if err := c.compileAs(filter, typesystem.ObjectSort); err != nil {
			return err
		}
	}
	if len(h.Slicings) > 0 {
		info.Slices = make([][]int, len(h.Slicings))
		for i := len(h.Slicings) - 1; i >= 0; i-- {
			slice, err := c.compileSlicing(h.Slicings[i])
			if err != nil {
				return err
			}
			info.Slices[i] = slice
		}
	}
	if err := c.compileAs(h.Collection, typesystem.ObjectSort); err != nil {
		return err
	}

	f := 0
	if filtered {
		f = 1
	}
	var op bytecode.Opcode
	if len(h.Slicings) > 0 {
		op = slicedHomOpcodes[f][kind]
	} else {
		op = homOpcodes[f][kind][collectionElemSort(h.Collection).Index()]
	}
	c.generate(bytecode.Instruction{Op: op, Hom: info})
	return nil
}

// collectionElemSort is the sort of the elements iterated over.
func collectionElemSort(coll ast.Expression) typesystem.Sort {
	t := coll.CheckedType()
	if typesystem.Deref(t) == typesystem.IntRange {
		return typesystem.IntSort
	}
	s := elemSort(t)
	if s == typesystem.VoidSort {
		return typesystem.ObjectSort
	}
	return s
}

// compileSlicing pushes the boxed slicer of x.p1...pn == e and returns the
// path p1...pn followed by the sort of the projected component.
func (c *Compiler) compileSlicing(slicing ast.Expression) ([]int, error) {
	app, ok := slicing.(*ast.Application)
	if !ok || len(app.Args) != 2 {
		ast.Violation(slicing, "malformed slicing")
	}
	proj, ok := app.Args[0].(*ast.TupleProjection)
	if !ok {
		ast.Violation(slicing, "slicing without a projection")
	}

	var path []int
	var e ast.Expression = proj
	for {
		p, ok := e.(*ast.TupleProjection)
		if !ok {
			break
		}
		path = append(path, p.Position)
		e = p.Tuple
	}
	if _, ok := e.(*ast.DummyLocal); !ok {
		ast.Violation(slicing, "slicing over %s instead of the generator", e)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	path = append(path, int(SortOf(proj)))

	if err := c.compileAs(app.Args[1], typesystem.ObjectSort); err != nil {
		return nil, err
	}
	return path, nil
}
