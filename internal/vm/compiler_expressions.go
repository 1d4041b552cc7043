package vm

import (
	"fmt"

	"github.com/funvibe/kernel/internal/ast"
	"github.com/funvibe/kernel/internal/bytecode"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/typesystem"
)

func (c *Compiler) compileConstant(n *ast.Constant) error {
	want := SortOf(n)
	natural := typesystem.IntSort
	switch n.Kind {
	case ast.VoidConstant:
		natural = typesystem.VoidSort
	case ast.BoolConstant:
		if want == typesystem.ObjectSort {
			if n.Bool {
				c.generate(bytecode.Simple(bytecode.PUSH_BOXED_TRUE))
			} else {
				c.generate(bytecode.Simple(bytecode.PUSH_BOXED_FALSE))
			}
			return nil
		}
		if n.Bool {
			c.generate(bytecode.Simple(bytecode.PUSH_TRUE))
		} else {
			c.generate(bytecode.Simple(bytecode.PUSH_FALSE))
		}
	case ast.IntConstant, ast.CharConstant:
		c.generate(bytecode.Instruction{Op: bytecode.PUSH_VALUE_I, Int: n.Int})
	case ast.RealConstant:
		natural = typesystem.RealSort
		c.generate(bytecode.Instruction{Op: bytecode.PUSH_VALUE_R, Real: n.Real})
	case ast.StringConstant:
		natural = typesystem.ObjectSort
		c.generate(bytecode.Instruction{Op: bytecode.PUSH_VALUE_O, Str: n.Str})
	case ast.NullConstant:
		c.compileNull(n, want)
		return nil
	}
	c.adapt(natural, want)
	return nil
}

// compileNull pushes the default value of the type of n in sort want.
func (c *Compiler) compileNull(n *ast.Constant, want typesystem.Sort) {
	t := n.CheckedType()
	if t == nil {
		t = n.Type()
	}
	boxed := want == typesystem.ObjectSort
	switch d := typesystem.Deref(t); {
	case d == typesystem.Void:
	case d == typesystem.Bool:
		if boxed {
			c.generate(bytecode.Simple(bytecode.PUSH_BOXED_FALSE))
		} else {
			c.generate(bytecode.Simple(bytecode.PUSH_FALSE))
		}
	case typesystem.SortOf(d) == typesystem.IntSort:
		if boxed {
			c.generate(bytecode.Simple(bytecode.PUSH_ZERO_I))
		} else {
			c.generate(bytecode.Simple(bytecode.PUSH_0_I))
		}
	case typesystem.SortOf(d) == typesystem.RealSort:
		if boxed {
			c.generate(bytecode.Simple(bytecode.PUSH_ZERO_R))
		} else {
			c.generate(bytecode.Simple(bytecode.PUSH_0_R))
		}
	case d == typesystem.String:
		c.generate(bytecode.Simple(bytecode.PUSH_EMPTY_STR))
	default:
		c.generate(bytecode.Simple(bytecode.PUSH_NULL))
	}
}

// compileGlobal pushes the value of a global used other than in function
// position.
func (c *Compiler) compileGlobal(g *ast.Global) error {
	switch entry := g.Entry.(type) {
	case *symbols.DefinedEntry:
		c.compileDefinedEntry(g, entry)
		return nil
	case *symbols.BuiltinEntry, *symbols.ProjectionEntry:
		return c.compileEta(g, nil)
	}
	ast.Violation(g, "global %s has no entry", g.Name())
	return nil
}

// compileDefinedEntry runs the code of a definition, or copies it when it
// is short enough.
func (c *Compiler) compileDefinedEntry(g *ast.Global, entry *symbols.DefinedEntry) {
	if c.entry != nil && (!entry.HasCode() || !entry.IsSafe()) {
		c.entry.DependOn(entry)
	}
	if entry.IsInlinable() {
		c.inline(entry.Code())
	} else {
		c.generate(bytecode.Instruction{Op: bytecode.CALL, Entry: entry})
	}
	c.adapt(typesystem.SortOf(entry.Type()), SortOf(g))
}

func (c *Compiler) compileApplication(n *ast.Application) error {
	if g, ok := n.Function.(*ast.Global); ok {
		switch entry := g.Entry.(type) {
		case *symbols.BuiltinEntry:
			if len(n.Args) < typesystem.Arity(entry.Type()) {
				return c.compileEta(g, n.Args)
			}
			return c.compileBuiltin(n, entry)
		case *symbols.ProjectionEntry:
			return c.compileProjection(n, entry)
		}
	}

	sorts := make([]typesystem.Sort, len(n.Args))
	for i := len(n.Args) - 1; i >= 0; i-- {
		sorts[i] = SortOf(n.Args[i])
		if err := c.compileExpression(n.Args[i]); err != nil {
			return err
		}
	}
	if err := c.compileAs(n.Function, typesystem.ObjectSort); err != nil {
		return err
	}
	c.generate(bytecode.Instruction{
		Op:   bytecode.APPLY,
		Call: &bytecode.CallInfo{ArgSorts: sorts, ResultSort: SortOf(n)},
	})
	return nil
}

// compileEta compiles the builtin or projection g applied to the first
// arguments given as the closure of its remaining parameters. The given
// arguments move into the closure body.
func (c *Compiler) compileEta(g *ast.Global, given []ast.Expression) error {
	ft, ok := typesystem.AsFunc(g.CheckedType())
	if !ok {
		ast.Violation(g, "builtin %s has no function type", g.Name())
	}
	k := len(given)
	params := make([]*ast.Parameter, 0, len(ft.Params)-k)
	for i := k; i < len(ft.Params); i++ {
		p := ast.NewParameter(fmt.Sprintf("%sx%d", config.SyntheticPrefix, i))
		p.SetType(ft.Params[i])
		p.SetCheckedType(ft.Params[i])
		params = append(params, p)
	}

	var arity ast.Sorts
	args := make([]ast.Expression, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		l := ast.NewLocal(params[i])
		l.Offset = -1
		if s := paramSort(params[i]); s != typesystem.VoidSort {
			l.Offset = arity[s.Index()]
			arity[s.Index()]++
		}
		args[i] = l
	}
	for _, a := range given {
		ast.ShiftOffsets(a, arity, ast.Sorts{})
	}

	body := ast.NewApplication(g, append(append([]ast.Expression(nil), given...), args...)...)
	body.Token = g.Token
	body.SetCheckedType(ft.ReturnType)

	abs := ast.NewAbstraction(params, body)
	abs.Exitable = false
	abs.Token = g.Token
	abs.SetSortedArities()
	abs.FrameSize = ast.CapturedSpan(body, abs.Arity)
	abs.SetCheckedType(typesystem.NewFunc(ft.ReturnType, ft.Params[k:]...))
	return c.compileAbstraction(abs)
}

// compileBuiltin pushes the arguments in the sorts the instruction takes,
// the first one last.
func (c *Compiler) compileBuiltin(n *ast.Application, entry *symbols.BuiltinEntry) error {
	if entry.IsDummy() {
		return c.compileDummy(n, entry.Instruction.Op)
	}
	decl := entry.Type()
	for i := len(n.Args) - 1; i >= 0; i-- {
		if err := c.compileAs(n.Args[i], typesystem.SortOf(typesystem.Domain(decl, i))); err != nil {
			return err
		}
	}
	c.generate(entry.Instruction)
	c.adapt(typesystem.SortOf(typesystem.Range(decl)), SortOf(n))
	return nil
}

// compileDummy expands a placeholder builtin according to its argument
// types.
func (c *Compiler) compileDummy(n *ast.Application, op bytecode.Opcode) error {
	args := n.Args
	result := typesystem.IntSort

	switch op {
	case bytecode.DUMMY_AND, bytecode.DUMMY_OR:
		if err := c.compileConnective(op == bytecode.DUMMY_AND, args[0], args[1]); err != nil {
			return err
		}

	case bytecode.DUMMY_SIZE:
		if err := c.compileAs(args[0], typesystem.ObjectSort); err != nil {
			return err
		}
		if isIntIndexed(args[0].CheckedType()) {
			c.generate(bytecode.Simple(bytecode.ARRAY_SIZE))
		} else {
			c.generate(bytecode.Simple(bytecode.MAP_SIZE))
		}

	case bytecode.DUMMY_EQU, bytecode.DUMMY_NEQ:
		s := typesystem.SortOf(args[0].CheckedType())
		if s == typesystem.VoidSort {
			for _, a := range args {
				if err := c.compileAs(a, typesystem.VoidSort); err != nil {
					return err
				}
			}
			if op == bytecode.DUMMY_EQU {
				c.generate(bytecode.Simple(bytecode.PUSH_TRUE))
			} else {
				c.generate(bytecode.Simple(bytecode.PUSH_FALSE))
			}
			break
		}
		if err := c.compileAs(args[1], s); err != nil {
			return err
		}
		if err := c.compileAs(args[0], s); err != nil {
			return err
		}
		if op == bytecode.DUMMY_EQU {
			c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.EQU_II, bytecode.EQU_RR, bytecode.EQU_OO, bytecode.NOP)))
		} else {
			c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.NEQ_II, bytecode.NEQ_RR, bytecode.NEQ_OO, bytecode.NOP)))
		}

	case bytecode.DUMMY_STRCON:
		if err := c.compileAs(args[1], typesystem.ObjectSort); err != nil {
			return err
		}
		if err := c.compileAs(args[0], typesystem.ObjectSort); err != nil {
			return err
		}
		c.generate(bytecode.Instruction{
			Op:      bytecode.STRCON,
			Display: []bytecode.Display{displayOf(args[0]), displayOf(args[1])},
		})
		result = typesystem.ObjectSort

	case bytecode.DUMMY_WRITE:
		s := SortOf(args[0])
		if err := c.compileExpression(args[0]); err != nil {
			return err
		}
		if s != typesystem.VoidSort {
			c.generate(bytecode.Instruction{
				Op:      bytecode.BySort(s, bytecode.WRITE_I, bytecode.WRITE_R, bytecode.WRITE_O, bytecode.NOP),
				Display: []bytecode.Display{displayOf(args[0])},
			})
		}
		result = typesystem.VoidSort

	case bytecode.DUMMY_SET_ADD, bytecode.DUMMY_SET_RMV, bytecode.DUMMY_BELONGS:
		if err := c.compileAs(args[1], typesystem.ObjectSort); err != nil {
			return err
		}
		s := SortOf(args[0])
		if err := c.compileExpression(args[0]); err != nil {
			return err
		}
		switch op {
		case bytecode.DUMMY_SET_ADD:
			c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.SET_ADD_I, bytecode.SET_ADD_R, bytecode.SET_ADD_O, bytecode.NOP)))
			result = typesystem.ObjectSort
		case bytecode.DUMMY_SET_RMV:
			c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.SET_RMV_I, bytecode.SET_RMV_R, bytecode.SET_RMV_O, bytecode.NOP)))
			result = typesystem.ObjectSort
		default:
			c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.BELONGS_I, bytecode.BELONGS_R, bytecode.BELONGS_O, bytecode.NOP)))
		}

	case bytecode.DUMMY_FIRST, bytecode.DUMMY_LAST:
		if err := c.compileAs(args[0], typesystem.ObjectSort); err != nil {
			return err
		}
		result = SortOf(n)
		if op == bytecode.DUMMY_FIRST {
			c.generate(bytecode.Simple(bytecode.BySort(result, bytecode.FIRST_I, bytecode.FIRST_R, bytecode.FIRST_O, bytecode.NOP)))
		} else {
			c.generate(bytecode.Simple(bytecode.BySort(result, bytecode.LAST_I, bytecode.LAST_R, bytecode.LAST_O, bytecode.NOP)))
		}

	case bytecode.DUMMY_ORD, bytecode.DUMMY_NEXT, bytecode.DUMMY_PREV:
		s := SortOf(args[1])
		if err := c.compileExpression(args[1]); err != nil {
			return err
		}
		if err := c.compileAs(args[0], typesystem.ObjectSort); err != nil {
			return err
		}
		switch op {
		case bytecode.DUMMY_ORD:
			c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.ORD_I, bytecode.ORD_R, bytecode.ORD_O, bytecode.NOP)))
		case bytecode.DUMMY_NEXT:
			c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.NEXT_I, bytecode.NEXT_R, bytecode.NEXT_O, bytecode.NOP)))
			result = s
		default:
			c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.PREV_I, bytecode.PREV_R, bytecode.PREV_O, bytecode.NOP)))
			result = s
		}

	default:
		ast.Violation(n, "unknown builtin placeholder %s", op)
	}

	c.adapt(result, SortOf(n))
	return nil
}

// displayOf tells how the value of e prints.
func displayOf(e ast.Expression) bytecode.Display {
	t := e.CheckedType()
	if t == nil {
		t = e.Type()
	}
	switch typesystem.Deref(t) {
	case typesystem.Char:
		return bytecode.DisplayChar
	case typesystem.Bool:
		return bytecode.DisplayBool
	}
	return bytecode.DisplayValue
}

// isIntIndexed reports whether an array type is indexed by int, as opposed
// to an int range or a set.
func isIntIndexed(t typesystem.Type) bool {
	a, ok := typesystem.Deref(t).(*typesystem.TArray)
	return ok && typesystem.Deref(a.Index) == typesystem.Int
}

func (c *Compiler) compileProjection(n *ast.Application, entry *symbols.ProjectionEntry) error {
	if err := c.compileAs(n.Args[0], typesystem.ObjectSort); err != nil {
		return err
	}
	c.generateGetTuple(entry.Position, SortOf(n))
	return nil
}

func (c *Compiler) generateGetTuple(position int, s typesystem.Sort) {
	op := bytecode.BySort(s, bytecode.GET_TUPLE_I, bytecode.GET_TUPLE_R, bytecode.GET_TUPLE_O, bytecode.GET_TUPLE_O)
	c.generate(bytecode.Instruction{Op: op, Int: int64(position)})
	if s == typesystem.VoidSort {
		c.generateStackPop(typesystem.ObjectSort)
	}
}

// compileTuple pushes the components, the first one last.
func (c *Compiler) compileTuple(elems []ast.Expression) error {
	sorts := make([]typesystem.Sort, len(elems))
	for i := len(elems) - 1; i >= 0; i-- {
		sorts[i] = SortOf(elems[i])
		if err := c.compileExpression(elems[i]); err != nil {
			return err
		}
	}
	c.generate(bytecode.Instruction{Op: bytecode.PUSH_TUPLE, Sorts: sorts})
	return nil
}

func (c *Compiler) compileTupleProjection(n *ast.TupleProjection) error {
	if _, ok := n.Tuple.(*ast.DummyLocal); ok {
		ast.Violation(n, "projection of a slicing compiled as a value")
	}
	if err := c.compileAs(n.Tuple, typesystem.ObjectSort); err != nil {
		return err
	}
	c.generateGetTuple(n.Position, SortOf(n))
	return nil
}

// elemSort is the sort the elements of a collection or array of type t
// are handled in.
func elemSort(t typesystem.Type) typesystem.Sort {
	e := typesystem.ElemType(t)
	if e == nil {
		return typesystem.IntSort
	}
	return typesystem.BoxSortOf(e)
}

func (c *Compiler) compileNewCollection(n *ast.NewCollection) error {
	if len(n.Elems) == 0 {
		switch n.Kind {
		case typesystem.ListKind:
			c.generate(bytecode.Simple(bytecode.PUSH_LIST))
		case typesystem.BagKind:
			c.generate(bytecode.Simple(bytecode.PUSH_BAG))
		default:
			c.generate(bytecode.Simple(bytecode.PUSH_SET))
		}
		return nil
	}
	s := elemSort(n.CheckedType())
	for i := len(n.Elems) - 1; i >= 0; i-- {
		if err := c.compileAs(n.Elems[i], s); err != nil {
			return err
		}
	}
	c.generate(bytecode.Instruction{Op: bytecode.PUSH_VALUE_I, Int: int64(len(n.Elems))})
	switch n.Kind {
	case typesystem.ListKind:
		c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.MAKE_LIST_I, bytecode.MAKE_LIST_R, bytecode.MAKE_LIST_O, bytecode.NOP)))
	case typesystem.BagKind:
		c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.MAKE_BAG_I, bytecode.MAKE_BAG_R, bytecode.MAKE_BAG_O, bytecode.NOP)))
	default:
		c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.MAKE_SET_I, bytecode.MAKE_SET_R, bytecode.MAKE_SET_O, bytecode.NOP)))
	}
	return nil
}

// compileDimension pushes an array dimension: an int size, or an index
// set as an object.
func (c *Compiler) compileDimension(d ast.Expression) (intSized bool, err error) {
	if typesystem.Deref(d.CheckedType()) == typesystem.Int {
		return true, c.compileAs(d, typesystem.IntSort)
	}
	return false, c.compileAs(d, typesystem.ObjectSort)
}

// compileNewArray builds the innermost dimension filled with default
// values, then replicates it along each outer dimension.
func (c *Compiler) compileNewArray(n *ast.NewArray) error {
	last := len(n.Dims) - 1
	var inner typesystem.Type = n.CheckedType()
	for i := 0; i < last; i++ {
		inner = typesystem.ElemType(inner)
	}
	s := elemSort(inner)

	intSized, err := c.compileDimension(n.Dims[last])
	if err != nil {
		return err
	}
	if intSized {
		c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.PUSH_ARRAY_I, bytecode.PUSH_ARRAY_R, bytecode.PUSH_ARRAY_O, bytecode.NOP)))
	} else {
		c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.PUSH_MAP_I, bytecode.PUSH_MAP_R, bytecode.PUSH_MAP_O, bytecode.NOP)))
	}
	for i := last - 1; i >= 0; i-- {
		intSized, err := c.compileDimension(n.Dims[i])
		if err != nil {
			return err
		}
		if intSized {
			c.generate(bytecode.Simple(bytecode.FILL_ARRAY))
		} else {
			c.generate(bytecode.Simple(bytecode.FILL_MAP))
		}
	}
	return nil
}

func (c *Compiler) compileArrayExtension(n *ast.ArrayExtension) error {
	s := elemSort(n.CheckedType())
	for i := len(n.Elems) - 1; i >= 0; i-- {
		if err := c.compileAs(n.Elems[i], s); err != nil {
			return err
		}
	}
	c.generate(bytecode.Instruction{Op: bytecode.PUSH_VALUE_I, Int: int64(len(n.Elems))})
	if n.Indexable == nil {
		c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.MAKE_ARRAY_I, bytecode.MAKE_ARRAY_R, bytecode.MAKE_ARRAY_O, bytecode.NOP)))
		return nil
	}
	if err := c.compileAs(n.Indexable, typesystem.ObjectSort); err != nil {
		return err
	}
	c.generate(bytecode.Simple(bytecode.BySort(s, bytecode.MAKE_MAP_I, bytecode.MAKE_MAP_R, bytecode.MAKE_MAP_O, bytecode.NOP)))
	return nil
}

// slotAccess selects the GET or SET family for the index set of an array
// type and pushes the index in the sort that family takes.
func (c *Compiler) compileSlotIndex(slot *ast.ArraySlot) (get, set [3]bytecode.Opcode, err error) {
	a, _ := typesystem.Deref(slot.Array.CheckedType()).(*typesystem.TArray)
	if a == nil {
		ast.Violation(slot, "slot of a non-array")
	}
	switch typesystem.Deref(a.Index) {
	case typesystem.Int:
		get = [3]bytecode.Opcode{bytecode.GET_ARRAY_I, bytecode.GET_ARRAY_R, bytecode.GET_ARRAY_O}
		set = [3]bytecode.Opcode{bytecode.SET_ARRAY_I, bytecode.SET_ARRAY_R, bytecode.SET_ARRAY_O}
		err = c.compileAs(slot.Index, typesystem.IntSort)
	case typesystem.IntRange:
		get = [3]bytecode.Opcode{bytecode.GET_INT_INDEXED_MAP_I, bytecode.GET_INT_INDEXED_MAP_R, bytecode.GET_INT_INDEXED_MAP_O}
		set = [3]bytecode.Opcode{bytecode.SET_INT_INDEXED_MAP_I, bytecode.SET_INT_INDEXED_MAP_R, bytecode.SET_INT_INDEXED_MAP_O}
		err = c.compileAs(slot.Index, typesystem.IntSort)
	default:
		get = [3]bytecode.Opcode{bytecode.GET_MAP_I, bytecode.GET_MAP_R, bytecode.GET_MAP_O}
		set = [3]bytecode.Opcode{bytecode.SET_MAP_I, bytecode.SET_MAP_R, bytecode.SET_MAP_O}
		err = c.compileAs(slot.Index, typesystem.ObjectSort)
	}
	return get, set, err
}

func (c *Compiler) compileArraySlot(n *ast.ArraySlot) error {
	get, _, err := c.compileSlotIndex(n)
	if err != nil {
		return err
	}
	if err := c.compileAs(n.Array, typesystem.ObjectSort); err != nil {
		return err
	}
	c.generate(bytecode.Simple(bytecode.BySort(SortOf(n), get[0], get[1], get[2], bytecode.NOP)))
	return nil
}

// compileArraySlotUpdate stores into a slot. The stored value stays on the
// stack as the value of the update.
func (c *Compiler) compileArraySlotUpdate(n *ast.ArraySlotUpdate) error {
	_, set, err := c.compileSlotIndex(n.Slot)
	if err != nil {
		return err
	}
	if err := c.compileAs(n.Slot.Array, typesystem.ObjectSort); err != nil {
		return err
	}
	s := SortOf(n.Slot)
	if err := c.compileAs(n.Value, s); err != nil {
		return err
	}
	c.generate(bytecode.Simple(bytecode.BySort(s, set[0], set[1], set[2], bytecode.NOP)))
	c.adapt(s, SortOf(n))
	return nil
}
