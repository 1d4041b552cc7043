// Package bytecode defines the instruction set produced by the kernel
// compiler and executed by the reference machine.
package bytecode

// Opcode represents a single machine instruction
type Opcode byte

const (
	// Control
	NOP             Opcode = iota
	END                    // End of straight-line code
	JUMP                   // Unconditional jump to Int
	JUMP_ON_FALSE          // Pop int, jump to Int if zero
	JUMP_ON_TRUE           // Pop int, jump to Int if non-zero
	RETURN_I               // Return from scope body, result on int stack
	RETURN_R               // ... on real stack
	RETURN_O               // ... on object stack
	RETURN_V               // Return with no result
	NL_RETURN_I            // Non-local return to the innermost exitable closure
	NL_RETURN_R            //
	NL_RETURN_O            //
	NL_RETURN_V            //
	ENTER                  // Enter a non-escaping scope (Scope)
	PUSH_CLOSURE           // Push a closure over Scope capturing Scope.Frame
	PUSH_SCOPE             // Push a scope run over the live environment (homomorphism components)
	APPLY                  // Apply the closure on top of the object stack (Call)
	CALL                   // Run a defined entry (Entry)
	SET_GLOBAL_I           // Store top of int stack into Entry
	SET_GLOBAL_R           //
	SET_GLOBAL_O           //

	// Constants
	PUSH_TRUE        // int 1
	PUSH_FALSE       // int 0
	PUSH_BOXED_TRUE  // boxed 1
	PUSH_BOXED_FALSE // boxed 0
	PUSH_VALUE_I     // Int
	PUSH_VALUE_R     // Real
	PUSH_VALUE_O     // Str
	PUSH_0_I         // null int
	PUSH_0_R         // null real
	PUSH_ZERO_I      // boxed null int
	PUSH_ZERO_R      // boxed null real
	PUSH_EMPTY_STR   // ""
	PUSH_NULL        // null object

	// Stack and locals
	POP_I
	POP_R
	POP_O
	PUSH_OFFSET_I // Push local at offset Int
	PUSH_OFFSET_R
	PUSH_OFFSET_O
	SET_OFFSET_I // Store top into local at offset Int, value stays
	SET_OFFSET_R
	SET_OFFSET_O

	// Boxing
	I_TO_O // box int
	R_TO_O // box real
	O_TO_I // unbox int
	O_TO_R // unbox real

	// Arithmetic and comparison
	ADD_II
	SUB_II
	MUL_II
	DIV_II
	MOD_II
	MINUS_I
	MAX_II
	MIN_II
	ADD_RR
	SUB_RR
	MUL_RR
	DIV_RR
	MINUS_R
	MAX_RR
	MIN_RR
	LT_II
	LTE_II
	GT_II
	GTE_II
	LT_RR
	LTE_RR
	GT_RR
	GTE_RR
	EQU_II
	NEQ_II
	EQU_RR
	NEQ_RR
	EQU_OO
	NEQ_OO
	NOT
	I_TO_R
	STRCON // string concatenation
	WRITE_I
	WRITE_R
	WRITE_O

	// Collections
	PUSH_SET // empty collections
	PUSH_LIST
	PUSH_BAG
	MAKE_SET_I // Pop count n then n elements
	MAKE_SET_R
	MAKE_SET_O
	MAKE_LIST_I
	MAKE_LIST_R
	MAKE_LIST_O
	MAKE_BAG_I
	MAKE_BAG_R
	MAKE_BAG_O
	SET_ADD_I // Add element to collection, push collection
	SET_ADD_R
	SET_ADD_O
	SET_RMV_I
	SET_RMV_R
	SET_RMV_O
	BELONGS_I
	BELONGS_R
	BELONGS_O
	FIRST_I
	FIRST_R
	FIRST_O
	LAST_I
	LAST_R
	LAST_O
	ORD_I // 1-based position of element
	ORD_R
	ORD_O
	NEXT_I
	NEXT_R
	NEXT_O
	PREV_I
	PREV_R
	PREV_O
	SIZE // collection size
	RANGE

	// Tuples
	PUSH_TUPLE  // Sorts holds the component sorts in order
	GET_TUPLE_I // Int is the 1-based component position
	GET_TUPLE_R
	GET_TUPLE_O

	// Arrays and maps
	PUSH_ARRAY_I // Pop size, push zero array
	PUSH_ARRAY_R
	PUSH_ARRAY_O
	PUSH_MAP_I // Pop index set, push zero map
	PUSH_MAP_R
	PUSH_MAP_O
	FILL_ARRAY // Pop size and prototype, push array of copies
	FILL_MAP   // Pop index set and prototype
	GET_ARRAY_I
	GET_ARRAY_R
	GET_ARRAY_O
	GET_MAP_I
	GET_MAP_R
	GET_MAP_O
	GET_INT_INDEXED_MAP_I
	GET_INT_INDEXED_MAP_R
	GET_INT_INDEXED_MAP_O
	SET_ARRAY_I
	SET_ARRAY_R
	SET_ARRAY_O
	SET_MAP_I
	SET_MAP_R
	SET_MAP_O
	SET_INT_INDEXED_MAP_I
	SET_INT_INDEXED_MAP_R
	SET_INT_INDEXED_MAP_O
	MAKE_ARRAY_I // Pop size then elements
	MAKE_ARRAY_R
	MAKE_ARRAY_O
	MAKE_MAP_I // Pop index set then elements
	MAKE_MAP_R
	MAKE_MAP_O
	ARRAY_SIZE
	MAP_SIZE

	// Homomorphisms. The suffix is the element sort of the collection.
	APPLY_HOM_I
	APPLY_HOM_R
	APPLY_HOM_O
	APPLY_IP_HOM_I
	APPLY_IP_HOM_R
	APPLY_IP_HOM_O
	APPLY_COLL_HOM_I // Hom.Tally is the image element sort
	APPLY_COLL_HOM_R
	APPLY_COLL_HOM_O
	APPLY_SLICED_HOM_O
	APPLY_SLICED_IP_HOM_O
	APPLY_SLICED_COLL_HOM_O
	APPLY_FHOM_I
	APPLY_FHOM_R
	APPLY_FHOM_O
	APPLY_IP_FHOM_I
	APPLY_IP_FHOM_R
	APPLY_IP_FHOM_O
	APPLY_COLL_FHOM_I
	APPLY_COLL_FHOM_R
	APPLY_COLL_FHOM_O
	APPLY_SLICED_FHOM_O
	APPLY_SLICED_IP_FHOM_O
	APPLY_SLICED_COLL_FHOM_O

	// Placeholders carried by builtin entries whose code depends on the
	// argument types. They never reach compiled code.
	DUMMY_AND
	DUMMY_OR
	DUMMY_SIZE
	DUMMY_EQU
	DUMMY_NEQ
	DUMMY_STRCON
	DUMMY_WRITE
	DUMMY_SET_ADD
	DUMMY_SET_RMV
	DUMMY_BELONGS
	DUMMY_FIRST
	DUMMY_LAST
	DUMMY_ORD
	DUMMY_NEXT
	DUMMY_PREV

	numOpcodes
)

// OpcodeNames maps opcodes to their string names (for disassembly)
var OpcodeNames = map[Opcode]string{
	NOP:           "NOP",
	END:           "END",
	JUMP:          "JUMP",
	JUMP_ON_FALSE: "JUMP_ON_FALSE",
	JUMP_ON_TRUE:  "JUMP_ON_TRUE",
	RETURN_I:      "RETURN_I",
	RETURN_R:      "RETURN_R",
	RETURN_O:      "RETURN_O",
	RETURN_V:      "RETURN_V",
	NL_RETURN_I:   "NL_RETURN_I",
	NL_RETURN_R:   "NL_RETURN_R",
	NL_RETURN_O:   "NL_RETURN_O",
	NL_RETURN_V:   "NL_RETURN_V",
	ENTER:         "ENTER",
	PUSH_CLOSURE:  "PUSH_CLOSURE",
	PUSH_SCOPE:    "PUSH_SCOPE",
	APPLY:         "APPLY",
	CALL:          "CALL",
	SET_GLOBAL_I:  "SET_GLOBAL_I",
	SET_GLOBAL_R:  "SET_GLOBAL_R",
	SET_GLOBAL_O:  "SET_GLOBAL_O",

	PUSH_TRUE:        "PUSH_TRUE",
	PUSH_FALSE:       "PUSH_FALSE",
	PUSH_BOXED_TRUE:  "PUSH_BOXED_TRUE",
	PUSH_BOXED_FALSE: "PUSH_BOXED_FALSE",
	PUSH_VALUE_I:     "PUSH_VALUE_I",
	PUSH_VALUE_R:     "PUSH_VALUE_R",
	PUSH_VALUE_O:     "PUSH_VALUE_O",
	PUSH_0_I:         "PUSH_0_I",
	PUSH_0_R:         "PUSH_0_R",
	PUSH_ZERO_I:      "PUSH_ZERO_I",
	PUSH_ZERO_R:      "PUSH_ZERO_R",
	PUSH_EMPTY_STR:   "PUSH_EMPTY_STR",
	PUSH_NULL:        "PUSH_NULL",

	POP_I:         "POP_I",
	POP_R:         "POP_R",
	POP_O:         "POP_O",
	PUSH_OFFSET_I: "PUSH_OFFSET_I",
	PUSH_OFFSET_R: "PUSH_OFFSET_R",
	PUSH_OFFSET_O: "PUSH_OFFSET_O",
	SET_OFFSET_I:  "SET_OFFSET_I",
	SET_OFFSET_R:  "SET_OFFSET_R",
	SET_OFFSET_O:  "SET_OFFSET_O",

	I_TO_O: "I_TO_O",
	R_TO_O: "R_TO_O",
	O_TO_I: "O_TO_I",
	O_TO_R: "O_TO_R",

	ADD_II:   "ADD_II",
	SUB_II:   "SUB_II",
	MUL_II:   "MUL_II",
	DIV_II:   "DIV_II",
	MOD_II:   "MOD_II",
	MINUS_I:  "MINUS_I",
	MAX_II:   "MAX_II",
	MIN_II:   "MIN_II",
	ADD_RR:   "ADD_RR",
	SUB_RR:   "SUB_RR",
	MUL_RR:   "MUL_RR",
	DIV_RR:   "DIV_RR",
	MINUS_R:  "MINUS_R",
	MAX_RR:   "MAX_RR",
	MIN_RR:   "MIN_RR",
	LT_II:    "LT_II",
	LTE_II:   "LTE_II",
	GT_II:    "GT_II",
	GTE_II:   "GTE_II",
	LT_RR:    "LT_RR",
	LTE_RR:   "LTE_RR",
	GT_RR:    "GT_RR",
	GTE_RR:   "GTE_RR",
	EQU_II:   "EQU_II",
	NEQ_II:   "NEQ_II",
	EQU_RR:   "EQU_RR",
	NEQ_RR:   "NEQ_RR",
	EQU_OO:   "EQU_OO",
	NEQ_OO:   "NEQ_OO",
	NOT:      "NOT",
	I_TO_R:   "I_TO_R",
	STRCON:   "STRCON",
	WRITE_I:  "WRITE_I",
	WRITE_R:  "WRITE_R",
	WRITE_O:  "WRITE_O",

	PUSH_SET:    "PUSH_SET",
	PUSH_LIST:   "PUSH_LIST",
	PUSH_BAG:    "PUSH_BAG",
	MAKE_SET_I:  "MAKE_SET_I",
	MAKE_SET_R:  "MAKE_SET_R",
	MAKE_SET_O:  "MAKE_SET_O",
	MAKE_LIST_I: "MAKE_LIST_I",
	MAKE_LIST_R: "MAKE_LIST_R",
	MAKE_LIST_O: "MAKE_LIST_O",
	MAKE_BAG_I:  "MAKE_BAG_I",
	MAKE_BAG_R:  "MAKE_BAG_R",
	MAKE_BAG_O:  "MAKE_BAG_O",
	SET_ADD_I:   "SET_ADD_I",
	SET_ADD_R:   "SET_ADD_R",
	SET_ADD_O:   "SET_ADD_O",
	SET_RMV_I:   "SET_RMV_I",
	SET_RMV_R:   "SET_RMV_R",
	SET_RMV_O:   "SET_RMV_O",
	BELONGS_I:   "BELONGS_I",
	BELONGS_R:   "BELONGS_R",
	BELONGS_O:   "BELONGS_O",
	FIRST_I:     "FIRST_I",
	FIRST_R:     "FIRST_R",
	FIRST_O:     "FIRST_O",
	LAST_I:      "LAST_I",
	LAST_R:      "LAST_R",
	LAST_O:      "LAST_O",
	ORD_I:       "ORD_I",
	ORD_R:       "ORD_R",
	ORD_O:       "ORD_O",
	NEXT_I:      "NEXT_I",
	NEXT_R:      "NEXT_R",
	NEXT_O:      "NEXT_O",
	PREV_I:      "PREV_I",
	PREV_R:      "PREV_R",
	PREV_O:      "PREV_O",
	SIZE:        "SIZE",
	RANGE:       "RANGE",

	PUSH_TUPLE:  "PUSH_TUPLE",
	GET_TUPLE_I: "GET_TUPLE_I",
	GET_TUPLE_R: "GET_TUPLE_R",
	GET_TUPLE_O: "GET_TUPLE_O",

	PUSH_ARRAY_I:          "PUSH_ARRAY_I",
	PUSH_ARRAY_R:          "PUSH_ARRAY_R",
	PUSH_ARRAY_O:          "PUSH_ARRAY_O",
	PUSH_MAP_I:            "PUSH_MAP_I",
	PUSH_MAP_R:            "PUSH_MAP_R",
	PUSH_MAP_O:            "PUSH_MAP_O",
	FILL_ARRAY:            "FILL_ARRAY",
	FILL_MAP:              "FILL_MAP",
	GET_ARRAY_I:           "GET_ARRAY_I",
	GET_ARRAY_R:           "GET_ARRAY_R",
	GET_ARRAY_O:           "GET_ARRAY_O",
	GET_MAP_I:             "GET_MAP_I",
	GET_MAP_R:             "GET_MAP_R",
	GET_MAP_O:             "GET_MAP_O",
	GET_INT_INDEXED_MAP_I: "GET_INT_INDEXED_MAP_I",
	GET_INT_INDEXED_MAP_R: "GET_INT_INDEXED_MAP_R",
	GET_INT_INDEXED_MAP_O: "GET_INT_INDEXED_MAP_O",
	SET_ARRAY_I:           "SET_ARRAY_I",
	SET_ARRAY_R:           "SET_ARRAY_R",
	SET_ARRAY_O:           "SET_ARRAY_O",
	SET_MAP_I:             "SET_MAP_I",
	SET_MAP_R:             "SET_MAP_R",
	SET_MAP_O:             "SET_MAP_O",
	SET_INT_INDEXED_MAP_I: "SET_INT_INDEXED_MAP_I",
	SET_INT_INDEXED_MAP_R: "SET_INT_INDEXED_MAP_R",
	SET_INT_INDEXED_MAP_O: "SET_INT_INDEXED_MAP_O",
	MAKE_ARRAY_I:          "MAKE_ARRAY_I",
	MAKE_ARRAY_R:          "MAKE_ARRAY_R",
	MAKE_ARRAY_O:          "MAKE_ARRAY_O",
	MAKE_MAP_I:            "MAKE_MAP_I",
	MAKE_MAP_R:            "MAKE_MAP_R",
	MAKE_MAP_O:            "MAKE_MAP_O",
	ARRAY_SIZE:            "ARRAY_SIZE",
	MAP_SIZE:              "MAP_SIZE",

	APPLY_HOM_I:              "APPLY_HOM_I",
	APPLY_HOM_R:              "APPLY_HOM_R",
	APPLY_HOM_O:              "APPLY_HOM_O",
	APPLY_IP_HOM_I:           "APPLY_IP_HOM_I",
	APPLY_IP_HOM_R:           "APPLY_IP_HOM_R",
	APPLY_IP_HOM_O:           "APPLY_IP_HOM_O",
	APPLY_COLL_HOM_I:         "APPLY_COLL_HOM_I",
	APPLY_COLL_HOM_R:         "APPLY_COLL_HOM_R",
	APPLY_COLL_HOM_O:         "APPLY_COLL_HOM_O",
	APPLY_SLICED_HOM_O:       "APPLY_SLICED_HOM_O",
	APPLY_SLICED_IP_HOM_O:    "APPLY_SLICED_IP_HOM_O",
	APPLY_SLICED_COLL_HOM_O:  "APPLY_SLICED_COLL_HOM_O",
	APPLY_FHOM_I:             "APPLY_FHOM_I",
	APPLY_FHOM_R:             "APPLY_FHOM_R",
	APPLY_FHOM_O:             "APPLY_FHOM_O",
	APPLY_IP_FHOM_I:          "APPLY_IP_FHOM_I",
	APPLY_IP_FHOM_R:          "APPLY_IP_FHOM_R",
	APPLY_IP_FHOM_O:          "APPLY_IP_FHOM_O",
	APPLY_COLL_FHOM_I:        "APPLY_COLL_FHOM_I",
	APPLY_COLL_FHOM_R:        "APPLY_COLL_FHOM_R",
	APPLY_COLL_FHOM_O:        "APPLY_COLL_FHOM_O",
	APPLY_SLICED_FHOM_O:      "APPLY_SLICED_FHOM_O",
	APPLY_SLICED_IP_FHOM_O:   "APPLY_SLICED_IP_FHOM_O",
	APPLY_SLICED_COLL_FHOM_O: "APPLY_SLICED_COLL_FHOM_O",

	DUMMY_AND:     "DUMMY_AND",
	DUMMY_OR:      "DUMMY_OR",
	DUMMY_SIZE:    "DUMMY_SIZE",
	DUMMY_EQU:     "DUMMY_EQU",
	DUMMY_NEQ:     "DUMMY_NEQ",
	DUMMY_STRCON:  "DUMMY_STRCON",
	DUMMY_WRITE:   "DUMMY_WRITE",
	DUMMY_SET_ADD: "DUMMY_SET_ADD",
	DUMMY_SET_RMV: "DUMMY_SET_RMV",
	DUMMY_BELONGS: "DUMMY_BELONGS",
	DUMMY_FIRST:   "DUMMY_FIRST",
	DUMMY_LAST:    "DUMMY_LAST",
	DUMMY_ORD:     "DUMMY_ORD",
	DUMMY_NEXT:    "DUMMY_NEXT",
	DUMMY_PREV:    "DUMMY_PREV",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsDummy reports whether op is a builtin placeholder.
func (op Opcode) IsDummy() bool {
	return op >= DUMMY_AND && op <= DUMMY_PREV
}

// Lookup returns the opcode with the given name.
func Lookup(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(OpcodeNames))
	for op, name := range OpcodeNames {
		m[name] = op
	}
	return m
}()
