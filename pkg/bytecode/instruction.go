package bytecode

import "github.com/kristofer/weave/pkg/value"

// Instruction is a single decoded bytecode instruction. Rather than one
// untyped Operand field (as the teacher's smog opcodes used, packing
// selector index and arg count into one word), each field here is
// named for the operand it holds under the relevant Opcode; unused
// fields are simply left zero. This costs a few bytes per instruction
// in exchange for a dispatch switch that never has to unpack a bitfield.
type Instruction struct {
	Op Opcode

	// Immediate operands for constructor/constant opcodes.
	Bool    bool
	Int     int64
	Float   float64
	Char    rune
	Byte    byte
	Slot    int // string/bytes/object-key pool slot
	Hash    value.Hash

	// Operand-stack / frame offsets.
	Offset int // ADD_ASSIGN et al.: offset from stack_bottom
	N      int // POPN/CLEAN/VEC/TUPLE/STRING_CONCAT length-ish operand
	Index  int // TUPLE_INDEX_GET(i) / TUPLE_INDEX_GET_AT(off,i)

	// Control flow.
	Target int  // absolute jump target (ip)
	Branch int64 // JUMP_IF_BRANCH's expected branch id

	// StringConcat.
	SizeHint int

	// MatchSequence / MatchObject.
	Check TypeCheck
	Exact bool

	// Call-family.
	ArgCount int

	// Tagged-record constructors (TypedObject/VariantObject) and
	// TupleVariant matches.
	EnumHash value.Hash

	// Panic.
	Reason string
}

// TypeCheckKind distinguishes the shapes a MatchSequence/MatchObject
// instruction can check against, per spec.md §4.5.3.
type TypeCheckKind int

const (
	CheckTuple TypeCheckKind = iota
	CheckVec
	CheckResult
	CheckOption
	CheckGeneratorState
	CheckType
	CheckVariant
	CheckUnit
)

// TypeCheck is the decoded predicate a MatchSequence/MatchObject
// instruction tests the top-of-stack value against.
type TypeCheck struct {
	Kind TypeCheckKind

	// For CheckResult/CheckOption/CheckGeneratorState: which arm,
	// 0 or 1, per spec.md §4.5.3 (Ok/Err, Some/None, Complete/Yielded).
	Arm int

	// For CheckType/CheckVariant: the hash the tagged value must carry.
	Hash value.Hash
}
