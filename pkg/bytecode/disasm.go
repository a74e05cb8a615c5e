package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders u's instruction array as a human-readable
// listing, one instruction per line prefixed with its IP, in the
// teacher's disassembly style (Opcode.String() driving a switch over
// operand shape) extended to the full instruction set.
func (u *Unit) Disassemble() string {
	var b strings.Builder
	for ip, in := range u.Instructions {
		fmt.Fprintf(&b, "%4d  %s\n", ip, formatInstruction(u, in))
	}
	return b.String()
}

func formatInstruction(u *Unit, in Instruction) string {
	switch in.Op {
	case OpInteger:
		return fmt.Sprintf("%s %d", in.Op, in.Int)
	case OpFloat:
		return fmt.Sprintf("%s %v", in.Op, in.Float)
	case OpBool:
		return fmt.Sprintf("%s %t", in.Op, in.Bool)
	case OpChar:
		return fmt.Sprintf("%s %q", in.Op, in.Char)
	case OpByte:
		return fmt.Sprintf("%s %d", in.Op, in.Byte)
	case OpString, OpBytes:
		return fmt.Sprintf("%s slot=%d %s", in.Op, in.Slot, poolPreview(u, in))
	case OpObject, OpTypedObject, OpVariantObject:
		return fmt.Sprintf("%s slot=%d hash=%s enum=%s", in.Op, in.Slot, in.Hash, in.EnumHash)
	case OpType, OpIs, OpIsNot:
		return fmt.Sprintf("%s hash=%s", in.Op, in.Hash)
	case OpVec, OpTuple, OpPopN, OpClean:
		return fmt.Sprintf("%s n=%d", in.Op, in.N)
	case OpTupleIndexGet, OpTupleIndexSet:
		return fmt.Sprintf("%s index=%d", in.Op, in.Index)
	case OpTupleIndexGetAt:
		return fmt.Sprintf("%s offset=%d index=%d", in.Op, in.Offset, in.Index)
	case OpObjectSlotIndexGet:
		return fmt.Sprintf("%s slot=%d", in.Op, in.Slot)
	case OpObjectSlotIndexGetAt:
		return fmt.Sprintf("%s offset=%d slot=%d", in.Op, in.Offset, in.Slot)
	case OpAddAssign, OpSubAssign, OpMulAssign, OpDivAssign, OpRemAssign,
		OpBitAndAssign, OpBitOrAssign, OpBitXorAssign, OpShlAssign, OpShrAssign,
		OpReplace:
		return fmt.Sprintf("%s offset=%d", in.Op, in.Offset)
	case OpJump, OpJumpIf, OpJumpIfNot, OpPopAndJumpIfNot:
		return fmt.Sprintf("%s -> %d", in.Op, in.Target)
	case OpJumpIfBranch:
		return fmt.Sprintf("%s branch=%d -> %d", in.Op, in.Branch, in.Target)
	case OpStringConcat:
		return fmt.Sprintf("%s len=%d hint=%d", in.Op, in.N, in.SizeHint)
	case OpMatchSequence:
		return fmt.Sprintf("%s check=%s len=%d exact=%t", in.Op, formatCheck(in.Check), in.N, in.Exact)
	case OpMatchObject:
		return fmt.Sprintf("%s check=%s slot=%d exact=%t", in.Op, formatCheck(in.Check), in.Slot, in.Exact)
	case OpFn, OpLoadInstanceFn, OpCall, OpCallInstance:
		return fmt.Sprintf("%s hash=%s argc=%d", in.Op, in.Hash, in.ArgCount)
	case OpClosure:
		return fmt.Sprintf("%s hash=%s env=%d", in.Op, in.Hash, in.N)
	case OpCallFn:
		return fmt.Sprintf("%s argc=%d", in.Op, in.ArgCount)
	case OpSelect:
		return fmt.Sprintf("%s n=%d", in.Op, in.N)
	case OpPanic:
		return fmt.Sprintf("%s %q", in.Op, in.Reason)
	default:
		return in.Op.String()
	}
}

func poolPreview(u *Unit, in Instruction) string {
	if in.Op == OpString {
		if s, err := u.LookupString(in.Slot); err == nil {
			return fmt.Sprintf("(%q)", s)
		}
	}
	if in.Op == OpBytes {
		if b, err := u.LookupBytes(in.Slot); err == nil {
			return fmt.Sprintf("(%d bytes)", len(b))
		}
	}
	return ""
}

func formatCheck(c TypeCheck) string {
	switch c.Kind {
	case CheckType:
		return fmt.Sprintf("Type(%s)", c.Hash)
	case CheckVariant:
		return fmt.Sprintf("Variant(%s)", c.Hash)
	case CheckResult, CheckOption, CheckGeneratorState:
		return fmt.Sprintf("%s(%d)", checkKindName(c.Kind), c.Arm)
	default:
		return checkKindName(c.Kind)
	}
}

func checkKindName(k TypeCheckKind) string {
	switch k {
	case CheckTuple:
		return "Tuple"
	case CheckVec:
		return "Vec"
	case CheckResult:
		return "Result"
	case CheckOption:
		return "Option"
	case CheckGeneratorState:
		return "GeneratorState"
	case CheckType:
		return "Type"
	case CheckVariant:
		return "Variant"
	case CheckUnit:
		return "Unit"
	default:
		return "Unknown"
	}
}
