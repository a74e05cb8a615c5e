package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/value"
)

// instruction parses one "MNEMONIC arg1 arg2 ..." line and appends the
// decoded bytecode.Instruction (or registers a jump fixup, for the
// control-flow opcodes that take a label instead of a raw offset).
func (a *Assembler) instruction(line string, lineNo int) error {
	fields := strings.Fields(line)
	mnemonic := strings.ToUpper(fields[0])
	args := fields[1:]

	errf := func(format string, a2 ...any) error {
		return fmt.Errorf("asm: line %d: "+format, append([]any{lineNo}, a2...)...)
	}

	need := func(n int) error {
		if len(args) != n {
			return errf("%s expects %d operand(s), got %d", mnemonic, n, len(args))
		}
		return nil
	}
	atoi := func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, errf("bad integer operand %q: %v", s, err)
		}
		return n, nil
	}
	atoi64 := func(s string) (int64, error) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, errf("bad integer operand %q: %v", s, err)
		}
		return n, nil
	}
	atof := func(s string) (float64, error) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errf("bad float operand %q: %v", s, err)
		}
		return f, nil
	}
	atohash := func(s string) (value.Hash, error) {
		// Either a bare path, hashed with HashString, or "#<digits>"
		// for a raw numeric hash constant.
		if strings.HasPrefix(s, "#") {
			n, err := strconv.ParseUint(s[1:], 10, 64)
			if err != nil {
				return 0, errf("bad hash literal %q: %v", s, err)
			}
			return value.Hash(n), nil
		}
		return value.HashString(s), nil
	}

	// Zero-operand opcodes.
	if op, ok := zeroArgOpcodes[mnemonic]; ok {
		if err := need(0); err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: op})
		return nil
	}

	// Single-offset opcodes shared by every *_ASSIGN family member plus
	// COPY/REPLACE (all index relative to the current frame's
	// stack_bottom, per spec.md §4.5.1).
	if op, ok := offsetOpcodes[mnemonic]; ok {
		if err := need(1); err != nil {
			return err
		}
		off, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: op, Offset: off})
		return nil
	}

	switch mnemonic {
	case "JUMP":
		if err := need(1); err != nil {
			return err
		}
		a.jumpTo(bytecode.Instruction{Op: bytecode.OpJump}, args[0])

	case "JUMP_IF":
		if err := need(1); err != nil {
			return err
		}
		a.jumpTo(bytecode.Instruction{Op: bytecode.OpJumpIf}, args[0])

	case "JUMP_IF_NOT":
		if err := need(1); err != nil {
			return err
		}
		a.jumpTo(bytecode.Instruction{Op: bytecode.OpJumpIfNot}, args[0])

	case "POP_AND_JUMP_IF_NOT":
		if err := need(1); err != nil {
			return err
		}
		a.jumpTo(bytecode.Instruction{Op: bytecode.OpPopAndJumpIfNot}, args[0])

	case "JUMP_IF_BRANCH":
		if err := need(2); err != nil {
			return err
		}
		b, err := atoi64(args[0])
		if err != nil {
			return err
		}
		a.jumpTo(bytecode.Instruction{Op: bytecode.OpJumpIfBranch, Branch: b}, args[1])

	case "BOOL":
		if err := need(1); err != nil {
			return err
		}
		b, err := strconv.ParseBool(args[0])
		if err != nil {
			return errf("bad bool operand %q: %v", args[0], err)
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpBool, Bool: b})

	case "INTEGER":
		if err := need(1); err != nil {
			return err
		}
		n, err := atoi64(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpInteger, Int: n})

	case "FLOAT":
		if err := need(1); err != nil {
			return err
		}
		f, err := atof(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpFloat, Float: f})

	case "CHAR":
		if err := need(1); err != nil {
			return err
		}
		r := []rune(args[0])
		if len(r) != 1 {
			return errf("CHAR expects a single rune, got %q", args[0])
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpChar, Char: r[0]})

	case "BYTE":
		if err := need(1); err != nil {
			return err
		}
		n, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpByte, Byte: byte(n)})

	case "STRING":
		if err := need(1); err != nil {
			return err
		}
		slot, err := a.resolveStringSlot(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpString, Slot: slot})

	case "BYTES":
		if err := need(1); err != nil {
			return err
		}
		slot, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpBytes, Slot: slot})

	case "TYPE":
		if err := need(1); err != nil {
			return err
		}
		h, err := atohash(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpType, Hash: h})

	case "POPN":
		if err := need(1); err != nil {
			return err
		}
		n, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpPopN, N: n})

	case "CLEAN":
		if err := need(1); err != nil {
			return err
		}
		n, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpClean, N: n})

	case "VEC":
		if err := need(1); err != nil {
			return err
		}
		n, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpVec, N: n})

	case "TUPLE":
		if err := need(1); err != nil {
			return err
		}
		n, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpTuple, N: n})

	case "OBJECT":
		if err := need(1); err != nil {
			return err
		}
		slot, err := a.resolveKeysSlot(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpObject, Slot: slot})

	case "TYPED_OBJECT":
		if err := need(2); err != nil {
			return err
		}
		h, err := atohash(args[0])
		if err != nil {
			return err
		}
		slot, err := a.resolveKeysSlot(args[1])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpTypedObject, Hash: h, Slot: slot})

	case "VARIANT_OBJECT":
		if err := need(3); err != nil {
			return err
		}
		enumHash, err := atohash(args[0])
		if err != nil {
			return err
		}
		h, err := atohash(args[1])
		if err != nil {
			return err
		}
		slot, err := a.resolveKeysSlot(args[2])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpVariantObject, EnumHash: enumHash, Hash: h, Slot: slot})

	case "TUPLE_INDEX_GET":
		if err := need(1); err != nil {
			return err
		}
		i, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpTupleIndexGet, Index: i})

	case "TUPLE_INDEX_SET":
		if err := need(1); err != nil {
			return err
		}
		i, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpTupleIndexSet, Index: i})

	case "TUPLE_INDEX_GET_AT":
		if err := need(2); err != nil {
			return err
		}
		off, err := atoi(args[0])
		if err != nil {
			return err
		}
		i, err := atoi(args[1])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpTupleIndexGetAt, Offset: off, Index: i})

	case "OBJECT_SLOT_INDEX_GET":
		if err := need(1); err != nil {
			return err
		}
		slot, err := a.resolveStringSlot(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpObjectSlotIndexGet, Slot: slot})

	case "OBJECT_SLOT_INDEX_GET_AT":
		if err := need(2); err != nil {
			return err
		}
		off, err := atoi(args[0])
		if err != nil {
			return err
		}
		slot, err := a.resolveStringSlot(args[1])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpObjectSlotIndexGetAt, Offset: off, Slot: slot})

	case "STRING_CONCAT":
		if err := need(2); err != nil {
			return err
		}
		n, err := atoi(args[0])
		if err != nil {
			return err
		}
		hint, err := atoi(args[1])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpStringConcat, N: n, SizeHint: hint})

	case "MATCH_SEQUENCE":
		if len(args) < 2 {
			return errf("MATCH_SEQUENCE expects at least 2 operands")
		}
		check, err := parseTypeCheck(args[0], args[1:])
		if err != nil {
			return errf("%v", err)
		}
		n, err := atoi(args[1])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpMatchSequence, Check: check, N: n})

	case "MATCH_OBJECT":
		if len(args) < 2 {
			return errf("MATCH_OBJECT expects at least 2 operands")
		}
		slot, err := a.resolveKeysSlot(args[0])
		if err != nil {
			return err
		}
		exact, err := strconv.ParseBool(args[1])
		if err != nil {
			return errf("bad exact flag %q: %v", args[1], err)
		}
		var check bytecode.TypeCheck
		if len(args) >= 3 {
			h, err := atohash(args[2])
			if err != nil {
				return err
			}
			check.Hash = h
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpMatchObject, Check: check, Slot: slot, Exact: exact})

	case "FN":
		if err := need(1); err != nil {
			return err
		}
		h, err := atohash(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpFn, Hash: h})

	case "CLOSURE":
		if err := need(2); err != nil {
			return err
		}
		h, err := atohash(args[0])
		if err != nil {
			return err
		}
		n, err := atoi(args[1])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpClosure, Hash: h, N: n})

	case "LOAD_INSTANCE_FN":
		if err := need(1); err != nil {
			return err
		}
		h, err := atohash(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpLoadInstanceFn, Hash: h})

	case "CALL":
		if err := need(2); err != nil {
			return err
		}
		h, err := atohash(args[0])
		if err != nil {
			return err
		}
		n, err := atoi(args[1])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpCall, Hash: h, ArgCount: n})

	case "CALL_INSTANCE":
		if err := need(2); err != nil {
			return err
		}
		h, err := atohash(args[0])
		if err != nil {
			return err
		}
		n, err := atoi(args[1])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpCallInstance, Hash: h, ArgCount: n})

	case "CALL_FN":
		if err := need(1); err != nil {
			return err
		}
		n, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpCallFn, ArgCount: n})

	case "SELECT":
		if err := need(1); err != nil {
			return err
		}
		n, err := atoi(args[0])
		if err != nil {
			return err
		}
		a.emit(bytecode.Instruction{Op: bytecode.OpSelect, N: n})

	case "PANIC":
		reason := strings.Join(args, " ")
		a.emit(bytecode.Instruction{Op: bytecode.OpPanic, Reason: reason})

	default:
		return errf("unknown mnemonic %q", mnemonic)
	}
	return nil
}

// zeroArgOpcodes lists every mnemonic that takes no operands at all.
var zeroArgOpcodes = map[string]bytecode.Opcode{
	"NOP":         bytecode.OpNop,
	"ADD":         bytecode.OpAdd,
	"SUB":         bytecode.OpSub,
	"MUL":         bytecode.OpMul,
	"DIV":         bytecode.OpDiv,
	"REM":         bytecode.OpRem,
	"BIT_AND":     bytecode.OpBitAnd,
	"BIT_OR":      bytecode.OpBitOr,
	"BIT_XOR":     bytecode.OpBitXor,
	"SHL":         bytecode.OpShl,
	"SHR":         bytecode.OpShr,
	"AND":         bytecode.OpAnd,
	"OR":          bytecode.OpOr,
	"NOT":         bytecode.OpNot,
	"EQ":          bytecode.OpEq,
	"NEQ":         bytecode.OpNeq,
	"GT":          bytecode.OpGt,
	"GTE":         bytecode.OpGte,
	"LT":          bytecode.OpLt,
	"LTE":         bytecode.OpLte,
	"POP":         bytecode.OpPop,
	"DROP":        bytecode.OpDrop,
	"DUP":         bytecode.OpDup,
	"RETURN":      bytecode.OpReturn,
	"RETURN_UNIT": bytecode.OpReturnUnit,
	"UNIT":        bytecode.OpUnit,
	"PUSH_TUPLE":  bytecode.OpPushTuple,
	"IS_UNIT":     bytecode.OpIsUnit,
	"IS_VALUE":    bytecode.OpIsValue,
	"UNWRAP":      bytecode.OpUnwrap,
	"AWAIT":       bytecode.OpAwait,
	"YIELD":       bytecode.OpYield,
	"YIELD_UNIT":  bytecode.OpYieldUnit,
}

// offsetOpcodes lists every mnemonic whose sole operand is a
// stack_bottom-relative Offset: the *_ASSIGN family, COPY and REPLACE.
// IS/IS_NOT are not listed here; they take no operands and are added
// to zeroArgOpcodes in init.
var offsetOpcodes = map[string]bytecode.Opcode{
	"ADD_ASSIGN":     bytecode.OpAddAssign,
	"SUB_ASSIGN":     bytecode.OpSubAssign,
	"MUL_ASSIGN":     bytecode.OpMulAssign,
	"DIV_ASSIGN":     bytecode.OpDivAssign,
	"REM_ASSIGN":     bytecode.OpRemAssign,
	"BIT_AND_ASSIGN": bytecode.OpBitAndAssign,
	"BIT_OR_ASSIGN":  bytecode.OpBitOrAssign,
	"BIT_XOR_ASSIGN": bytecode.OpBitXorAssign,
	"SHL_ASSIGN":     bytecode.OpShlAssign,
	"SHR_ASSIGN":     bytecode.OpShrAssign,
	"COPY":           bytecode.OpCopy,
	"REPLACE":        bytecode.OpReplace,
}

func init() {
	zeroArgOpcodes["IS"] = bytecode.OpIs
	zeroArgOpcodes["IS_NOT"] = bytecode.OpIsNot
}

func parseTypeCheck(kind string, rest []string) (bytecode.TypeCheck, error) {
	switch strings.ToLower(kind) {
	case "tuple":
		return bytecode.TypeCheck{Kind: bytecode.CheckTuple}, nil
	case "vec":
		return bytecode.TypeCheck{Kind: bytecode.CheckVec}, nil
	case "unit":
		return bytecode.TypeCheck{Kind: bytecode.CheckUnit}, nil
	case "result", "option", "generatorstate":
		var k bytecode.TypeCheckKind
		switch strings.ToLower(kind) {
		case "result":
			k = bytecode.CheckResult
		case "option":
			k = bytecode.CheckOption
		case "generatorstate":
			k = bytecode.CheckGeneratorState
		}
		arm := 0
		if len(rest) >= 2 {
			n, err := strconv.Atoi(rest[1])
			if err == nil {
				arm = n
			}
		}
		return bytecode.TypeCheck{Kind: k, Arm: arm}, nil
	case "type", "variant":
		k := bytecode.CheckType
		if strings.ToLower(kind) == "variant" {
			k = bytecode.CheckVariant
		}
		if len(rest) < 2 {
			return bytecode.TypeCheck{}, fmt.Errorf("%s check requires a hash operand", kind)
		}
		h := value.HashString(rest[1])
		if strings.HasPrefix(rest[1], "#") {
			n, err := strconv.ParseUint(rest[1][1:], 10, 64)
			if err == nil {
				h = value.Hash(n)
			}
		}
		return bytecode.TypeCheck{Kind: k, Hash: h}, nil
	default:
		return bytecode.TypeCheck{}, fmt.Errorf("unknown MATCH_SEQUENCE check kind %q", kind)
	}
}

// resolveStringSlot accepts either a bare numeric pool slot or a
// quoted/bare literal to intern via AddString, so assembly text can
// name strings directly instead of pre-computing pool indices.
func (a *Assembler) resolveStringSlot(tok string) (int, error) {
	if n, err := strconv.Atoi(tok); err == nil {
		return n, nil
	}
	return a.unit.AddString(unquote(tok)), nil
}

// resolveKeysSlot accepts a comma-separated key list (interned via
// AddObjectKeys) or a bare numeric pool slot.
func (a *Assembler) resolveKeysSlot(tok string) (int, error) {
	if n, err := strconv.Atoi(tok); err == nil {
		return n, nil
	}
	keys := strings.Split(tok, ",")
	return a.unit.AddObjectKeys(keys), nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}
