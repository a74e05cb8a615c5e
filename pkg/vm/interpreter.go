package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kristofer/weave/pkg/access"
	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/value"
)

// execute dispatches a single decoded Instruction. It reports whether
// the VM halted (and, if so, the Halt describing why), plus whatever
// error occurred. *jumped is set to true whenever this call already
// repositioned v.ip itself (a taken jump, a pushed or popped call
// frame) so RunFor knows not to additionally advance it.
func (v *VM) execute(inst bytecode.Instruction, jumped *bool) (bool, Halt, error) {
	switch inst.Op {

	// --- Arithmetic ---------------------------------------------------
	case bytecode.OpAdd:
		return v.arith(inst, value.ProtocolAdd, addChecked, func(a, b float64) float64 { return a + b })
	case bytecode.OpSub:
		return v.arith(inst, value.ProtocolSub, subChecked, func(a, b float64) float64 { return a - b })
	case bytecode.OpMul:
		return v.arith(inst, value.ProtocolMul, mulChecked, func(a, b float64) float64 { return a * b })
	case bytecode.OpDiv:
		return v.arith(inst, value.ProtocolDiv, divChecked, func(a, b float64) float64 { return a / b })
	case bytecode.OpRem:
		return v.arith(inst, value.ProtocolRem, remChecked, math.Mod)

	case bytecode.OpAddAssign:
		return v.arithAssign(inst, value.ProtocolAddAssign, addChecked, func(a, b float64) float64 { return a + b })
	case bytecode.OpSubAssign:
		return v.arithAssign(inst, value.ProtocolSubAssign, subChecked, func(a, b float64) float64 { return a - b })
	case bytecode.OpMulAssign:
		return v.arithAssign(inst, value.ProtocolMulAssign, mulChecked, func(a, b float64) float64 { return a * b })
	case bytecode.OpDivAssign:
		return v.arithAssign(inst, value.ProtocolDivAssign, divChecked, func(a, b float64) float64 { return a / b })
	case bytecode.OpRemAssign:
		return v.arithAssign(inst, value.ProtocolRemAssign, remChecked, math.Mod)

	// --- Bitwise --------------------------------------------------------
	case bytecode.OpBitAnd:
		return v.bitwise(value.ProtocolBitAnd, func(a, b int64) (int64, error) { return a & b, nil })
	case bytecode.OpBitOr:
		return v.bitwise(value.ProtocolBitOr, func(a, b int64) (int64, error) { return a | b, nil })
	case bytecode.OpBitXor:
		return v.bitwise(value.ProtocolBitXor, func(a, b int64) (int64, error) { return a ^ b, nil })
	case bytecode.OpShl:
		return v.bitwise(value.ProtocolShl, shlChecked)
	case bytecode.OpShr:
		return v.bitwise(value.ProtocolShr, shrChecked)

	case bytecode.OpBitAndAssign:
		return v.bitwiseAssign(inst, value.ProtocolBitAndAssign, func(a, b int64) (int64, error) { return a & b, nil })
	case bytecode.OpBitOrAssign:
		return v.bitwiseAssign(inst, value.ProtocolBitOrAssign, func(a, b int64) (int64, error) { return a | b, nil })
	case bytecode.OpBitXorAssign:
		return v.bitwiseAssign(inst, value.ProtocolBitXorAssign, func(a, b int64) (int64, error) { return a ^ b, nil })
	case bytecode.OpShlAssign:
		return v.bitwiseAssign(inst, value.ProtocolShlAssign, shlChecked)
	case bytecode.OpShrAssign:
		return v.bitwiseAssign(inst, value.ProtocolShrAssign, shrChecked)

	// --- Boolean logic ---------------------------------------------------
	case bytecode.OpAnd:
		return v.boolBinary(func(a, b bool) bool { return a && b })
	case bytecode.OpOr:
		return v.boolBinary(func(a, b bool) bool { return a || b })
	case bytecode.OpNot:
		return v.not()

	// --- Comparison -------------------------------------------------------
	case bytecode.OpEq, bytecode.OpNeq:
		return v.eqOp(inst.Op == bytecode.OpNeq)
	case bytecode.OpGt:
		return v.ordered(func(c int) bool { return c > 0 })
	case bytecode.OpGte:
		return v.ordered(func(c int) bool { return c >= 0 })
	case bytecode.OpLt:
		return v.ordered(func(c int) bool { return c < 0 })
	case bytecode.OpLte:
		return v.ordered(func(c int) bool { return c <= 0 })

	// --- Stack housekeeping -----------------------------------------------
	case bytecode.OpPop, bytecode.OpDrop:
		_, err := v.stack.Pop()
		return false, Halt{}, err
	case bytecode.OpPopN:
		return false, Halt{}, v.stack.PopN(inst.N)
	case bytecode.OpClean:
		top, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		if err := v.stack.PopN(inst.N); err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(top)
		return false, Halt{}, nil
	case bytecode.OpCopy:
		val, err := v.stack.AtOffset(inst.Offset)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(val)
		return false, Halt{}, nil
	case bytecode.OpDup:
		val, err := v.stack.Peek()
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(val)
		return false, Halt{}, nil
	case bytecode.OpReplace:
		val, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		return false, Halt{}, v.stack.SetAtOffset(inst.Offset, val)

	// --- Control flow -------------------------------------------------------
	case bytecode.OpJump:
		v.ip = inst.Target
		*jumped = true
		return false, Halt{}, nil

	case bytecode.OpReturn:
		ret, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		return v.doReturn(ret, jumped)
	case bytecode.OpReturnUnit:
		return v.doReturn(value.Unit(), jumped)

	case bytecode.OpJumpIf:
		b, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		if b.Type() == value.TBool && b.AsBool() {
			v.ip = inst.Target
			*jumped = true
		}
		return false, Halt{}, nil

	case bytecode.OpJumpIfNot, bytecode.OpPopAndJumpIfNot:
		b, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		if b.Type() == value.TBool && !b.AsBool() {
			v.ip = inst.Target
			*jumped = true
		}
		return false, Halt{}, nil

	case bytecode.OpJumpIfBranch:
		top, err := v.stack.Peek()
		if err != nil {
			return false, Halt{}, err
		}
		if top.Type() == value.TInteger && top.AsInteger() == inst.Branch {
			if _, err := v.stack.Pop(); err != nil {
				return false, Halt{}, err
			}
			v.ip = inst.Target
			*jumped = true
		}
		return false, Halt{}, nil

	// --- Constructors ---------------------------------------------------
	case bytecode.OpUnit:
		v.stack.Push(value.Unit())
		return false, Halt{}, nil
	case bytecode.OpBool:
		v.stack.Push(value.Bool(inst.Bool))
		return false, Halt{}, nil
	case bytecode.OpInteger:
		v.stack.Push(value.Integer(inst.Int))
		return false, Halt{}, nil
	case bytecode.OpFloat:
		v.stack.Push(value.Float(inst.Float))
		return false, Halt{}, nil
	case bytecode.OpChar:
		v.stack.Push(value.Char(inst.Char))
		return false, Halt{}, nil
	case bytecode.OpByte:
		v.stack.Push(value.Byte(inst.Byte))
		return false, Halt{}, nil
	case bytecode.OpString:
		s, err := v.unit.LookupString(inst.Slot)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.StaticString(s))
		return false, Halt{}, nil
	case bytecode.OpBytes:
		b, err := v.unit.LookupBytes(inst.Slot)
		if err != nil {
			return false, Halt{}, err
		}
		fresh := append([]byte(nil), b...)
		v.stack.Push(value.NewBytes(fresh))
		return false, Halt{}, nil
	case bytecode.OpType:
		v.stack.Push(value.TypeValue(inst.Hash))
		return false, Halt{}, nil
	case bytecode.OpVec:
		elems, err := v.stack.DrainStackTop(inst.N)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.NewVec(elems))
		return false, Halt{}, nil
	case bytecode.OpTuple:
		elems, err := v.stack.DrainStackTop(inst.N)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.NewTuple(elems))
		return false, Halt{}, nil
	case bytecode.OpPushTuple:
		t, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		fields, ok, terr := tupleFieldsOf(t)
		if terr != nil {
			return false, Halt{}, terr
		}
		if !ok {
			return false, Halt{}, errUnsupportedTupleIndexGet(t.Type())
		}
		for _, f := range fields {
			v.stack.Push(f)
		}
		return false, Halt{}, nil
	case bytecode.OpObject:
		obj, err := v.drainObject(inst.Slot)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.NewObjectValue(obj))
		return false, Halt{}, nil
	case bytecode.OpTypedObject:
		obj, err := v.drainObject(inst.Slot)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.NewTypedObject(value.TypedObject{Hash: inst.Hash, Fields: obj}))
		return false, Halt{}, nil
	case bytecode.OpVariantObject:
		obj, err := v.drainObject(inst.Slot)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.NewVariantObject(value.VariantObject{EnumHash: inst.EnumHash, Hash: inst.Hash, Fields: obj}))
		return false, Halt{}, nil

	// --- Index operations -------------------------------------------------
	case bytecode.OpIndexGet:
		return v.indexGet()
	case bytecode.OpIndexSet:
		return v.indexSet()
	case bytecode.OpTupleIndexGet:
		return v.tupleIndexGet(inst.Index)
	case bytecode.OpTupleIndexSet:
		return v.tupleIndexSet(inst.Index)
	case bytecode.OpTupleIndexGetAt:
		return v.tupleIndexGetAt(inst.Offset, inst.Index)
	case bytecode.OpObjectSlotIndexGet:
		return v.objectSlotIndexGet(inst.Slot)
	case bytecode.OpObjectSlotIndexGetAt:
		return v.objectSlotIndexGetAt(inst.Offset, inst.Slot)

	// --- String concatenation ----------------------------------------------
	case bytecode.OpStringConcat:
		return v.stringConcat(inst)

	// --- Pattern matching ---------------------------------------------------
	case bytecode.OpMatchSequence:
		ok, err := v.matchSequence(inst.Check, inst.N)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.Bool(ok))
		return false, Halt{}, nil
	case bytecode.OpMatchObject:
		ok, err := v.matchObject(inst.Check, inst.Slot, inst.Exact)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.Bool(ok))
		return false, Halt{}, nil

	// --- Type predicates ------------------------------------------------
	case bytecode.OpIs, bytecode.OpIsNot:
		return v.isOp(inst.Op == bytecode.OpIsNot)
	case bytecode.OpIsUnit:
		val, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.Bool(val.IsUnit()))
		return false, Halt{}, nil
	case bytecode.OpIsValue:
		val, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		switch val.Type() {
		case value.TResult:
			r, berr := readShared(val.ResultCell())
			if berr != nil {
				return false, Halt{}, berr
			}
			v.stack.Push(value.Bool(r.Ok))
		case value.TOption:
			o, berr := readShared(val.OptionCell())
			if berr != nil {
				return false, Halt{}, berr
			}
			v.stack.Push(value.Bool(o.Some))
		default:
			return false, Halt{}, errUnsupportedIsValueOperand(val.Type())
		}
		return false, Halt{}, nil

	// --- Unwrap -------------------------------------------------------------
	case bytecode.OpUnwrap:
		return v.unwrap()

	// --- Function values --------------------------------------------------
	case bytecode.OpFn:
		v.stack.Push(value.NewFunction(access.New(FunctionValue{Hash: inst.Hash})))
		return false, Halt{}, nil
	case bytecode.OpClosure:
		env, err := v.stack.DrainStackTop(inst.N)
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.NewFunction(access.New(FunctionValue{Hash: inst.Hash, Env: env})))
		return false, Halt{}, nil
	case bytecode.OpLoadInstanceFn:
		receiver, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		instHash := v.instanceCache.resolve(receiver.Type(), inst.Hash)
		v.stack.Push(value.NewFunction(access.New(FunctionValue{Hash: instHash})))
		return false, Halt{}, nil

	// --- Calls --------------------------------------------------------------
	case bytecode.OpCall:
		j, err := v.dispatchCall(inst.Hash, inst.ArgCount)
		*jumped = j
		return false, Halt{}, err
	case bytecode.OpCallInstance:
		j, err := v.callInstance(inst.Hash, inst.ArgCount)
		*jumped = j
		return false, Halt{}, err
	case bytecode.OpCallFn:
		j, err := v.callFn(inst.ArgCount)
		*jumped = j
		return false, Halt{}, err

	// --- Suspension -----------------------------------------------------
	case bytecode.OpAwait:
		return v.await()
	case bytecode.OpSelect:
		return v.selectOp(inst.N)
	case bytecode.OpYield:
		val, err := v.stack.Pop()
		if err != nil {
			return false, Halt{}, err
		}
		return true, Halt{Reason: HaltYielded, Value: val}, nil
	case bytecode.OpYieldUnit:
		return true, Halt{Reason: HaltYielded, Value: value.Unit()}, nil

	// --- Panic ----------------------------------------------------------
	case bytecode.OpPanic:
		return false, Halt{}, errPanic(inst.Reason)

	case bytecode.OpNop:
		return false, Halt{}, nil

	default:
		return false, Halt{}, errBadArgument(fmt.Sprintf("unrecognized opcode %s", inst.Op))
	}
}

// doReturn implements Return/ReturnUnit: pop the current frame, report
// Exited if none remains to resume into.
func (v *VM) doReturn(ret value.Value, jumped *bool) (bool, Halt, error) {
	if v.popFrame(ret) {
		*jumped = true
		return false, Halt{}, nil
	}
	return true, Halt{Reason: HaltExited, Value: ret}, nil
}

func (v *VM) drainObject(slot int) (*value.Object, error) {
	keys, err := v.unit.LookupObjectKeys(slot)
	if err != nil {
		return nil, err
	}
	vals, err := v.stack.DrainStackTop(len(keys))
	if err != nil {
		return nil, err
	}
	obj := value.NewObject()
	for i, k := range keys {
		obj.Set(k, vals[i])
	}
	return obj, nil
}

// arith implements one of Add/Sub/Mul/Div/Rem: Integer/Integer uses
// checked int64 arithmetic, Float/Float uses native float64 arithmetic,
// anything else falls back to the matching protocol.
func (v *VM) arith(inst bytecode.Instruction, protocol value.Hash, intOp func(int64, int64) (int64, error), floatOp func(float64, float64) float64) (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	lhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	res, err := v.arithValues(lhs, rhs, protocol, intOp, floatOp)
	if err != nil {
		return false, Halt{}, err
	}
	v.stack.Push(res)
	return false, Halt{}, nil
}

func (v *VM) arithValues(lhs, rhs value.Value, protocol value.Hash, intOp func(int64, int64) (int64, error), floatOp func(float64, float64) float64) (value.Value, error) {
	switch {
	case lhs.Type() == value.TInteger && rhs.Type() == value.TInteger:
		r, err := intOp(lhs.AsInteger(), rhs.AsInteger())
		if err != nil {
			return value.Value{}, err
		}
		return value.Integer(r), nil
	case lhs.Type() == value.TFloat && rhs.Type() == value.TFloat:
		return value.Float(floatOp(lhs.AsFloat(), rhs.AsFloat())), nil
	default:
		rv, ok, err := v.callProtocolSync(protocol, lhs, rhs)
		if err != nil {
			return value.Value{}, err
		}
		if !ok {
			return value.Value{}, errUnsupportedBinary(protocolOpName(protocol), lhs.Type(), rhs.Type())
		}
		return rv, nil
	}
}

// arithAssign implements the ADD_ASSIGN family: lhs lives at
// stack_bottom+Offset, rhs is popped from the top, and the result
// overwrites the slot in place rather than being pushed.
func (v *VM) arithAssign(inst bytecode.Instruction, protocol value.Hash, intOp func(int64, int64) (int64, error), floatOp func(float64, float64) float64) (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	lhs, err := v.stack.AtOffset(inst.Offset)
	if err != nil {
		return false, Halt{}, err
	}
	res, err := v.arithValues(lhs, rhs, protocol, intOp, floatOp)
	if err != nil {
		return false, Halt{}, err
	}
	return false, Halt{}, v.stack.SetAtOffset(inst.Offset, res)
}

func (v *VM) bitwise(protocol value.Hash, intOp func(int64, int64) (int64, error)) (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	lhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	res, err := v.bitwiseValues(lhs, rhs, protocol, intOp)
	if err != nil {
		return false, Halt{}, err
	}
	v.stack.Push(res)
	return false, Halt{}, nil
}

func (v *VM) bitwiseValues(lhs, rhs value.Value, protocol value.Hash, intOp func(int64, int64) (int64, error)) (value.Value, error) {
	if lhs.Type() == value.TInteger && rhs.Type() == value.TInteger {
		r, err := intOp(lhs.AsInteger(), rhs.AsInteger())
		if err != nil {
			return value.Value{}, err
		}
		return value.Integer(r), nil
	}
	rv, ok, err := v.callProtocolSync(protocol, lhs, rhs)
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return value.Value{}, errUnsupportedBinary(protocolOpName(protocol), lhs.Type(), rhs.Type())
	}
	return rv, nil
}

func (v *VM) bitwiseAssign(inst bytecode.Instruction, protocol value.Hash, intOp func(int64, int64) (int64, error)) (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	lhs, err := v.stack.AtOffset(inst.Offset)
	if err != nil {
		return false, Halt{}, err
	}
	res, err := v.bitwiseValues(lhs, rhs, protocol, intOp)
	if err != nil {
		return false, Halt{}, err
	}
	return false, Halt{}, v.stack.SetAtOffset(inst.Offset, res)
}

func (v *VM) boolBinary(op func(bool, bool) bool) (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	lhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	if lhs.Type() != value.TBool || rhs.Type() != value.TBool {
		return false, Halt{}, errUnsupportedBinary("BOOL", lhs.Type(), rhs.Type())
	}
	v.stack.Push(value.Bool(op(lhs.AsBool(), rhs.AsBool())))
	return false, Halt{}, nil
}

func (v *VM) not() (bool, Halt, error) {
	operand, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	switch operand.Type() {
	case value.TBool:
		v.stack.Push(value.Bool(!operand.AsBool()))
	case value.TInteger:
		v.stack.Push(value.Integer(^operand.AsInteger()))
	default:
		return false, Halt{}, errUnsupportedUnary("NOT", operand.Type())
	}
	return false, Halt{}, nil
}

func (v *VM) eqOp(negate bool) (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	lhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	eq, err := v.eqValues(lhs, rhs)
	if err != nil {
		return false, Halt{}, err
	}
	if negate {
		eq = !eq
	}
	v.stack.Push(value.Bool(eq))
	return false, Halt{}, nil
}

// eqValues tries structural Equal first, then falls back to the
// PARTIAL_EQ protocol if lhs's ValueType has one registered and Equal
// reported false (spec.md §3.1, value/equality.go's doc comment).
func (v *VM) eqValues(lhs, rhs value.Value) (bool, error) {
	if value.Equal(lhs, rhs) {
		return true, nil
	}
	rv, ok, err := v.callProtocolSync(value.ProtocolPartialEq, lhs, rhs)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return rv.Type() == value.TBool && rv.AsBool(), nil
}

func (v *VM) ordered(pred func(int) bool) (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	lhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	c, err := compareOrdered(lhs, rhs)
	if err != nil {
		return false, Halt{}, err
	}
	v.stack.Push(value.Bool(pred(c)))
	return false, Halt{}, nil
}

func (v *VM) isOp(negate bool) (bool, Halt, error) {
	typeVal, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	operand, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	if typeVal.Type() != value.TType {
		return false, Halt{}, errBadArgument("is/is_not operand must be a Type literal")
	}
	oh, ok, err := valueHashForIs(operand)
	if err != nil {
		return false, Halt{}, err
	}
	if !ok {
		return false, Halt{}, errUnsupportedIs(operand.Type())
	}
	res := oh == typeVal.AsType()
	if negate {
		res = !res
	}
	v.stack.Push(value.Bool(res))
	return false, Halt{}, nil
}

func (v *VM) unwrap() (bool, Halt, error) {
	val, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	switch val.Type() {
	case value.TOption:
		o, err := readShared(val.OptionCell())
		if err != nil {
			return false, Halt{}, err
		}
		if !o.Some {
			return false, Halt{}, errUnsupportedUnwrapNone()
		}
		v.stack.Push(o.Value)
	case value.TResult:
		r, err := readShared(val.ResultCell())
		if err != nil {
			return false, Halt{}, err
		}
		if !r.Ok {
			return false, Halt{}, errUnsupportedUnwrapErr(r.Value)
		}
		v.stack.Push(r.Value)
	default:
		return false, Halt{}, errBadArgument("unwrap operand must be Option or Result")
	}
	return false, Halt{}, nil
}

// coerceFuture turns val into a Future Value directly, or via the
// INTO_FUTURE protocol fallback (shared by Await and Select).
func (v *VM) coerceFuture(val value.Value) (value.Value, error) {
	if val.Type() == value.TFuture {
		return val, nil
	}
	rv, ok, err := v.callProtocolSync(value.ProtocolIntoFuture, val)
	if err != nil {
		return value.Value{}, err
	}
	if !ok || rv.Type() != value.TFuture {
		return value.Value{}, errUnsupportedAwait()
	}
	return rv, nil
}

func (v *VM) await() (bool, Halt, error) {
	val, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	fv, err := v.coerceFuture(val)
	if err != nil {
		return false, Halt{}, err
	}
	return true, Halt{Reason: HaltAwaited, Future: fv}, nil
}

// selectOp implements Select(n) (spec.md §4.5.4): already-resolved
// futures are dropped from the branch set entirely rather than
// reported, since there is nothing left for the driver to wait on.
func (v *VM) selectOp(n int) (bool, Halt, error) {
	vals, err := v.stack.DrainStackTop(n)
	if err != nil {
		return false, Halt{}, err
	}
	branches := make([]SelectBranch, 0, n)
	for i, val := range vals {
		fv, err := v.coerceFuture(val)
		if err != nil {
			return false, Halt{}, err
		}
		if done, _, derr := futureAlreadyDone(fv); done {
			if derr != nil {
				return false, Halt{}, derr
			}
			continue
		}
		branches = append(branches, SelectBranch{Index: i, Future: fv})
	}
	if len(branches) == 0 {
		v.stack.Push(value.Unit())
		return false, Halt{}, nil
	}
	v.pendingSelect = branches
	return true, Halt{Reason: HaltAwaited, Select: branches}, nil
}

func futureAlreadyDone(fv value.Value) (bool, value.Value, error) {
	cell, ok := value.FutureData[*futureState](fv)
	if !ok {
		return false, value.Value{}, nil
	}
	fs, err := readShared(cell)
	if err != nil {
		return false, value.Value{}, err
	}
	if !fs.done {
		return false, value.Value{}, nil
	}
	return true, fs.value, fs.err
}

// stringConcat implements StringConcat{len, size_hint}.
func (v *VM) stringConcat(inst bytecode.Instruction) (bool, Halt, error) {
	parts, err := v.stack.DrainStackTop(inst.N)
	if err != nil {
		return false, Halt{}, err
	}
	var b strings.Builder
	b.Grow(inst.SizeHint)
	for _, p := range parts {
		s, err := v.displayValue(p)
		if err != nil {
			return false, Halt{}, err
		}
		b.WriteString(s)
	}
	v.stack.Push(value.NewString(b.String()))
	return false, Halt{}, nil
}

// displayValue renders val for StringConcat: primitives format
// directly, everything else goes through the STRING_DISPLAY protocol,
// which must return Result(Ok(string-like)) (spec.md §4.5.1 — a
// simplified stand-in for the reference implementation's "write into a
// shared buffer" formatter contract).
func (v *VM) displayValue(val value.Value) (string, error) {
	switch val.Type() {
	case value.TInteger:
		return strconv.FormatInt(val.AsInteger(), 10), nil
	case value.TFloat:
		return strconv.FormatFloat(val.AsFloat(), 'g', -1, 64), nil
	case value.TStaticString:
		return val.AsStaticString(), nil
	case value.TString:
		return readShared(val.StringCell())
	case value.TBool:
		return strconv.FormatBool(val.AsBool()), nil
	case value.TChar:
		return string(val.AsChar()), nil
	case value.TByte:
		return strconv.Itoa(int(val.AsByte())), nil
	case value.TUnit:
		return "()", nil
	default:
		rv, ok, err := v.callProtocolSync(value.ProtocolStringDisplay, val)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errMissingProtocol(value.ProtocolStringDisplay, val.Type())
		}
		if rv.Type() != value.TResult {
			return "", errFormatError(fmt.Errorf("STRING_DISPLAY must return a Result"))
		}
		r, berr := readShared(rv.ResultCell())
		if berr != nil {
			return "", berr
		}
		if !r.Ok {
			return "", errFormatError(fmt.Errorf("display handler returned Err"))
		}
		switch r.Value.Type() {
		case value.TStaticString:
			return r.Value.AsStaticString(), nil
		case value.TString:
			return readShared(r.Value.StringCell())
		default:
			return "", errFormatError(fmt.Errorf("STRING_DISPLAY result must be a string"))
		}
	}
}

// protocolOpName recovers a short mnemonic for error messages from a
// protocol Hash; it is only used for display, so an approximate
// round-trip through the well-known protocol set is good enough.
func protocolOpName(protocol value.Hash) string {
	switch protocol {
	case value.ProtocolAdd, value.ProtocolAddAssign:
		return "ADD"
	case value.ProtocolSub, value.ProtocolSubAssign:
		return "SUB"
	case value.ProtocolMul, value.ProtocolMulAssign:
		return "MUL"
	case value.ProtocolDiv, value.ProtocolDivAssign:
		return "DIV"
	case value.ProtocolRem, value.ProtocolRemAssign:
		return "REM"
	case value.ProtocolBitAnd, value.ProtocolBitAndAssign:
		return "BIT_AND"
	case value.ProtocolBitOr, value.ProtocolBitOrAssign:
		return "BIT_OR"
	case value.ProtocolBitXor, value.ProtocolBitXorAssign:
		return "BIT_XOR"
	case value.ProtocolShl, value.ProtocolShlAssign:
		return "SHL"
	case value.ProtocolShr, value.ProtocolShrAssign:
		return "SHR"
	default:
		return "OP"
	}
}
