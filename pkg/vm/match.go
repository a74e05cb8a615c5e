package vm

import (
	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/value"
)

// matchSequence implements MatchSequence (spec.md §4.5.3): it peeks the
// top-of-stack value (leaving it in place for any destructuring
// instructions that follow a successful match) and reports whether it
// satisfies check against a length of n elements. Reading a compound
// value's shape takes a shared borrow on its cell, released before
// returning (spec.md §5).
func (v *VM) matchSequence(check bytecode.TypeCheck, n int) (bool, error) {
	top, err := v.stack.Peek()
	if err != nil {
		return false, err
	}

	switch check.Kind {
	case bytecode.CheckTuple:
		fields, ok, err := tupleFieldsOf(top)
		if err != nil {
			return false, err
		}
		return ok && len(fields) == n, nil

	case bytecode.CheckVec:
		if top.Type() != value.TVec {
			return false, nil
		}
		fields, err := readShared(top.VecCell())
		if err != nil {
			return false, err
		}
		return len(fields) == n, nil

	case bytecode.CheckResult:
		if top.Type() != value.TResult {
			return false, nil
		}
		r, err := readShared(top.ResultCell())
		if err != nil {
			return false, err
		}
		wantOk := check.Arm == 0
		return r.Ok == wantOk, nil

	case bytecode.CheckOption:
		if top.Type() != value.TOption {
			return false, nil
		}
		o, err := readShared(top.OptionCell())
		if err != nil {
			return false, err
		}
		wantSome := check.Arm == 0
		return o.Some == wantSome, nil

	case bytecode.CheckGeneratorState:
		if top.Type() != value.TGeneratorState {
			return false, nil
		}
		g, err := readShared(top.GeneratorStateCell())
		if err != nil {
			return false, err
		}
		wantComplete := check.Arm == 0
		return g.Complete == wantComplete, nil

	case bytecode.CheckType:
		h, ok, err := valueHashForIs(top)
		if err != nil {
			return false, err
		}
		return ok && h == check.Hash, nil

	case bytecode.CheckVariant:
		switch top.Type() {
		case value.TTupleVariant:
			tv, err := readShared(top.TupleVariantCell())
			if err != nil {
				return false, err
			}
			return tv.Hash == check.Hash && len(tv.Fields) == n, nil
		case value.TVariantObject:
			vo, err := readShared(top.VariantObjectCell())
			if err != nil {
				return false, err
			}
			return vo.Hash == check.Hash, nil
		default:
			return false, nil
		}

	case bytecode.CheckUnit:
		return top.IsUnit(), nil

	default:
		return false, nil
	}
}

// matchObject implements MatchObject: it peeks the top-of-stack value,
// resolves it to its underlying field set (Object/TypedObject/
// VariantObject), and checks the key set named by slot in the Unit's
// object-key pool against it — exactly (exact=true) or as a subset
// (exact=false). A tagged receiver (TypedObject/VariantObject) also
// checks check.Hash against the value's own tag.
func (v *VM) matchObject(check bytecode.TypeCheck, slot int, exact bool) (bool, error) {
	top, err := v.stack.Peek()
	if err != nil {
		return false, err
	}

	keys, err := v.unit.LookupObjectKeys(slot)
	if err != nil {
		return false, err
	}

	switch top.Type() {
	case value.TObject:
		obj, err := readShared(top.ObjectCell())
		if err != nil {
			return false, err
		}
		return obj.HasKeys(keys, exact), nil

	case value.TTypedObject:
		to, err := readShared(top.TypedObjectCell())
		if err != nil {
			return false, err
		}
		if check.Hash != 0 && to.Hash != check.Hash {
			return false, nil
		}
		return to.Fields.HasKeys(keys, exact), nil

	case value.TVariantObject:
		vo, err := readShared(top.VariantObjectCell())
		if err != nil {
			return false, err
		}
		if vo.Hash != check.Hash {
			return false, nil
		}
		return vo.Fields.HasKeys(keys, exact), nil

	default:
		return false, nil
	}
}

// valueHashForIs gives every value a comparable "type hash" for the
// Is/IsNot instructions to test against a popped Type(hash) literal:
// tagged compounds use their own item Hash, everything else hashes its
// ValueType's name (spec.md leaves the exact identity Is compares
// against unspecified beyond "the type named at the call site").
func valueHashForIs(v value.Value) (value.Hash, bool, error) {
	switch v.Type() {
	case value.TTypedTuple:
		tt, err := readShared(v.TypedTupleCell())
		return tt.Hash, true, err
	case value.TTupleVariant:
		tv, err := readShared(v.TupleVariantCell())
		return tv.Hash, true, err
	case value.TTypedObject:
		to, err := readShared(v.TypedObjectCell())
		return to.Hash, true, err
	case value.TVariantObject:
		vo, err := readShared(v.VariantObjectCell())
		return vo.Hash, true, err
	default:
		return value.HashString("type::" + v.Type().String()), true, nil
	}
}
