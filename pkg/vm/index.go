package vm

import (
	"github.com/kristofer/weave/pkg/value"
)

// indexGet implements IndexGet (spec.md §4.5.1): string indices read
// object-like targets by field name, integer indices read tuple-like
// targets by position, and anything else falls back to the INDEX_GET
// protocol. Reading a compound target takes a shared borrow on its
// cell, released before any protocol fallback (spec.md §5).
func (v *VM) indexGet() (bool, Halt, error) {
	index, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	target, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}

	if field, ok, err := stringOf(index); err != nil {
		return false, Halt{}, err
	} else if ok {
		if obj, isObj, err := objectFieldsOf(target); err != nil {
			return false, Halt{}, err
		} else if isObj {
			fv, ok := obj.Get(field)
			if !ok {
				return false, Halt{}, errMissingField(target.Type(), field)
			}
			v.stack.Push(fv)
			return false, Halt{}, nil
		}
	}

	if index.Type() == value.TInteger {
		if fields, isTuple, err := tupleFieldsOf(target); err != nil {
			return false, Halt{}, err
		} else if isTuple {
			i := index.AsInteger()
			if i < 0 || int(i) >= len(fields) {
				return false, Halt{}, errMissingIndex(target.Type(), i)
			}
			v.stack.Push(fields[i])
			return false, Halt{}, nil
		}
	}

	rv, ok, perr := v.callProtocolSync(value.ProtocolIndexGet, target, index)
	if perr != nil {
		return false, Halt{}, perr
	}
	if !ok {
		return false, Halt{}, errUnsupportedIndexGet(target.Type())
	}
	v.stack.Push(rv)
	return false, Halt{}, nil
}

// indexSet implements IndexSet; it pushes Unit as the result of a
// successful assignment. Mutating a compound target takes an
// exclusive borrow on its cell, released before any protocol fallback.
func (v *VM) indexSet() (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	index, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	target, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}

	if field, ok, err := stringOf(index); err != nil {
		return false, Halt{}, err
	} else if ok {
		if handled, err := setObjectField(target, field, rhs); err != nil {
			return false, Halt{}, err
		} else if handled {
			v.stack.Push(value.Unit())
			return false, Halt{}, nil
		}
	}

	if index.Type() == value.TInteger && target.Type() == value.TVec {
		i := index.AsInteger()
		err := mutateExclusive(target.VecCell(), func(elems *[]value.Value) error {
			if i < 0 || int(i) >= len(*elems) {
				return errMissingIndex(target.Type(), i)
			}
			(*elems)[i] = rhs
			return nil
		})
		if err != nil {
			return false, Halt{}, err
		}
		v.stack.Push(value.Unit())
		return false, Halt{}, nil
	}

	_, ok, perr := v.callProtocolSync(value.ProtocolIndexSet, target, index, rhs)
	if perr != nil {
		return false, Halt{}, perr
	}
	if !ok {
		return false, Halt{}, errUnsupportedIndexSet(target.Type())
	}
	v.stack.Push(value.Unit())
	return false, Halt{}, nil
}

func (v *VM) tupleIndexGet(index int) (bool, Halt, error) {
	target, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	return v.pushTupleField(target, index)
}

func (v *VM) tupleIndexGetAt(offset, index int) (bool, Halt, error) {
	target, err := v.stack.AtOffset(offset)
	if err != nil {
		return false, Halt{}, err
	}
	return v.pushTupleField(target, index)
}

func (v *VM) pushTupleField(target value.Value, index int) (bool, Halt, error) {
	fields, ok, err := tupleFieldsOf(target)
	if err != nil {
		return false, Halt{}, err
	}
	if !ok {
		return false, Halt{}, errUnsupportedTupleIndexGet(target.Type())
	}
	if index < 0 || index >= len(fields) {
		return false, Halt{}, errMissingIndex(target.Type(), int64(index))
	}
	v.stack.Push(fields[index])
	return false, Halt{}, nil
}

func (v *VM) tupleIndexSet(index int) (bool, Halt, error) {
	rhs, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	target, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	switch target.Type() {
	case value.TTuple:
		err := mutateExclusive(target.TupleCell(), func(elems *[]value.Value) error {
			if index < 0 || index >= len(*elems) {
				return errMissingIndex(target.Type(), int64(index))
			}
			(*elems)[index] = rhs
			return nil
		})
		if err != nil {
			return false, Halt{}, err
		}
	case value.TTypedTuple:
		err := mutateExclusive(target.TypedTupleCell(), func(tt *value.TypedTuple) error {
			if index < 0 || index >= len(tt.Fields) {
				return errMissingIndex(target.Type(), int64(index))
			}
			tt.Fields[index] = rhs
			return nil
		})
		if err != nil {
			return false, Halt{}, err
		}
	default:
		return false, Halt{}, errUnsupportedTupleIndexSet(target.Type())
	}
	v.stack.Push(value.Unit())
	return false, Halt{}, nil
}

// objectSlotIndexGet reads a field whose name was resolved at compile
// time into the Unit's string pool (the compiled-offset fast path
// corresponding to IndexGet's computed-string path).
func (v *VM) objectSlotIndexGet(slot int) (bool, Halt, error) {
	target, err := v.stack.Pop()
	if err != nil {
		return false, Halt{}, err
	}
	return v.pushObjectSlot(target, slot)
}

func (v *VM) objectSlotIndexGetAt(offset, slot int) (bool, Halt, error) {
	target, err := v.stack.AtOffset(offset)
	if err != nil {
		return false, Halt{}, err
	}
	return v.pushObjectSlot(target, slot)
}

func (v *VM) pushObjectSlot(target value.Value, slot int) (bool, Halt, error) {
	field, err := v.unit.LookupString(slot)
	if err != nil {
		return false, Halt{}, errMissingStaticObjectKeys(slot)
	}
	obj, ok, berr := objectFieldsOf(target)
	if berr != nil {
		return false, Halt{}, berr
	}
	if !ok {
		return false, Halt{}, errUnsupportedObjectSlotIndexGet(target.Type())
	}
	fv, ok := obj.Get(field)
	if !ok {
		return false, Halt{}, errObjectIndexMissing(slot)
	}
	v.stack.Push(fv)
	return false, Halt{}, nil
}

// stringOf reads a string-shaped index operand, taking a shared borrow
// for the mutable String case.
func stringOf(v value.Value) (string, bool, error) {
	switch v.Type() {
	case value.TStaticString:
		return v.AsStaticString(), true, nil
	case value.TString:
		s, err := readShared(v.StringCell())
		return s, true, err
	default:
		return "", false, nil
	}
}

// objectFieldsOf resolves v to its underlying *value.Object under a
// shared borrow, reporting ok=false if v is not object-shaped at all
// (so the caller can try another representation or a protocol
// fallback) rather than an error.
func objectFieldsOf(v value.Value) (*value.Object, bool, error) {
	switch v.Type() {
	case value.TObject:
		obj, err := readShared(v.ObjectCell())
		return obj, true, err
	case value.TTypedObject:
		to, err := readShared(v.TypedObjectCell())
		if err != nil {
			return nil, true, err
		}
		return to.Fields, true, nil
	case value.TVariantObject:
		vo, err := readShared(v.VariantObjectCell())
		if err != nil {
			return nil, true, err
		}
		return vo.Fields, true, nil
	default:
		return nil, false, nil
	}
}

// setObjectField mutates v's field set under an exclusive borrow,
// reporting handled=false if v is not object-shaped.
func setObjectField(v value.Value, field string, rhs value.Value) (handled bool, err error) {
	switch v.Type() {
	case value.TObject:
		return true, mutateExclusive(v.ObjectCell(), func(obj **value.Object) error {
			(*obj).Set(field, rhs)
			return nil
		})
	case value.TTypedObject:
		return true, mutateExclusive(v.TypedObjectCell(), func(to *value.TypedObject) error {
			to.Fields.Set(field, rhs)
			return nil
		})
	case value.TVariantObject:
		return true, mutateExclusive(v.VariantObjectCell(), func(vo *value.VariantObject) error {
			vo.Fields.Set(field, rhs)
			return nil
		})
	default:
		return false, nil
	}
}

// tupleFieldsOf resolves v to its element slice under a shared borrow,
// reporting ok=false if v is not tuple-shaped at all.
func tupleFieldsOf(v value.Value) ([]value.Value, bool, error) {
	switch v.Type() {
	case value.TTuple:
		fields, err := readShared(v.TupleCell())
		return fields, true, err
	case value.TVec:
		fields, err := readShared(v.VecCell())
		return fields, true, err
	case value.TTypedTuple:
		tt, err := readShared(v.TypedTupleCell())
		if err != nil {
			return nil, true, err
		}
		return tt.Fields, true, nil
	case value.TTupleVariant:
		tv, err := readShared(v.TupleVariantCell())
		if err != nil {
			return nil, true, err
		}
		return tv.Fields, true, nil
	default:
		return nil, false, nil
	}
}
