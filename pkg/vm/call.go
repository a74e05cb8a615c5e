package vm

import (
	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/value"
)

// dispatchCall resolves hash against the Unit's function table, falling
// back to the Context on a miss (spec.md §4.5.2 step 5). It reports
// whether dispatch changed the instruction pointer directly (an
// Immediate call pushing a frame) — callers inside execute must copy
// this into *jumped so the main loop does not also advance IP.
func (v *VM) dispatchCall(hash value.Hash, argc int) (bool, error) {
	fn, err := v.unit.Lookup(hash)
	if err != nil {
		return false, v.dispatchContextCall(hash, argc)
	}
	return v.dispatchUnitFn(fn, hash, argc)
}

func (v *VM) dispatchContextCall(hash value.Hash, argc int) error {
	h, ok := v.ctx.Lookup(hash)
	if !ok {
		return errMissingFunction(hash)
	}
	return h(v.stack, argc)
}

// dispatchUnitFn executes a resolved function-table entry: pushing a
// frame (Immediate), spawning a child VM (Async/Generator/Stream), or
// synthesizing a tagged-record constructor (Tuple/TupleVariant).
func (v *VM) dispatchUnitFn(fn bytecode.UnitFn, hash value.Hash, argc int) (bool, error) {
	switch fn.Kind {
	case bytecode.UnitFnOffset:
		if argc != fn.ArgCount {
			return false, errBadArgumentCount(argc, fn.ArgCount)
		}
		switch fn.Call {
		case bytecode.CallImmediate:
			v.pushFrame(fn.IP, argc, hash)
			return true, nil
		case bytecode.CallAsync:
			return false, v.spawnChild(fn, argc, hash, value.TFuture)
		case bytecode.CallGenerator:
			return false, v.spawnChild(fn, argc, hash, value.TGenerator)
		case bytecode.CallStream:
			return false, v.spawnChild(fn, argc, hash, value.TStream)
		}
		return false, nil

	case bytecode.UnitFnTuple:
		fields, err := v.stack.DrainStackTop(argc)
		if err != nil {
			return false, err
		}
		v.stack.Push(value.NewTypedTuple(value.TypedTuple{Hash: hash, Fields: fields}))
		return false, nil

	case bytecode.UnitFnTupleVariant:
		fields, err := v.stack.DrainStackTop(argc)
		if err != nil {
			return false, err
		}
		v.stack.Push(value.NewTupleVariant(value.TupleVariant{EnumHash: fn.EnumHash, Hash: hash, Fields: fields}))
		return false, nil
	}
	return false, nil
}

// callInstance implements CallInstance(hash, argc): the receiver sits
// argc slots below the top (counts exclude the receiver itself, per
// spec.md §4.5.2 — "Counts include the receiver" refers to the
// resolved call's argc, which is argc+1).
func (v *VM) callInstance(hash value.Hash, argc int) (bool, error) {
	receiver, err := v.stack.AtOffsetFromTop(argc)
	if err != nil {
		return false, err
	}
	instHash := v.instanceCache.resolve(receiver.Type(), hash)
	total := argc + 1

	if fn, lookupErr := v.unit.Lookup(instHash); lookupErr == nil {
		return v.dispatchUnitFn(fn, instHash, total)
	}
	if h, ok := v.ctx.Lookup(instHash); ok {
		return false, h(v.stack, total)
	}
	return false, errMissingInstanceFunction(receiver.Type(), hash)
}

// callFn implements CallFn(argc): pops a Function or Type(hash) value
// and dispatches accordingly.
func (v *VM) callFn(argc int) (bool, error) {
	fnVal, err := v.stack.Pop()
	if err != nil {
		return false, err
	}
	switch fnVal.Type() {
	case value.TType:
		return v.dispatchCall(fnVal.AsType(), argc)
	case value.TFunction:
		cell, ok := value.FunctionData[FunctionValue](fnVal)
		if !ok {
			return false, errUnsupportedCallFn(fnVal.Type())
		}
		fv, berr := readShared(cell)
		if berr != nil {
			return false, berr
		}
		for _, e := range fv.Env {
			v.stack.Push(e)
		}
		return v.dispatchCall(fv.Hash, argc+len(fv.Env))
	default:
		return false, errUnsupportedCallFn(fnVal.Type())
	}
}

// dispatchProtocol invokes the instance function for protocol on
// receiver with extra args not yet on the stack. It pushes receiver
// and args itself. ok is false if no handler exists at all for this
// (protocol, receiver type) pair, letting the caller raise its own
// more specific error (UnsupportedBinaryOperation, UnsupportedAwait,
// ...). jumped must be propagated to the caller's *jumped when a
// bytecode-defined handler was entered as a call frame — the eventual
// Return leaves exactly one result on the stack, in the slot the
// caller's own opcode would have occupied.
func (v *VM) dispatchProtocol(protocol value.Hash, receiver value.Value, args ...value.Value) (jumped bool, ok bool, err error) {
	instHash := v.instanceCache.resolve(receiver.Type(), protocol)
	argc := 1 + len(args)

	if fn, lookupErr := v.unit.Lookup(instHash); lookupErr == nil {
		v.stack.Push(receiver)
		for _, a := range args {
			v.stack.Push(a)
		}
		j, derr := v.dispatchUnitFn(fn, instHash, argc)
		return j, true, derr
	}
	if h, hok := v.ctx.Lookup(instHash); hok {
		v.stack.Push(receiver)
		for _, a := range args {
			v.stack.Push(a)
		}
		return false, true, h(v.stack, argc)
	}
	return false, false, nil
}

// callProtocolSync is the uniform protocol-fallback entry point used by
// every opcode that needs its result immediately (arithmetic, bitwise,
// index ops, string display, into_future): it invokes dispatchProtocol
// and, if that jumped into a bytecode-defined instance function rather
// than a synchronous Context handler, drives this same VM's dispatch
// loop inline until that one call frame returns, handing back its
// single result. This makes "call a protocol and get a value back"
// safe to use from the middle of another opcode's own implementation,
// at the cost of assuming the callee does not itself suspend (a
// Display/operator overload awaiting or yielding mid-call surfaces as
// UnsupportedAwait rather than propagating a halt outward).
func (v *VM) callProtocolSync(protocol value.Hash, receiver value.Value, args ...value.Value) (value.Value, bool, error) {
	depthBefore := len(v.frames)
	ipBefore := v.ip
	jumped, ok, err := v.dispatchProtocol(protocol, receiver, args...)
	if err != nil || !ok {
		return value.Value{}, ok, err
	}
	if !jumped {
		rv, perr := v.stack.Pop()
		return rv, true, perr
	}
	for len(v.frames) > depthBefore {
		inst, ierr := v.unit.InstructionAt(v.ip)
		if ierr != nil {
			return value.Value{}, true, ierr
		}
		j := false
		halted, halt, eerr := v.execute(inst, &j)
		if eerr != nil {
			return value.Value{}, true, eerr
		}
		// A callee entered from frame-less code exits the VM when it
		// returns; its result is already on the stack.
		if halted && halt.Reason == HaltExited && len(v.frames) <= depthBefore {
			break
		}
		if !j {
			v.ip++
		}
		if halted {
			return value.Value{}, true, errUnsupportedAwait()
		}
	}
	// The callee's return left ip at the frame's ReturnIP; put it back
	// on the calling opcode so RunFor's own advance lands after it.
	v.ip = ipBefore
	rv, perr := v.stack.Pop()
	return rv, true, perr
}
