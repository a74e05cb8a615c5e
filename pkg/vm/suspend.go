package vm

import (
	"github.com/kristofer/weave/pkg/access"
	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/value"
)

// FunctionValue is the payload a Function Value carries: the Hash to
// dispatch (spec.md §4.5.1's Fn/Closure constructors) plus, for a
// closure, the environment tuple captured at construction time.
// CallFn pushes Env after its own explicit arguments, so the captured
// values form the callee's last len(Env) arguments.
type FunctionValue struct {
	Hash value.Hash
	Env  []value.Value
}

// futureState is the opaque payload behind a Future Value: a child VM
// that has not necessarily run yet, plus a memoized result once it has
// (spec.md §5: "Dropping a Future ... cancels the embedded child VM").
type futureState struct {
	child *VM
	done  bool
	value value.Value
	err   error
}

// spawnChild drains argc arguments into a fresh VM sharing this VM's
// Unit and Context, positions it at fn.IP, and pushes the suspendable
// value (Future/Generator/Stream) wrapping it back onto the parent
// stack (spec.md §4.5.2 step 2, §9 "child VMs for suspendable calls").
func (v *VM) spawnChild(fn bytecode.UnitFn, argc int, hash value.Hash, kind value.ValueType) error {
	args, err := v.stack.DrainStackTop(argc)
	if err != nil {
		return err
	}

	child := New(v.unit, v.ctx, WithDebugLogging(v.debugLog))
	child.stack.Extend(args)
	child.stack.SwapStackBottom(0)
	child.ip = fn.IP

	switch kind {
	case value.TFuture:
		cell := access.New(&futureState{child: child})
		v.stack.Push(value.NewFuture(cell))
	case value.TGenerator:
		cell := access.New(child)
		v.stack.Push(value.NewGenerator(cell))
	case value.TStream:
		cell := access.New(child)
		v.stack.Push(value.NewStream(cell))
	}
	_ = hash // retained only for future disassembly/logging use
	return nil
}

// resolveFuture drives fs's child VM synchronously to completion,
// recursively resolving any futures it itself awaits or selects on.
// This makes the weave runtime its own scheduler for synchronous
// resolution; a host that needs real concurrent I/O drives Futures
// itself instead via the Halt returned from Run/Resume.
func resolveFuture(fs *futureState) (value.Value, error) {
	if fs.done {
		return fs.value, fs.err
	}

	halt, err := fs.child.Run()
	for err == nil {
		switch halt.Reason {
		case HaltExited:
			fs.done = true
			fs.value = halt.Value
			return fs.value, nil

		case HaltAwaited:
			if len(halt.Select) > 0 {
				branch := halt.Select[0]
				bv, berr := resolveFutureValue(branch.Future)
				if berr != nil {
					err = berr
					break
				}
				halt, err = fs.child.ResumeSelect(ResumeSelect{Branch: branch.Index, Value: bv})
				continue
			}
			bv, berr := resolveFutureValue(halt.Future)
			if berr != nil {
				err = berr
				break
			}
			halt, err = fs.child.Resume(bv)
			continue

		default:
			err = errUnsupportedAwait()
		}
		break
	}

	fs.done = true
	fs.err = err
	return value.Value{}, err
}

// resolveFutureValue unwraps a Future Value and resolves it.
func resolveFutureValue(fv value.Value) (value.Value, error) {
	cell, ok := value.FutureData[*futureState](fv)
	if !ok {
		return value.Value{}, errUnsupportedAwait()
	}
	fs, err := readShared(cell)
	if err != nil {
		return value.Value{}, err
	}
	return resolveFuture(fs)
}

// AwaitFuture drives a Future Value to completion and returns its
// resolved value, for use by a host driver sitting outside any VM (the
// top-level CLI runner resolving an Awaited halt with nothing left to
// resume into, or a Context handler like std::future::join that needs
// to await a Future passed to it as an ordinary argument).
func AwaitFuture(fv value.Value) (value.Value, error) {
	return resolveFutureValue(fv)
}

// DriveGenerator resumes a Generator Value with input (ignored on the
// first call) and reports its next GeneratorState. This is the Go-side
// driver a host uses in place of bytecode's Yield/resume loop, since a
// Generator escapes to host code rather than being consumed entirely
// within one VM's instructions.
func DriveGenerator(gen value.Value, input value.Value) (value.GeneratorState, error) {
	return driveSuspendedChild(gen, input)
}

// DriveStream is DriveGenerator's counterpart for Stream values. The
// two share an identical push/pull shape in this runtime; a Stream
// additionally permits the driver to keep pulling after an Awaited
// halt by resolving the future itself, which resolveFuture already
// does uniformly for any child VM.
func DriveStream(stream value.Value, input value.Value) (value.GeneratorState, error) {
	return driveSuspendedChild(stream, input)
}

func driveSuspendedChild(v value.Value, input value.Value) (value.GeneratorState, error) {
	cell, ok := value.GeneratorData[*VM](v)
	if !ok {
		cell, ok = value.StreamData[*VM](v)
	}
	if !ok {
		return value.GeneratorState{}, errUnsupportedCallFn(v.Type())
	}
	child, err := readShared(cell)
	if err != nil {
		return value.GeneratorState{}, err
	}

	var halt Halt
	if child.started {
		halt, err = child.Resume(input)
	} else {
		child.started = true
		halt, err = child.Run()
	}
	if err != nil {
		return value.GeneratorState{}, err
	}

	switch halt.Reason {
	case HaltYielded:
		return value.GeneratorState{Complete: false, Value: halt.Value}, nil
	case HaltExited:
		return value.GeneratorState{Complete: true, Value: halt.Value}, nil
	case HaltAwaited:
		bv, berr := resolveFutureValue(halt.Future)
		if berr != nil {
			return value.GeneratorState{}, berr
		}
		halt, err = child.Resume(bv)
		if err != nil {
			return value.GeneratorState{}, err
		}
		if halt.Reason == HaltExited {
			return value.GeneratorState{Complete: true, Value: halt.Value}, nil
		}
		return value.GeneratorState{Complete: false, Value: halt.Value}, nil
	default:
		return value.GeneratorState{}, errBadArgument("generator suspended on instruction budget")
	}
}
