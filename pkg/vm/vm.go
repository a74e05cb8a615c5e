// Package vm implements the instruction interpreter: call frames, the
// operand stack, instance/protocol dispatch, and the call/suspension
// protocol (spec.md §4.5). This is the heart of the system — the
// teacher's vm.Run dispatch switch, generalized from ~20 smog opcodes
// to the full instruction set a stack VM with closures, generators,
// streams and futures requires.
package vm

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

// VM interprets one Unit's instructions against one Context of
// host-provided handlers. A VM is not safe for concurrent use — it is
// single-threaded by design (spec.md §5); concurrency comes from
// spawning a child VM per async/generator/stream call.
type VM struct {
	unit *bytecode.Unit
	ctx  *context.Context

	stack  *Stack
	ip     int
	frames []CallFrame

	instanceCache *instanceCache

	defaultBudget int
	debugLog      bool

	id uuid.UUID

	// pendingSelect remembers the full branch set of an outstanding
	// Select so ResumeSelect can validate the branch index the driver
	// reports back.
	pendingSelect []SelectBranch

	// started tracks whether a Generator/Stream child VM has executed
	// its first instruction yet, distinguishing an initial Run() from a
	// subsequent Resume() when driven via DriveGenerator/DriveStream.
	started bool
}

// New constructs a VM bound to unit and ctx. Either may be shared
// across many VMs (including child VMs spawned for async/generator/
// stream calls): both are treated as immutable once built.
func New(unit *bytecode.Unit, ctx *context.Context, opts ...Option) *VM {
	v := &VM{
		unit:          unit,
		ctx:           ctx,
		stack:         NewStack(),
		instanceCache: newInstanceCache(),
		id:            uuid.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Stack exposes the operand stack, primarily so a driver can push
// initial arguments or inspect the result of a completed Call.
func (v *VM) Stack() *Stack { return v.stack }

// Call sets up a new top-level call to hash with args already known
// (they are pushed for the callee), mirroring what an Offset/Immediate
// dispatch does internally for a nested Call instruction, but usable
// by an external driver that has not compiled a CALL instruction of
// its own (spec.md §2: "a caller pushes arguments onto a Stack,
// invokes VM.call(name, args)").
func (v *VM) Call(hash value.Hash, args []value.Value) error {
	v.stack.Extend(args)
	return v.dispatchCall(hash, len(args))
}

// RunFor executes instructions until a Halt condition is reached or
// limit instructions have executed (if limit is non-nil). This is
// run_for from spec.md §4.5.
func (v *VM) RunFor(limit *int) (Halt, error) {
	for {
		if limit != nil {
			if *limit <= 0 {
				return Halt{Reason: HaltLimited}, nil
			}
			*limit--
		}

		inst, err := v.unit.InstructionAt(v.ip)
		if err != nil {
			return Halt{}, err
		}

		if v.debugLog {
			log.Debug().Str("vm", v.id.String()).Int("ip", v.ip).Str("op", inst.Op.String()).Msg("step")
		}

		jumped := false
		halted, halt, err := v.execute(inst, &jumped)
		if err != nil {
			return Halt{}, err
		}
		// IP advances even on a halt (Await/Select/Yield): resuming must
		// continue at the instruction after the suspension point, not
		// re-execute it.
		if !jumped {
			v.ip++
		}
		if halted {
			return halt, nil
		}
	}
}

// Run executes with the VM's default instruction budget (from
// WithInstructionBudget, or unlimited if never set).
func (v *VM) Run() (Halt, error) {
	if v.defaultBudget <= 0 {
		return v.RunFor(nil)
	}
	budget := v.defaultBudget
	return v.RunFor(&budget)
}

// Resume hands a Yield's or an Await's resolved value back to a
// suspended VM and continues execution.
func (v *VM) Resume(result value.Value) (Halt, error) {
	v.stack.Push(result)
	return v.Run()
}

// ResumeSelect hands a resolved select branch back to a suspended VM:
// the branch's produced value, then its index as an Integer, matching
// the JumpIfBranch contract (spec.md §4.5.3/§4.5.4 — "the driver must
// push the completed future's value and a branch index").
func (v *VM) ResumeSelect(r ResumeSelect) (Halt, error) {
	valid := false
	for _, b := range v.pendingSelect {
		if b.Index == r.Branch {
			valid = true
			break
		}
	}
	if !valid {
		return Halt{}, errBadArgumentCount(r.Branch, -1)
	}
	v.pendingSelect = nil
	v.stack.Push(r.Value)
	v.stack.Push(value.Integer(int64(r.Branch)))
	return v.Run()
}

// pushFrame installs a new CallFrame whose stack_bottom is the current
// stack length minus argc (spec.md §3.6) and sets the next IP.
func (v *VM) pushFrame(target int, argc int, fnHash value.Hash) {
	bottom := v.stack.Len() - argc
	v.frames = append(v.frames, CallFrame{ReturnIP: v.ip + 1, StackBottom: v.stack.StackBottom(), FunctionHash: fnHash})
	v.stack.SwapStackBottom(bottom)
	v.ip = target
	if v.debugLog {
		log.Debug().Str("vm", v.id.String()).Str("fn", fnHash.String()).Int("target", target).Msg("call")
	}
}

// popFrame pops the current call frame, restores the caller's
// stack_bottom and truncates the stack back to the frame's bottom
// before re-pushing ret (spec.md §4.5.5/§3.6). It reports whether a
// caller frame remains to resume (false means the VM has now exited:
// either no frame was ever active, or the one just popped was the last
// one. That holds whether the last frame came from an external Call or
// from a CALL executed by frame-less top-level code; in the latter case
// its ReturnIP is not resumed).
func (v *VM) popFrame(ret value.Value) bool {
	bottom := v.stack.StackBottom()
	v.stack.PopStackTop(bottom)

	if len(v.frames) == 0 {
		v.stack.Push(ret)
		return false
	}

	frame := v.frames[len(v.frames)-1]
	v.frames = v.frames[:len(v.frames)-1]
	v.stack.SwapStackBottom(frame.StackBottom)
	v.stack.Push(ret)

	if len(v.frames) == 0 {
		return false
	}
	v.ip = frame.ReturnIP
	return true
}

// currentFunctionHash reports the Hash of the function the innermost
// active frame belongs to; the zero Hash if no frame is active
// (top-level code).
func (v *VM) currentFunctionHash() value.Hash {
	if len(v.frames) == 0 {
		return 0
	}
	return v.frames[len(v.frames)-1].FunctionHash
}

func (v *VM) stackTrace() []StackFrame {
	out := make([]StackFrame, len(v.frames)+1)
	for i, f := range v.frames {
		out[i] = StackFrame{FunctionHash: f.FunctionHash, IP: v.ip}
	}
	out[len(v.frames)] = StackFrame{FunctionHash: v.currentFunctionHash(), IP: v.ip}
	return out
}
