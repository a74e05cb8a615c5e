package vm

import "github.com/kristofer/weave/pkg/value"

// HaltReason discriminates why run_for returned control to its driver
// without an error (spec.md §4.5).
type HaltReason int

const (
	// HaltExited means the outermost call frame returned; the VM has
	// nothing left to run without a fresh Call.
	HaltExited HaltReason = iota
	// HaltAwaited means an Await or Select instruction suspended the
	// VM on one or more Futures.
	HaltAwaited
	// HaltYielded means a Yield/YieldUnit instruction suspended the VM;
	// resuming re-enters run_for at the following instruction.
	HaltYielded
	// HaltLimited means the instruction budget passed to run_for was
	// exhausted before any of the above occurred.
	HaltLimited
)

func (h HaltReason) String() string {
	switch h {
	case HaltExited:
		return "exited"
	case HaltAwaited:
		return "awaited"
	case HaltYielded:
		return "yielded"
	case HaltLimited:
		return "limited"
	default:
		return "unknown"
	}
}

// SelectBranch is one arm of an outstanding Select(n), paired with the
// index the driver must report back via JumpIfBranch dispatch once it
// resolves.
type SelectBranch struct {
	Index  int
	Future value.Value
}

// Halt is the non-error result of run_for: why control returned, plus
// whatever payload that reason carries.
type Halt struct {
	Reason HaltReason

	// Populated when Reason == HaltAwaited and the suspension was a
	// plain Await: the single Future being waited on.
	Future value.Value

	// Populated when Reason == HaltAwaited and the suspension was a
	// Select(n): the still-outstanding branches, in original order.
	Select []SelectBranch

	// Populated when Reason == HaltExited (the outermost frame's return
	// value) or HaltYielded (the value passed to Yield/YieldUnit).
	Value value.Value
}

// ResumeSelect is how a driver hands a resolved select branch back to
// the VM: the branch index that completed and the Value it produced.
// The VM pushes value first, then branch (as an Integer) on top,
// matching the JumpIfBranch contract in spec.md §4.5.3/§4.5.4.
type ResumeSelect struct {
	Branch int
	Value  value.Value
}
