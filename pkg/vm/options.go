package vm

import "github.com/kristofer/weave/pkg/value"

// Option configures a VM at construction time, in the teacher's
// functional-options style (vm.New(unit, ctx, opts...)).
type Option func(*VM)

// WithInstructionBudget sets the default instruction limit that Run
// (and so Resume/ResumeSelect) passes to RunFor. Zero (the default)
// means unlimited.
func WithInstructionBudget(n int) Option {
	return func(v *VM) { v.defaultBudget = n }
}

// WithDebugLogging enables per-instruction debug-level zerolog output.
// Off by default; verbose even for small programs, so it is opt-in the
// same way the teacher's debugger is opt-in via EnableDebugger.
func WithDebugLogging(enabled bool) Option {
	return func(v *VM) { v.debugLog = enabled }
}

// WithStackCapacityHint preallocates the operand stack's backing array,
// avoiding reallocation churn for programs known to run deep.
func WithStackCapacityHint(n int) Option {
	return func(v *VM) {
		if n > 0 {
			v.stack.values = make([]value.Value, 0, n)
		}
	}
}
