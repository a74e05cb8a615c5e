package vm

import "github.com/kristofer/weave/pkg/value"

// CallFrame is the return IP plus the stack_bottom watermark that
// isolates a callee's operand-stack usage from its caller's (spec.md
// §3.6).
type CallFrame struct {
	ReturnIP    int
	StackBottom int

	// FunctionHash names the function this frame is executing, used
	// only for error StackTrace reporting.
	FunctionHash value.Hash
}
