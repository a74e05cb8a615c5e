// Error handling: a closed set of structured error kinds (spec.md §7)
// wrapped in a single *Error type, in the spirit of the teacher's
// RuntimeError+StackFrame pairing but generalized from a free-text
// message builder to typed kinds a host can switch on.
package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/kristofer/weave/pkg/value"
)

// ErrorKind is the closed set of structured error kinds from spec.md §7.
type ErrorKind int

const (
	ErrStackUnderflowKind ErrorKind = iota
	ErrIPOutOfBoundsKind
	ErrMissingFunctionKind
	ErrMissingInstanceFunctionKind
	ErrBadArgumentCountKind
	ErrMissingStaticObjectKeysKind
	ErrObjectIndexMissingKind
	ErrMissingFieldKind
	ErrMissingIndexKind
	ErrUnsupportedBinaryOperationKind
	ErrUnsupportedUnaryOperationKind
	ErrUnsupportedIndexGetKind
	ErrUnsupportedIndexSetKind
	ErrUnsupportedTupleIndexGetKind
	ErrUnsupportedTupleIndexSetKind
	ErrUnsupportedObjectSlotIndexGetKind
	ErrUnsupportedAwaitKind
	ErrUnsupportedUnwrapNoneKind
	ErrUnsupportedUnwrapErrKind
	ErrUnsupportedIsKind
	ErrUnsupportedCallFnKind
	ErrUnsupportedIsValueOperandKind
	ErrMissingProtocolKind
	ErrFormatErrorKind
	ErrOverflowKind
	ErrUnderflowKind
	ErrDivideByZeroKind
	ErrNotAccessibleRefKind
	ErrNotAccessibleMutKind
	ErrPanicKind
	ErrBadArgumentKind
)

var errorKindNames = [...]string{
	ErrStackUnderflowKind:                "StackUnderflow",
	ErrIPOutOfBoundsKind:                 "IpOutOfBounds",
	ErrMissingFunctionKind:               "MissingFunction",
	ErrMissingInstanceFunctionKind:       "MissingInstanceFunction",
	ErrBadArgumentCountKind:              "BadArgumentCount",
	ErrMissingStaticObjectKeysKind:       "MissingStaticObjectKeys",
	ErrObjectIndexMissingKind:            "ObjectIndexMissing",
	ErrMissingFieldKind:                  "MissingField",
	ErrMissingIndexKind:                  "MissingIndex",
	ErrUnsupportedBinaryOperationKind:    "UnsupportedBinaryOperation",
	ErrUnsupportedUnaryOperationKind:     "UnsupportedUnaryOperation",
	ErrUnsupportedIndexGetKind:           "UnsupportedIndexGet",
	ErrUnsupportedIndexSetKind:           "UnsupportedIndexSet",
	ErrUnsupportedTupleIndexGetKind:      "UnsupportedTupleIndexGet",
	ErrUnsupportedTupleIndexSetKind:      "UnsupportedTupleIndexSet",
	ErrUnsupportedObjectSlotIndexGetKind: "UnsupportedObjectSlotIndexGet",
	ErrUnsupportedAwaitKind:              "UnsupportedAwait",
	ErrUnsupportedUnwrapNoneKind:         "UnsupportedUnwrapNone",
	ErrUnsupportedUnwrapErrKind:          "UnsupportedUnwrapErr",
	ErrUnsupportedIsKind:                 "UnsupportedIs",
	ErrUnsupportedCallFnKind:             "UnsupportedCallFn",
	ErrUnsupportedIsValueOperandKind:     "UnsupportedIsValueOperand",
	ErrMissingProtocolKind:               "MissingProtocol",
	ErrFormatErrorKind:                   "FormatError",
	ErrOverflowKind:                      "Overflow",
	ErrUnderflowKind:                     "Underflow",
	ErrDivideByZeroKind:                  "DivideByZero",
	ErrNotAccessibleRefKind:              "NotAccessibleRef",
	ErrNotAccessibleMutKind:              "NotAccessibleMut",
	ErrPanicKind:                         "Panic",
	ErrBadArgumentKind:                   "BadArgument",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) && errorKindNames[k] != "" {
		return errorKindNames[k]
	}
	return "Unknown"
}

// StackFrame is one frame of a VM call stack: a function and an IP
// within it. There is no source position (spec.md excludes source
// parsing entirely), unlike the teacher's SourceLine/SourceCol.
type StackFrame struct {
	FunctionHash value.Hash
	IP           int
}

// Error is the single error type the interpreter raises. Kind is the
// closed spec.md §7 category; Fields carries whatever structured
// context that kind defines (operand types, a Hash, an index).
// StackTrace is printed by Error() when present; the interpreter's own
// error constructors leave it empty.
type Error struct {
	Kind       ErrorKind
	Message    string
	Fields     map[string]any
	StackTrace []StackFrame
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	for i := len(e.StackTrace) - 1; i >= 0; i-- {
		f := e.StackTrace[i]
		fmt.Fprintf(&b, "\n  at %s [ip=%d]", f.FunctionHash, f.IP)
	}
	return b.String()
}

// newError constructs an *Error, wrapping it with errors.WithStack so
// callers that need a Go-level stack trace (errors.StackTrace) can
// retrieve one. It does not fill Error's own StackTrace field with VM
// call frames.
func newError(kind ErrorKind, msg string, fields map[string]any) error {
	return errors.WithStack(&Error{Kind: kind, Message: msg, Fields: fields})
}

func errOverflow(op string) error {
	return newError(ErrOverflowKind, fmt.Sprintf("integer overflow in %s", op), nil)
}

func errUnderflow(op string) error {
	return newError(ErrUnderflowKind, fmt.Sprintf("integer underflow in %s", op), nil)
}

func errDivideByZero(op string) error {
	return newError(ErrDivideByZeroKind, fmt.Sprintf("division by zero in %s", op), nil)
}

func errUnsupportedBinary(op string, lhs, rhs value.ValueType) error {
	return newError(ErrUnsupportedBinaryOperationKind,
		fmt.Sprintf("unsupported binary operation %s(%s, %s)", op, lhs, rhs),
		map[string]any{"op": op, "lhs": lhs, "rhs": rhs})
}

func errUnsupportedUnary(op string, operand value.ValueType) error {
	return newError(ErrUnsupportedUnaryOperationKind,
		fmt.Sprintf("unsupported unary operation %s(%s)", op, operand),
		map[string]any{"op": op, "operand": operand})
}

func errMissingFunction(h value.Hash) error {
	return newError(ErrMissingFunctionKind, fmt.Sprintf("missing function %s", h), map[string]any{"hash": h})
}

func errMissingInstanceFunction(vt value.ValueType, h value.Hash) error {
	return newError(ErrMissingInstanceFunctionKind,
		fmt.Sprintf("missing instance function %s on %s", h, vt),
		map[string]any{"hash": h, "receiver": vt})
}

func errBadArgumentCount(got, want int) error {
	return newError(ErrBadArgumentCountKind,
		fmt.Sprintf("bad argument count: got %d, want %d", got, want),
		map[string]any{"got": got, "want": want})
}

func errMissingProtocol(protocol value.Hash, receiver value.ValueType) error {
	return newError(ErrMissingProtocolKind,
		fmt.Sprintf("missing protocol %s on %s", protocol, receiver),
		map[string]any{"protocol": protocol, "receiver": receiver})
}

func errUnsupportedIndexGet(receiver value.ValueType) error {
	return newError(ErrUnsupportedIndexGetKind,
		fmt.Sprintf("unsupported index get on %s", receiver), map[string]any{"receiver": receiver})
}

func errUnsupportedIndexSet(receiver value.ValueType) error {
	return newError(ErrUnsupportedIndexSetKind,
		fmt.Sprintf("unsupported index set on %s", receiver), map[string]any{"receiver": receiver})
}

func errUnsupportedTupleIndexGet(receiver value.ValueType) error {
	return newError(ErrUnsupportedTupleIndexGetKind,
		fmt.Sprintf("unsupported tuple index get on %s", receiver), map[string]any{"receiver": receiver})
}

func errUnsupportedTupleIndexSet(receiver value.ValueType) error {
	return newError(ErrUnsupportedTupleIndexSetKind,
		fmt.Sprintf("unsupported tuple index set on %s", receiver), map[string]any{"receiver": receiver})
}

func errUnsupportedObjectSlotIndexGet(receiver value.ValueType) error {
	return newError(ErrUnsupportedObjectSlotIndexGetKind,
		fmt.Sprintf("unsupported object slot index get on %s", receiver), map[string]any{"receiver": receiver})
}

func errMissingField(target value.ValueType, field string) error {
	return newError(ErrMissingFieldKind,
		fmt.Sprintf("missing field %q on %s", field, target),
		map[string]any{"target": target, "field": field})
}

func errMissingIndex(target value.ValueType, index int64) error {
	return newError(ErrMissingIndexKind,
		fmt.Sprintf("missing index %d on %s", index, target),
		map[string]any{"target": target, "index": index})
}

func errMissingStaticObjectKeys(slot int) error {
	return newError(ErrMissingStaticObjectKeysKind,
		fmt.Sprintf("missing static object keys at slot %d", slot), map[string]any{"slot": slot})
}

func errObjectIndexMissing(slot int) error {
	return newError(ErrObjectIndexMissingKind,
		fmt.Sprintf("object index missing at slot %d", slot), map[string]any{"slot": slot})
}

func errUnsupportedAwait() error {
	return newError(ErrUnsupportedAwaitKind, "value is not awaitable", nil)
}

func errUnsupportedUnwrapNone() error {
	return newError(ErrUnsupportedUnwrapNoneKind, "unwrap called on None", nil)
}

func errUnsupportedUnwrapErr(inner value.Value) error {
	return newError(ErrUnsupportedUnwrapErrKind, "unwrap called on Err", map[string]any{"inner": inner.TypeInfo()})
}

func errUnsupportedIs(operand value.ValueType) error {
	return newError(ErrUnsupportedIsKind,
		fmt.Sprintf("unsupported is-check operand %s", operand), map[string]any{"operand": operand})
}

func errUnsupportedCallFn(operand value.ValueType) error {
	return newError(ErrUnsupportedCallFnKind,
		fmt.Sprintf("value of type %s is not callable", operand), map[string]any{"operand": operand})
}

func errUnsupportedIsValueOperand(operand value.ValueType) error {
	return newError(ErrUnsupportedIsValueOperandKind,
		fmt.Sprintf("is_value operand must be Result or Option, got %s", operand),
		map[string]any{"operand": operand})
}

func errFormatError(cause error) error {
	return newError(ErrFormatErrorKind, fmt.Sprintf("format error: %v", cause), nil)
}

func errNotAccessibleRef(cause error) error {
	return newError(ErrNotAccessibleRefKind, cause.Error(), nil)
}

func errNotAccessibleMut(cause error) error {
	return newError(ErrNotAccessibleMutKind, cause.Error(), nil)
}

func errPanic(reason string) error {
	return newError(ErrPanicKind, reason, map[string]any{"reason": reason})
}

func errBadArgument(msg string) error {
	return newError(ErrBadArgumentKind, msg, nil)
}
