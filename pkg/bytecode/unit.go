package bytecode

import (
	"fmt"

	"github.com/kristofer/weave/pkg/value"
)

// CallKind selects one of the four calling conventions of spec.md §1/§4.5.2
// for an Offset function-table entry.
type CallKind int

const (
	// CallImmediate pushes a call frame in the current VM.
	CallImmediate CallKind = iota
	// CallAsync spawns a child VM producing a Future.
	CallAsync
	// CallGenerator spawns a child VM producing a Generator.
	CallGenerator
	// CallStream spawns a child VM producing a Stream.
	CallStream
)

func (k CallKind) String() string {
	switch k {
	case CallImmediate:
		return "immediate"
	case CallAsync:
		return "async"
	case CallGenerator:
		return "generator"
	case CallStream:
		return "stream"
	default:
		return "unknown"
	}
}

// UnitFnKind discriminates the three shapes a function-table entry can
// take (spec.md §3.4).
type UnitFnKind int

const (
	UnitFnOffset UnitFnKind = iota
	UnitFnTuple
	UnitFnTupleVariant
)

// UnitFn is a function-table entry: an executable offset into the
// instruction array, or a tuple/tuple-variant constructor synthesized
// entirely from argument count (no instructions to run).
type UnitFn struct {
	Kind UnitFnKind

	// UnitFnOffset
	IP       int
	Call     CallKind
	ArgCount int

	// UnitFnTuple / UnitFnTupleVariant
	TupleHash int // redundant with the map key; only the .wu format reads and writes it
	EnumHash  value.Hash
}

// Unit is the immutable compiled program the VM interprets: an
// instruction array, a function table keyed by Hash, and the constant
// pools instructions reference by slot (spec.md §3.4).
type Unit struct {
	Instructions []Instruction
	Functions    map[value.Hash]UnitFn

	Strings    []string
	Bytes      [][]byte
	ObjectKeys [][]string
}

// NewUnit constructs an empty, mutable-during-assembly Unit. Once
// handed to a VM it is treated as read-only: nothing in pkg/vm ever
// mutates a Unit's slices or map.
func NewUnit() *Unit {
	return &Unit{Functions: make(map[value.Hash]UnitFn)}
}

// ErrMissingFunction is returned by Lookup when no function-table entry
// exists for the given hash.
type ErrMissingFunction struct{ Hash value.Hash }

func (e *ErrMissingFunction) Error() string {
	return fmt.Sprintf("bytecode: missing function %s", e.Hash)
}

// ErrIPOutOfBounds is returned by InstructionAt for an IP outside the
// instruction array.
type ErrIPOutOfBounds struct{ IP int }

func (e *ErrIPOutOfBounds) Error() string {
	return fmt.Sprintf("bytecode: ip %d out of bounds", e.IP)
}

// ErrMissingPoolSlot is returned by the pool lookup helpers.
type ErrMissingPoolSlot struct {
	Pool string
	Slot int
}

func (e *ErrMissingPoolSlot) Error() string {
	return fmt.Sprintf("bytecode: missing %s pool slot %d", e.Pool, e.Slot)
}

// Lookup resolves a Hash to its function-table entry.
func (u *Unit) Lookup(h value.Hash) (UnitFn, error) {
	fn, ok := u.Functions[h]
	if !ok {
		return UnitFn{}, &ErrMissingFunction{Hash: h}
	}
	return fn, nil
}

// InstructionAt returns the instruction at ip.
func (u *Unit) InstructionAt(ip int) (Instruction, error) {
	if ip < 0 || ip >= len(u.Instructions) {
		return Instruction{}, &ErrIPOutOfBounds{IP: ip}
	}
	return u.Instructions[ip], nil
}

// LookupString resolves a string-pool slot.
func (u *Unit) LookupString(slot int) (string, error) {
	if slot < 0 || slot >= len(u.Strings) {
		return "", &ErrMissingPoolSlot{Pool: "string", Slot: slot}
	}
	return u.Strings[slot], nil
}

// LookupBytes resolves a bytes-pool slot.
func (u *Unit) LookupBytes(slot int) ([]byte, error) {
	if slot < 0 || slot >= len(u.Bytes) {
		return nil, &ErrMissingPoolSlot{Pool: "bytes", Slot: slot}
	}
	return u.Bytes[slot], nil
}

// LookupObjectKeys resolves an object-key-pool slot: the ordered field
// names a TYPED_OBJECT/VARIANT_OBJECT/OBJECT constructor assigns to the
// values it pops.
func (u *Unit) LookupObjectKeys(slot int) ([]string, error) {
	if slot < 0 || slot >= len(u.ObjectKeys) {
		return nil, &ErrMissingPoolSlot{Pool: "object-keys", Slot: slot}
	}
	return u.ObjectKeys[slot], nil
}

// AddString interns s, returning its slot. Used by pkg/asm while
// assembling a Unit.
func (u *Unit) AddString(s string) int {
	u.Strings = append(u.Strings, s)
	return len(u.Strings) - 1
}

// AddBytes interns b, returning its slot.
func (u *Unit) AddBytes(b []byte) int {
	u.Bytes = append(u.Bytes, b)
	return len(u.Bytes) - 1
}

// AddObjectKeys interns an ordered key list, returning its slot.
func (u *Unit) AddObjectKeys(keys []string) int {
	u.ObjectKeys = append(u.ObjectKeys, keys)
	return len(u.ObjectKeys) - 1
}
