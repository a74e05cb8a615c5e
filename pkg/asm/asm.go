// Package asm implements a line-oriented textual assembler that
// produces a bytecode.Unit directly, one mnemonic per line. It takes
// over the role the teacher's pkg/compiler played (walking a parsed
// program and appending bytecode.Instruction values to a growing
// slice) without a source-language front end in front of it: callers
// write (or generate) assembly text naming opcodes and their operands
// directly, since the language surface that would normally produce
// this text is out of scope here.
package asm

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/value"
)

// Assembler accumulates instructions, labels, and function-table
// entries before producing a finished Unit, mirroring the teacher's
// Compiler's instructions/constants/symbols accumulator fields.
type Assembler struct {
	unit   *bytecode.Unit
	labels map[string]int

	// jumpFixups records every instruction whose Target/Branch field
	// names a label rather than a resolved offset, patched in finish.
	jumpFixups []jumpFixup
	// fnFixups records function-table entries awaiting their IP.
	fnFixups []fnFixup
}

type jumpFixup struct {
	instructionIndex int
	label            string
}

type fnFixup struct {
	hash  value.Hash
	fn    bytecode.UnitFn
	label string
}

// New constructs an empty Assembler.
func New() *Assembler {
	return &Assembler{
		unit:   bytecode.NewUnit(),
		labels: make(map[string]int),
	}
}

// Assemble parses src line by line and returns the finished, validated
// Unit. Each non-blank, non-comment line is a label ("name:"), a
// function directive ("fn name offset=label call=kind argc=n"), or an
// instruction ("MNEMONIC arg1 arg2 ..."). Comments start with ';'.
func Assemble(src string) (*bytecode.Unit, error) {
	a := New()
	if err := a.load(src); err != nil {
		return nil, err
	}
	return a.finish()
}

func (a *Assembler) load(src string) error {
	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "fn "):
			if err := a.directive(line, lineNo); err != nil {
				return err
			}
		case strings.HasSuffix(line, ":"):
			a.labels[strings.TrimSuffix(line, ":")] = len(a.unit.Instructions)
		default:
			if err := a.instruction(line, lineNo); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

// directive handles "fn <path> offset=<label> call=<kind> argc=<n>",
// registering a function-table entry keyed by the hash of path (the
// same fully-qualified-name hashing scheme value.HashString uses
// everywhere else in this module).
func (a *Assembler) directive(line string, lineNo int) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("asm: line %d: malformed fn directive", lineNo)
	}
	path := fields[1]
	fn := bytecode.UnitFn{Kind: bytecode.UnitFnOffset, Call: bytecode.CallImmediate}
	var label string
	for _, kv := range fields[2:] {
		k, val, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("asm: line %d: malformed fn field %q", lineNo, kv)
		}
		switch k {
		case "offset":
			label = val
		case "argc":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("asm: line %d: bad argc: %w", lineNo, err)
			}
			fn.ArgCount = n
		case "call":
			kind, err := parseCallKind(val)
			if err != nil {
				return fmt.Errorf("asm: line %d: %w", lineNo, err)
			}
			fn.Call = kind
		case "enum":
			h, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return fmt.Errorf("asm: line %d: bad enum hash: %w", lineNo, err)
			}
			fn.EnumHash = value.Hash(h)
		case "kind":
			switch val {
			case "tuple":
				fn.Kind = bytecode.UnitFnTuple
			case "tuplevariant":
				fn.Kind = bytecode.UnitFnTupleVariant
			case "offset":
				fn.Kind = bytecode.UnitFnOffset
			default:
				return fmt.Errorf("asm: line %d: unknown fn kind %q", lineNo, val)
			}
		default:
			return fmt.Errorf("asm: line %d: unknown fn field %q", lineNo, k)
		}
	}
	if label == "" && fn.Kind == bytecode.UnitFnOffset {
		return fmt.Errorf("asm: line %d: fn directive missing offset=<label>", lineNo)
	}
	h := value.HashString(path)
	if label != "" {
		a.fnFixups = append(a.fnFixups, fnFixup{hash: h, fn: fn, label: label})
	} else {
		a.unit.Functions[h] = fn
	}
	return nil
}

func parseCallKind(s string) (bytecode.CallKind, error) {
	switch s {
	case "immediate":
		return bytecode.CallImmediate, nil
	case "async":
		return bytecode.CallAsync, nil
	case "generator":
		return bytecode.CallGenerator, nil
	case "stream":
		return bytecode.CallStream, nil
	default:
		return 0, fmt.Errorf("unknown call kind %q", s)
	}
}

// emit appends inst to the instruction stream and returns its index.
func (a *Assembler) emit(inst bytecode.Instruction) int {
	a.unit.Instructions = append(a.unit.Instructions, inst)
	return len(a.unit.Instructions) - 1
}

// jumpTo emits inst (whose Target field is set once label resolves)
// and records the fixup.
func (a *Assembler) jumpTo(inst bytecode.Instruction, label string) {
	idx := a.emit(inst)
	a.jumpFixups = append(a.jumpFixups, jumpFixup{instructionIndex: idx, label: label})
}

// finish resolves every pending label reference and validates the
// resulting Unit.
func (a *Assembler) finish() (*bytecode.Unit, error) {
	for _, fx := range a.jumpFixups {
		target, ok := a.labels[fx.label]
		if !ok {
			return nil, fmt.Errorf("asm: undefined label %q", fx.label)
		}
		a.unit.Instructions[fx.instructionIndex].Target = target
	}
	for _, fx := range a.fnFixups {
		target, ok := a.labels[fx.label]
		if !ok {
			return nil, fmt.Errorf("asm: undefined label %q", fx.label)
		}
		fn := fx.fn
		fn.IP = target
		a.unit.Functions[fx.hash] = fn
	}
	if err := a.unit.Validate(); err != nil {
		return nil, err
	}
	return a.unit, nil
}
