// Serialization and deserialization for the .wu ("weave unit") binary
// format, the on-disk encoding of a compiled Unit. It plays the same
// role the teacher's .sg format plays for compiled Smog bytecode:
// a cacheable, versioned binary representation so a Unit assembled
// once (by pkg/asm or any other producer) does not need to be
// reassembled from text on every run.
//
// Binary Format Layout:
//
//	[Header]
//	  Magic Number (4 bytes): "WEAV" (0x57454156)
//	  Version (4 bytes): format version, currently 1
//	  Flags (4 bytes): reserved
//
//	[String pool]    Count (4) + for each: length-prefixed UTF-8 bytes
//	[Bytes pool]      Count (4) + for each: length-prefixed raw bytes
//	[Object-key pool] Count (4) + for each: key-count (4) + length-prefixed strings
//	[Function table]  Count (4) + for each, whatever its kind: Hash (8),
//	                   Kind (1), IP (8), Call (1), ArgCount (8),
//	                   TupleHash (8), EnumHash (8)
//	[Instructions]     Count (4) + for each: a record of the opcode and
//	                   every Instruction field in declaration order, each
//	                   at its natural width; Reason is last and
//	                   length-prefixed, so records are not fixed-width
//
// Every pool is dense and 0-indexed; slot numbers in instructions are
// positions into these arrays, exactly as spec.md §6 requires.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kristofer/weave/pkg/value"
)

const (
	// MagicNumber is the file signature for .wu files: "WEAV".
	MagicNumber uint32 = 0x57454156

	// FormatVersion is the current .wu format version.
	FormatVersion uint32 = 1
)

// Write serializes u in the .wu format to w.
func (u *Unit) Write(w io.Writer) error {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, MagicNumber); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.BigEndian, FormatVersion); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(0)); err != nil { // flags
		return err
	}

	if err := writeStringPool(&buf, u.Strings); err != nil {
		return err
	}
	if err := writeBytesPool(&buf, u.Bytes); err != nil {
		return err
	}
	if err := writeObjectKeyPool(&buf, u.ObjectKeys); err != nil {
		return err
	}
	if err := writeFunctionTable(&buf, u.Functions); err != nil {
		return err
	}
	if err := writeInstructions(&buf, u.Instructions); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Read deserializes a Unit in the .wu format from r.
func Read(r io.Reader) (*Unit, error) {
	var magic, version, flags uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("bytecode: read magic: %w", err)
	}
	if magic != MagicNumber {
		return nil, fmt.Errorf("bytecode: bad magic number 0x%08x", magic)
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("bytecode: read version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", version)
	}
	if err := binary.Read(r, binary.BigEndian, &flags); err != nil {
		return nil, fmt.Errorf("bytecode: read flags: %w", err)
	}

	u := NewUnit()

	strs, err := readStringPool(r)
	if err != nil {
		return nil, err
	}
	u.Strings = strs

	blobs, err := readBytesPool(r)
	if err != nil {
		return nil, err
	}
	u.Bytes = blobs

	keys, err := readObjectKeyPool(r)
	if err != nil {
		return nil, err
	}
	u.ObjectKeys = keys

	fns, err := readFunctionTable(r)
	if err != nil {
		return nil, err
	}
	u.Functions = fns

	insts, err := readInstructions(r)
	if err != nil {
		return nil, err
	}
	u.Instructions = insts

	return u, nil
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeStringPool(w io.Writer, strs []string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(strs))); err != nil {
		return err
	}
	for _, s := range strs {
		if err := writeLenPrefixed(w, []byte(s)); err != nil {
			return err
		}
	}
	return nil
}

func readStringPool(r io.Reader) ([]string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		b, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func writeBytesPool(w io.Writer, blobs [][]byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(blobs))); err != nil {
		return err
	}
	for _, b := range blobs {
		if err := writeLenPrefixed(w, b); err != nil {
			return err
		}
	}
	return nil
}

func readBytesPool(r io.Reader) ([][]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	out := make([][]byte, n)
	for i := range out {
		b, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func writeObjectKeyPool(w io.Writer, keysets [][]string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(keysets))); err != nil {
		return err
	}
	for _, keys := range keysets {
		if err := binary.Write(w, binary.BigEndian, uint32(len(keys))); err != nil {
			return err
		}
		for _, k := range keys {
			if err := writeLenPrefixed(w, []byte(k)); err != nil {
				return err
			}
		}
	}
	return nil
}

func readObjectKeyPool(r io.Reader) ([][]string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	out := make([][]string, n)
	for i := range out {
		var kn uint32
		if err := binary.Read(r, binary.BigEndian, &kn); err != nil {
			return nil, err
		}
		keys := make([]string, kn)
		for j := range keys {
			b, err := readLenPrefixed(r)
			if err != nil {
				return nil, err
			}
			keys[j] = string(b)
		}
		out[i] = keys
	}
	return out, nil
}

func writeFunctionTable(w io.Writer, fns map[value.Hash]UnitFn) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(fns))); err != nil {
		return err
	}
	for h, fn := range fns {
		if err := binary.Write(w, binary.BigEndian, uint64(h)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, byte(fn.Kind)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int64(fn.IP)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, byte(fn.Call)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int64(fn.ArgCount)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int64(fn.TupleHash)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint64(fn.EnumHash)); err != nil {
			return err
		}
	}
	return nil
}

func readFunctionTable(r io.Reader) (map[value.Hash]UnitFn, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	out := make(map[value.Hash]UnitFn, n)
	for i := uint32(0); i < n; i++ {
		var h uint64
		if err := binary.Read(r, binary.BigEndian, &h); err != nil {
			return nil, err
		}
		var kind, call byte
		var ip, argc, tupleHash int64
		var enumHash uint64
		if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &ip); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &call); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &argc); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &tupleHash); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &enumHash); err != nil {
			return nil, err
		}
		out[value.Hash(h)] = UnitFn{
			Kind:      UnitFnKind(kind),
			IP:        int(ip),
			Call:      CallKind(call),
			ArgCount:  int(argc),
			TupleHash: int(tupleHash),
			EnumHash:  value.Hash(enumHash),
		}
	}
	return out, nil
}

// writeInstructions and readInstructions serialize every Instruction
// field for every instruction, regardless of which opcode it is —
// simpler and more robust to opcode-set growth than a per-opcode
// variable layout, at the cost of a few wasted bytes per instruction.
func writeInstructions(w io.Writer, insts []Instruction) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(insts))); err != nil {
		return err
	}
	for _, in := range insts {
		fields := []any{
			byte(in.Op), in.Bool, in.Int, in.Float, in.Char, in.Byte,
			int64(in.Slot), uint64(in.Hash), int64(in.Offset), int64(in.N),
			int64(in.Index), int64(in.Target), in.Branch, int64(in.SizeHint),
			int64(in.Check.Kind), int64(in.Check.Arm), uint64(in.Check.Hash),
			in.Exact, int64(in.ArgCount), uint64(in.EnumHash),
		}
		for _, f := range fields {
			if err := binary.Write(w, binary.BigEndian, f); err != nil {
				return err
			}
		}
		if err := writeLenPrefixed(w, []byte(in.Reason)); err != nil {
			return err
		}
	}
	return nil
}

func readInstructions(r io.Reader) ([]Instruction, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	out := make([]Instruction, n)
	for i := range out {
		var op byte
		var b bool
		var iv int64
		var fv float64
		var ch rune
		var by byte
		var slot, offset, nn, index, target int64
		var h uint64
		var branch int64
		var sizeHint int64
		var checkKind, checkArm int64
		var checkHash uint64
		var exact bool
		var argc int64
		var enumHash uint64

		fields := []any{
			&op, &b, &iv, &fv, &ch, &by, &slot, &h, &offset, &nn,
			&index, &target, &branch, &sizeHint,
			&checkKind, &checkArm, &checkHash, &exact, &argc, &enumHash,
		}
		for _, f := range fields {
			if err := binary.Read(r, binary.BigEndian, f); err != nil {
				return nil, err
			}
		}
		reason, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}

		out[i] = Instruction{
			Op:       Opcode(op),
			Bool:     b,
			Int:      iv,
			Float:    fv,
			Char:     ch,
			Byte:     by,
			Slot:     int(slot),
			Hash:     value.Hash(h),
			Offset:   int(offset),
			N:        int(nn),
			Index:    int(index),
			Target:   int(target),
			Branch:   branch,
			SizeHint: int(sizeHint),
			Check: TypeCheck{
				Kind: TypeCheckKind(checkKind),
				Arm:  int(checkArm),
				Hash: value.Hash(checkHash),
			},
			Exact:    exact,
			ArgCount: int(argc),
			EnumHash: value.Hash(enumHash),
			Reason:   string(reason),
		}
	}
	return out, nil
}
