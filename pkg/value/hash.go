package value

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Hash is a 64-bit identifier for a type or an item (a function, a
// field getter, a protocol). It is computed deterministically from a
// fully-qualified item path so that a Unit compiled independently of a
// Context still agrees on which native handlers correspond to which
// bytecode function-table entries.
type Hash uint64

// HashString derives a Hash from an arbitrary string path, such as
// "std::string::len" or a mangled "(Type, selector)" pair.
//
// blake2b is used instead of a non-cryptographic hash because it is
// already part of the dependency graph this module draws from
// (Fantom-foundation-Tosca, vybium-starks-vm both pull golang.org/x/crypto)
// and gives a wide, well-distributed digest to truncate from; nothing
// here depends on its cryptographic properties.
func HashString(path string) Hash {
	sum := blake2b.Sum256([]byte(path))
	return Hash(binary.BigEndian.Uint64(sum[:8]))
}

// InstanceFunctionHash derives the Hash used to look up an instance
// function: an item hash scoped to the ValueType of its receiver. Two
// different receiver types can each define their own implementation of
// the same selector (for example "ADD" on Integer vs on a user Object)
// without colliding.
func InstanceFunctionHash(vt ValueType, item Hash) Hash {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("instance:%d:%016x", vt, uint64(item))))
	return Hash(binary.BigEndian.Uint64(sum[:8]))
}

// String renders the hash as a fixed-width hex literal, matching the
// style the teacher uses for other fixed-width debug identifiers.
func (h Hash) String() string {
	return fmt.Sprintf("0x%016x", uint64(h))
}
