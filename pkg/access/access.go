// Package access implements the dynamic borrow-tracking cell that backs
// every mutable compound value in the runtime.
//
// The VM is single-threaded, so the access counter does not need to be
// atomic: it exists purely to catch nested misuse within one thread of
// execution, such as a host handler mutating the very object it was
// invoked on while a caller still holds a read view of it.
//
// Counter convention (ported from the reference implementation's
// access.rs):
//
//	 0  - free
//	<0  - n outstanding shared (read) borrows, n = -count
//	+1  - one exclusive (write) borrow; no other positive value is valid
//
// Acquiring a shared borrow decrements the counter; releasing it
// increments. Acquiring an exclusive borrow increments 0 -> 1; releasing
// it decrements 1 -> 0. This is the mirror image of a naive "count up for
// readers" scheme, and it is load-bearing: it is what lets a single
// comparison (`b >= 0` means "can't share", `b != 1` means "can't take
// exclusive") distinguish all three states without a separate mode flag.
package access

import "fmt"

// ErrNotShared is returned when a shared (read) borrow cannot be
// acquired because an exclusive borrow is currently held.
var ErrNotShared = fmt.Errorf("not accessible for shared access")

// ErrNotExclusive is returned when an exclusive (write) borrow cannot be
// acquired because any borrow, shared or exclusive, is currently held.
var ErrNotExclusive = fmt.Errorf("not accessible for exclusive access")

// Cell owns a single value of type T plus a signed borrow counter.
// Clones of a Cell's enclosing handle all observe the same counter and
// the same value, giving compound runtime values stable identity across
// copies of the Value that references them.
type Cell[T any] struct {
	value T
	count int
}

// New constructs a free cell wrapping v.
func New[T any](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// SharedGuard is a live read borrow on a Cell. It must be released
// exactly once, and guards acquired from the same cell must be released
// in LIFO order (the counter does not enforce this; callers that violate
// it corrupt their own borrow accounting, not the cell's memory safety,
// since Go has no raw pointers to invalidate).
type SharedGuard[T any] struct {
	cell *Cell[T]
}

// ExclusiveGuard is a live write borrow on a Cell.
type ExclusiveGuard[T any] struct {
	cell *Cell[T]
}

// BorrowShared attempts to acquire a shared borrow. It fails with
// ErrNotShared if an exclusive borrow is currently outstanding.
func (c *Cell[T]) BorrowShared() (SharedGuard[T], error) {
	b := c.count - 1
	if b >= 0 {
		return SharedGuard[T]{}, ErrNotShared
	}
	c.count = b
	return SharedGuard[T]{cell: c}, nil
}

// TestShared reports whether a shared borrow could currently be
// acquired, without acquiring it.
func (c *Cell[T]) TestShared() error {
	if c.count-1 >= 0 {
		return ErrNotShared
	}
	return nil
}

// BorrowExclusive attempts to acquire the sole exclusive borrow. It
// fails with ErrNotExclusive if any borrow (shared or exclusive) is
// currently outstanding.
func (c *Cell[T]) BorrowExclusive() (ExclusiveGuard[T], error) {
	b := c.count + 1
	if b != 1 {
		return ExclusiveGuard[T]{}, ErrNotExclusive
	}
	c.count = b
	return ExclusiveGuard[T]{cell: c}, nil
}

// Value returns a pointer to the borrowed value. The pointer is valid
// only while the guard has not been released.
func (g SharedGuard[T]) Value() *T {
	return &g.cell.value
}

// Release gives up the shared borrow. Releasing a zero-value guard (one
// never successfully acquired) is a no-op.
func (g SharedGuard[T]) Release() {
	if g.cell == nil {
		return
	}
	b := g.cell.count + 1
	if b > 0 {
		panic("access: release_shared invariant violated: count went positive")
	}
	g.cell.count = b
}

// Value returns a pointer to the exclusively borrowed value, usable for
// both reads and writes while the guard is held.
func (g ExclusiveGuard[T]) Value() *T {
	return &g.cell.value
}

// Release gives up the exclusive borrow.
func (g ExclusiveGuard[T]) Release() {
	if g.cell == nil {
		return
	}
	b := g.cell.count - 1
	if b != 0 {
		panic("access: release_exclusive invariant violated: count did not return to zero")
	}
	g.cell.count = b
}

// RawGet returns a pointer to the cell's value without any borrow
// checking at all. It exists for the rare case where the caller can
// otherwise prove no other borrow is or can become live (for example,
// immediately after New, before the cell has been shared with anyone),
// and is never used by the VM's own opcode dispatch.
func (c *Cell[T]) RawGet() *T {
	return &c.value
}
