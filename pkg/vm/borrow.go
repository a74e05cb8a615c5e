package vm

import "github.com/kristofer/weave/pkg/access"

// readShared copies cell's payload out under a shared borrow, releasing
// the guard before returning it (spec.md §5: a borrow must not outlive
// the opcode step that took it, since a protocol fallback dispatched
// right after may re-enter the interpreter and want its own borrow on
// the same cell). Failure to acquire the borrow surfaces as
// NotAccessibleRef rather than the raw access.ErrNotShared.
func readShared[T any](cell *access.Cell[T]) (T, error) {
	g, err := cell.BorrowShared()
	if err != nil {
		var zero T
		return zero, errNotAccessibleRef(err)
	}
	defer g.Release()
	return *g.Value(), nil
}

// mutateExclusive acquires an exclusive borrow on cell, runs f against
// the live payload, and releases the guard before returning. Failure to
// acquire the borrow surfaces as NotAccessibleMut.
func mutateExclusive[T any](cell *access.Cell[T], f func(*T) error) error {
	g, err := cell.BorrowExclusive()
	if err != nil {
		return errNotAccessibleMut(err)
	}
	defer g.Release()
	return f(g.Value())
}
