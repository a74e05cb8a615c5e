// Package context implements the host-handler registry spec.md §3.5
// calls Context: an immutable mapping from Hash to a native handler
// that the VM falls back to when a Call, CallInstance, or protocol
// dispatch misses the Unit's own function table.
package context

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kristofer/weave/pkg/value"
)

// Stack is the minimal view of the VM operand stack a Handler needs:
// pop arguments off the top and push exactly one result. It is
// satisfied by *vm.Stack; defined here (rather than imported from
// pkg/vm) so pkg/context never depends on pkg/vm, matching the
// layering spec.md §2 draws between "Unit & Context" and "VM".
type Stack interface {
	Push(value.Value)
	Pop() (value.Value, error)
	Len() int
}

// Handler is a host-provided native function, callable by Hash from
// bytecode. It must consume exactly argc values from the top of the
// stack and push exactly one result (spec.md §4.4, §6): a handler that
// logically returns nothing pushes value.Unit().
type Handler func(s Stack, argc int) error

// Context is an immutable registry of Handlers. The zero value is not
// usable; construct with New.
type Context struct {
	handlers map[value.Hash]Handler
	names    map[value.Hash]string // for logging/disassembly only
}

// New returns an empty Builder for populating handlers; its Build
// freezes them into a Context. Context itself offers no mutators so
// that, once handed to a VM, registration cannot race with lookups.
func New() *Builder {
	return &Builder{
		handlers: make(map[value.Hash]Handler),
		names:    make(map[value.Hash]string),
	}
}

// Builder accumulates handler registrations before being frozen into
// an immutable Context via Build.
type Builder struct {
	handlers map[value.Hash]Handler
	names    map[value.Hash]string
}

// Register adds a handler addressable by the Hash of path. Re-registering
// the same path replaces the previous handler, logging a warning, since
// that is almost always a mistake in handler wiring (two stdlib modules
// claiming the same name) rather than an intended override.
func (b *Builder) Register(path string, h Handler) *Builder {
	hash := value.HashString(path)
	if _, exists := b.handlers[hash]; exists {
		log.Warn().Str("path", path).Str("hash", hash.String()).Msg("context: handler redefined")
	}
	b.handlers[hash] = h
	b.names[hash] = path
	return b
}

// Build freezes the builder into an immutable Context.
func (b *Builder) Build() *Context {
	return &Context{handlers: b.handlers, names: b.names}
}

// Lookup resolves a Hash to its registered handler.
func (c *Context) Lookup(h value.Hash) (Handler, bool) {
	fn, ok := c.handlers[h]
	return fn, ok
}

// Name returns the registration path for h, for disassembly and error
// messages; returns "" if h was not registered through Builder.Register.
func (c *Context) Name(h value.Hash) string {
	return c.names[h]
}

// ErrMissingHandler describes a Hash with no registered handler. pkg/vm
// does not return it: a Call/CallInstance that misses both the Unit's
// function table and the Context reports the VM's own MissingFunction/
// MissingInstanceFunction error instead.
type ErrMissingHandler struct{ Hash value.Hash }

func (e *ErrMissingHandler) Error() string {
	return fmt.Sprintf("context: no handler registered for %s", e.Hash)
}
