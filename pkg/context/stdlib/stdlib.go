// Package stdlib ports the teacher's host-native primitives
// (pkg/vm/primitives.go: HTTP, crypto, compression, file I/O, JSON,
// regex, random, date/time) into Context handlers with the ABI
// spec.md §4.4/§6 requires: consume argc values off the top of the
// stack, push exactly one result.
//
// Every handler here is registered under a fully-qualified path (e.g.
// "std::http::get") so the Hash a Unit calls with and the Hash a
// Context registers under are derived from the same string
// independently, per spec.md §3.5.
package stdlib

import (
	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

// FutureAwaiter drives a single Future value to completion, returning
// its resolved value. It is supplied by whoever assembles the final
// Context (typically cmd/weave, wiring pkg/vm's future-driving logic
// in) so that pkg/context/stdlib never has to import pkg/vm: the VM is
// the only thing that knows how to run a child VM to exit, but the
// *interface* that need is exactly this one function, which is all
// spec.md §1 scopes the standard-library content's relationship to the
// core as ("only its interface is specified").
type FutureAwaiter func(value.Value) (value.Value, error)

// Register adds every stdlib module's handlers to b. awaitFuture backs
// std::future::join (see future.go); pass nil if the embedding program
// never registers a Unit that calls it.
func Register(b *context.Builder, awaitFuture FutureAwaiter) *context.Builder {
	registerHTTP(b)
	registerCrypto(b)
	registerCompress(b)
	registerFileIO(b)
	registerJSON(b)
	registerRegex(b)
	registerRandom(b)
	registerDateTime(b)
	registerFuture(b, awaitFuture)
	return b
}

// popArgs pops argc values off s and returns them in original
// left-to-right push order (index 0 is the first-pushed argument).
func popArgs(s context.Stack, argc int) ([]value.Value, error) {
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := s.Pop()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func argString(v value.Value) string {
	switch v.Type() {
	case value.TStaticString:
		return v.AsStaticString()
	case value.TString:
		g, err := v.StringCell().BorrowShared()
		if err != nil {
			return ""
		}
		defer g.Release()
		return *g.Value()
	default:
		return v.String()
	}
}

func argBytes(v value.Value) []byte {
	if v.Type() != value.TBytes {
		return nil
	}
	g, err := v.BytesCell().BorrowShared()
	if err != nil {
		return nil
	}
	defer g.Release()
	return append([]byte(nil), *g.Value()...)
}

func argInt(v value.Value) int64 {
	if v.Type() == value.TInteger {
		return v.AsInteger()
	}
	return 0
}
