package stdlib

import (
	"fmt"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

// registerFuture ports _examples/original_source/crates/runestick/src/packages/future.rs's
// join combinator: given a Tuple or Vec of Futures, produce one result
// aggregating all of their resolved values in order. The original
// drives every branch concurrently via FuturesUnordered; std::future::join
// here drives them one at a time through awaitFuture, which is exactly
// as strong a contract as spec.md §1 asks a standard-library handler to
// make (its concurrency, if any, is an embedding concern, not core
// surface).
func registerFuture(b *context.Builder, awaitFuture FutureAwaiter) {
	b.Register("std::future::join", join(awaitFuture))
}

func join(awaitFuture FutureAwaiter) context.Handler {
	return func(s context.Stack, argc int) error {
		args, err := popArgs(s, argc)
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return resultErr(s, fmt.Errorf("std::future::join takes exactly one argument"))
		}
		if awaitFuture == nil {
			return resultErr(s, fmt.Errorf("std::future::join: no future driver configured"))
		}

		elems, isTuple, err := futureElements(args[0])
		if err != nil {
			return resultErr(s, err)
		}

		results := make([]value.Value, len(elems))
		for i, e := range elems {
			if e.Type() != value.TFuture {
				return resultErr(s, fmt.Errorf("std::future::join: element %d is not a Future", i))
			}
			v, err := awaitFuture(e)
			if err != nil {
				return resultErr(s, err)
			}
			results[i] = v
		}

		var joined value.Value
		if isTuple {
			joined = value.NewTuple(results)
		} else {
			joined = value.NewVec(results)
		}
		s.Push(value.NewResult(value.Result{Ok: true, Value: joined}))
		return nil
	}
}

func futureElements(v value.Value) ([]value.Value, bool, error) {
	switch v.Type() {
	case value.TTuple:
		g, err := v.TupleCell().BorrowShared()
		if err != nil {
			return nil, false, err
		}
		defer g.Release()
		return append([]value.Value(nil), *g.Value()...), true, nil
	case value.TVec:
		g, err := v.VecCell().BorrowShared()
		if err != nil {
			return nil, false, err
		}
		defer g.Release()
		return append([]value.Value(nil), *g.Value()...), false, nil
	default:
		return nil, false, fmt.Errorf("std::future::join: expected Tuple or Vec, got %s", v.Type())
	}
}
