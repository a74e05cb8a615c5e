package vm

import (
	"math"

	"github.com/kristofer/weave/pkg/value"
)

// Checked int64 arithmetic backing the Arithmetic/ArithmeticAssign
// opcode families (spec.md §4.5.1, §8's "checked arithmetic"
// invariant). Each reports Overflow/Underflow/DivideByZero instead of
// wrapping or trapping.

func addChecked(a, b int64) (int64, error) {
	sum := a + b
	if b > 0 && sum < a {
		return 0, errOverflow("add")
	}
	if b < 0 && sum > a {
		return 0, errUnderflow("add")
	}
	return sum, nil
}

func subChecked(a, b int64) (int64, error) {
	diff := a - b
	if b < 0 && diff < a {
		return 0, errOverflow("sub")
	}
	if b > 0 && diff > a {
		return 0, errUnderflow("sub")
	}
	return diff, nil
}

func mulChecked(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a == math.MinInt64 && b == -1 {
		return 0, errOverflow("mul")
	}
	prod := a * b
	if prod/b != a {
		if (a > 0) == (b > 0) {
			return 0, errOverflow("mul")
		}
		return 0, errUnderflow("mul")
	}
	return prod, nil
}

func divChecked(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errDivideByZero("div")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, errOverflow("div")
	}
	return a / b, nil
}

func remChecked(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errDivideByZero("rem")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

func shlChecked(a, b int64) (int64, error) {
	if b < 0 || b > 63 {
		return 0, errOverflow("shl")
	}
	return a << uint(b), nil
}

func shrChecked(a, b int64) (int64, error) {
	if b < 0 || b > 63 {
		return 0, errOverflow("shr")
	}
	return a >> uint(b), nil
}

// compareOrdered compares same-type Integer or Float pairs, returning
// -1/0/1. Any other pairing is not orderable (spec.md §4.5.1:
// "Ordering supports same-type Integer and Float pairs only").
func compareOrdered(lhs, rhs value.Value) (int, error) {
	switch {
	case lhs.Type() == value.TInteger && rhs.Type() == value.TInteger:
		a, b := lhs.AsInteger(), rhs.AsInteger()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case lhs.Type() == value.TFloat && rhs.Type() == value.TFloat:
		a, b := lhs.AsFloat(), rhs.AsFloat()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, errUnsupportedBinary("CMP", lhs.Type(), rhs.Type())
	}
}
