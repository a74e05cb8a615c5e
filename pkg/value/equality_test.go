package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualPrimitives(t *testing.T) {
	assert.True(t, Equal(Integer(1), Integer(1)))
	assert.False(t, Equal(Integer(1), Integer(2)))
	assert.False(t, Equal(Integer(1), Float(1)))
	assert.True(t, Equal(Unit(), Unit()))
}

func TestEqualStringsByValueNotIdentity(t *testing.T) {
	a := NewString("hi")
	b := NewString("hi")
	assert.True(t, Equal(a, b))
	assert.NotSame(t, a.StringCell(), b.StringCell())
}

func TestEqualVecsElementwise(t *testing.T) {
	a := NewVec([]Value{Integer(1), Integer(2)})
	b := NewVec([]Value{Integer(1), Integer(2)})
	c := NewVec([]Value{Integer(1), Integer(3)})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestEqualObjectsIgnoreKeyOrder(t *testing.T) {
	o1 := NewObject()
	o1.Set("a", Integer(1))
	o1.Set("b", Integer(2))

	o2 := NewObject()
	o2.Set("b", Integer(2))
	o2.Set("a", Integer(1))

	assert.True(t, Equal(NewObjectValue(o1), NewObjectValue(o2)))
}

func TestEqualResultAndOption(t *testing.T) {
	ok1 := NewResult(Result{Ok: true, Value: Integer(1)})
	ok2 := NewResult(Result{Ok: true, Value: Integer(1)})
	err1 := NewResult(Result{Ok: false, Value: Integer(1)})
	assert.True(t, Equal(ok1, ok2))
	assert.False(t, Equal(ok1, err1))

	some1 := NewOption(Option{Some: true, Value: Integer(5)})
	none1 := NewOption(Option{Some: false})
	none2 := NewOption(Option{Some: false})
	assert.False(t, Equal(some1, none1))
	assert.True(t, Equal(none1, none2))
}

func TestEqualDoesNotDeadlockOnSharedBorrows(t *testing.T) {
	// Equal takes nested shared borrows on both operands of a Vec
	// comparison; a cell must be re-borrowable (shared, not exclusive)
	// to itself within the same traversal when it appears twice.
	inner := NewVec([]Value{Integer(1)})
	outer := NewVec([]Value{inner, inner})
	assert.True(t, Equal(outer, outer))
}
