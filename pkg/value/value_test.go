package value

import "testing"

import "github.com/stretchr/testify/assert"

func TestPrimitiveConstructorsRoundTrip(t *testing.T) {
	assert.True(t, Unit().IsUnit())
	assert.Equal(t, TBool, Bool(true).Type())
	assert.True(t, Bool(true).AsBool())
	assert.Equal(t, byte(7), Byte(7).AsByte())
	assert.Equal(t, 'x', Char('x').AsChar())
	assert.Equal(t, int64(42), Integer(42).AsInteger())
	assert.Equal(t, 3.5, Float(3.5).AsFloat())
	h := HashString("std::example")
	assert.Equal(t, h, TypeValue(h).AsType())
}

func TestStringVariantsAreDistinctKinds(t *testing.T) {
	s1 := StaticString("hello")
	s2 := NewString("hello")
	assert.Equal(t, TStaticString, s1.Type())
	assert.Equal(t, TString, s2.Type())
	assert.Equal(t, "hello", s1.AsStaticString())
	assert.Equal(t, "hello", *s2.StringCell().RawGet())
}

func TestStringCellSharesIdentityAcrossCopies(t *testing.T) {
	v1 := NewString("a")
	v2 := v1 // Value is a small struct; copying it must not copy the cell.
	g, err := v1.StringCell().BorrowExclusive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	*g.Value() = "b"
	g.Release()
	assert.Equal(t, "b", *v2.StringCell().RawGet())
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", Integer(1))
	o.Set("a", Integer(2))
	o.Set("z", Integer(3)) // overwrite, should not reorder
	assert.Equal(t, []string{"z", "a"}, o.Keys())
	v, ok := o.Get("z")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v.AsInteger())
}

func TestObjectHasKeys(t *testing.T) {
	o := NewObject()
	o.Set("x", Integer(1))
	o.Set("y", Integer(2))
	assert.True(t, o.HasKeys([]string{"x"}, false))
	assert.True(t, o.HasKeys([]string{"x", "y"}, true))
	assert.False(t, o.HasKeys([]string{"x", "y", "z"}, false))
	assert.False(t, o.HasKeys([]string{"x"}, true))
}

func TestTypeInfoNamesHashedVariants(t *testing.T) {
	h := HashString("example::Point")
	tt := NewTypedTuple(TypedTuple{Hash: h, Fields: []Value{Integer(1), Integer(2)}})
	assert.Contains(t, tt.TypeInfo(), h.String())
}
