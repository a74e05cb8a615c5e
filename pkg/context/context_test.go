package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/weave/pkg/value"
)

type fakeStack struct{ vals []value.Value }

func (f *fakeStack) Push(v value.Value) { f.vals = append(f.vals, v) }
func (f *fakeStack) Pop() (value.Value, error) {
	if len(f.vals) == 0 {
		return value.Value{}, assert.AnError
	}
	v := f.vals[len(f.vals)-1]
	f.vals = f.vals[:len(f.vals)-1]
	return v, nil
}
func (f *fakeStack) Len() int { return len(f.vals) }

func TestBuilderRegistersAndLooksUpByHash(t *testing.T) {
	b := New()
	b.Register("std::example::double", func(s Stack, argc int) error {
		v, err := s.Pop()
		if err != nil {
			return err
		}
		s.Push(value.Integer(v.AsInteger() * 2))
		return nil
	})
	ctx := b.Build()

	h := value.HashString("std::example::double")
	fn, ok := ctx.Lookup(h)
	require.True(t, ok)

	s := &fakeStack{vals: []value.Value{value.Integer(21)}}
	require.NoError(t, fn(s, 1))
	assert.Equal(t, int64(42), s.vals[0].AsInteger())
	assert.Equal(t, "std::example::double", ctx.Name(h))
}

func TestLookupMissReturnsFalse(t *testing.T) {
	ctx := New().Build()
	_, ok := ctx.Lookup(value.HashString("nope"))
	assert.False(t, ok)
}
