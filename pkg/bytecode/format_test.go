package bytecode

import (
	"bytes"
	"testing"

	"github.com/kristofer/weave/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	u := NewUnit()
	slot := u.AddString("hello")
	keysSlot := u.AddObjectKeys([]string{"x", "y"})
	blobSlot := u.AddBytes([]byte{1, 2, 3})

	h := value.HashString("example::id")
	u.Functions[h] = UnitFn{Kind: UnitFnOffset, IP: 2, Call: CallImmediate, ArgCount: 1}

	u.Instructions = []Instruction{
		{Op: OpInteger, Int: 42},
		{Op: OpString, Slot: slot},
		{Op: OpObject, Slot: keysSlot},
		{Op: OpBytes, Slot: blobSlot},
		{Op: OpReturn},
	}

	var buf bytes.Buffer
	require.NoError(t, u.Write(&buf))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, u.Strings, got.Strings)
	assert.Equal(t, u.Bytes, got.Bytes)
	assert.Equal(t, u.ObjectKeys, got.ObjectKeys)
	assert.Equal(t, u.Instructions, got.Instructions)
	assert.Equal(t, u.Functions[h], got.Functions[h])
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0})
	_, err := Read(buf)
	assert.Error(t, err)
}
