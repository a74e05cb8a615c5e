package asm

import (
	"testing"

	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleSimpleAdd(t *testing.T) {
	u, err := Assemble(`
		INTEGER 40
		INTEGER 2
		ADD
		RETURN
	`)
	require.NoError(t, err)
	require.Len(t, u.Instructions, 4)
	assert.Equal(t, bytecode.OpInteger, u.Instructions[0].Op)
	assert.EqualValues(t, 40, u.Instructions[0].Int)
	assert.Equal(t, bytecode.OpAdd, u.Instructions[2].Op)
	assert.Equal(t, bytecode.OpReturn, u.Instructions[3].Op)
}

func TestAssembleResolvesForwardLabel(t *testing.T) {
	u, err := Assemble(`
		BOOL true
		JUMP_IF done
		INTEGER 0
	done:
		RETURN
	`)
	require.NoError(t, err)
	jumpIf := u.Instructions[1]
	assert.Equal(t, bytecode.OpJumpIf, jumpIf.Op)
	assert.Equal(t, 3, jumpIf.Target)
}

func TestAssembleUndefinedLabelFails(t *testing.T) {
	_, err := Assemble(`
		JUMP nowhere
	`)
	assert.Error(t, err)
}

func TestAssembleFnDirectiveRegistersFunctionTable(t *testing.T) {
	u, err := Assemble(`
		fn demo::add offset=add_body call=immediate argc=2
	add_body:
		COPY 0
		COPY 1
		ADD
		RETURN
	`)
	require.NoError(t, err)
	h := value.HashString("demo::add")
	fn, err := u.Lookup(h)
	require.NoError(t, err)
	assert.Equal(t, bytecode.UnitFnOffset, fn.Kind)
	assert.Equal(t, bytecode.CallImmediate, fn.Call)
	assert.Equal(t, 2, fn.ArgCount)
	assert.Equal(t, 0, fn.IP)
}

func TestAssembleStringLiteralInternsPoolSlot(t *testing.T) {
	u, err := Assemble(`STRING "hello"`)
	require.NoError(t, err)
	s, err := u.LookupString(u.Instructions[0].Slot)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestAssembleObjectKeysFromCommaList(t *testing.T) {
	u, err := Assemble(`OBJECT x,y`)
	require.NoError(t, err)
	keys, err := u.LookupObjectKeys(u.Instructions[0].Slot)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, keys)
}

func TestAssembleRejectsUnknownMnemonic(t *testing.T) {
	_, err := Assemble(`FROB 1 2 3`)
	assert.Error(t, err)
}
