package bytecode

import (
	"testing"

	"github.com/kristofer/weave/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedUnit(t *testing.T) {
	u := NewUnit()
	u.Instructions = []Instruction{
		{Op: OpInteger, Int: 1},
		{Op: OpReturn},
	}
	require.NoError(t, u.Validate())
}

func TestValidateCatchesBadJumpTarget(t *testing.T) {
	u := NewUnit()
	u.Instructions = []Instruction{
		{Op: OpJump, Target: 99},
	}
	assert.Error(t, u.Validate())
}

func TestValidateCatchesMissingPoolSlot(t *testing.T) {
	u := NewUnit()
	u.Instructions = []Instruction{
		{Op: OpString, Slot: 0},
	}
	assert.Error(t, u.Validate())
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	u := NewUnit()
	u.Instructions = []Instruction{
		{Op: OpString, Slot: 5},
		{Op: OpJump, Target: 5},
	}
	err := u.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func TestValidateCatchesBadFunctionOffset(t *testing.T) {
	u := NewUnit()
	u.Instructions = []Instruction{{Op: OpReturn}}
	u.Functions[value.HashString("f")] = UnitFn{Kind: UnitFnOffset, IP: 10}
	assert.Error(t, u.Validate())
}
