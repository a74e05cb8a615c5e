package bytecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisassembleIncludesConstantsAndOpcodes(t *testing.T) {
	u := NewUnit()
	slot := u.AddString("hi")
	u.Instructions = []Instruction{
		{Op: OpString, Slot: slot},
		{Op: OpReturn},
	}
	out := u.Disassemble()
	assert.True(t, strings.Contains(out, "STRING"))
	assert.True(t, strings.Contains(out, `"hi"`))
	assert.True(t, strings.Contains(out, "RETURN"))
}
