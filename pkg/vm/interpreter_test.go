package vm

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/weave/pkg/asm"
	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

func run(t *testing.T, src string) (Halt, *VM) {
	t.Helper()
	unit, err := asm.Assemble(src)
	require.NoError(t, err)
	machine := New(unit, context.New().Build())
	halt, err := machine.Run()
	require.NoError(t, err)
	return halt, machine
}

func TestSimpleAddLeavesResultAndExits(t *testing.T) {
	halt, _ := run(t, `
		INTEGER 40
		INTEGER 2
		ADD
		RETURN
	`)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.Equal(t, value.TInteger, halt.Value.Type())
	assert.EqualValues(t, 42, halt.Value.AsInteger())
}

func TestIntegerAddOverflowReportsError(t *testing.T) {
	unit, err := asm.Assemble(`
		INTEGER 9223372036854775807
		INTEGER 1
		ADD
		RETURN
	`)
	require.NoError(t, err)
	machine := New(unit, context.New().Build())
	_, err = machine.Run()
	assert.Error(t, err)
}

func TestImmediateCallLeavesSingleResultAndExits(t *testing.T) {
	unit, err := asm.Assemble(`
		fn add offset=add_body call=immediate argc=2

		INTEGER 40
		INTEGER 2
		CALL add 2
		RETURN

	add_body:
		COPY 0
		COPY 1
		ADD
		RETURN
	`)
	require.NoError(t, err)
	machine := New(unit, context.New().Build())
	halt, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.EqualValues(t, 42, halt.Value.AsInteger())
}

func TestAsyncCallProducesFutureAndAwaitResolves(t *testing.T) {
	unit, err := asm.Assemble(`
		fn compute offset=compute_body call=async argc=0

		CALL compute 0
		AWAIT
		RETURN

	compute_body:
		INTEGER 7
		RETURN
	`)
	require.NoError(t, err)
	machine := New(unit, context.New().Build())
	halt, err := machine.Run()
	require.NoError(t, err)
	require.Equal(t, HaltAwaited, halt.Reason)
	assert.Equal(t, value.TFuture, halt.Future.Type())

	resolved, err := AwaitFuture(halt.Future)
	require.NoError(t, err)
	assert.EqualValues(t, 7, resolved.AsInteger())

	halt, err = machine.Resume(resolved)
	require.NoError(t, err)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.EqualValues(t, 7, halt.Value.AsInteger())
}

func TestSelectResolvesOneOfTwoFuturesAndJumpsOnBranch(t *testing.T) {
	unit, err := asm.Assemble(`
		fn left offset=left_body call=async argc=0
		fn right offset=right_body call=async argc=0

		CALL left 0
		CALL right 0
		SELECT 2
		JUMP_IF_BRANCH 0 got_left
		JUMP_IF_BRANCH 1 got_right
		PANIC "unreachable"

	got_left:
		INTEGER 1
		RETURN

	got_right:
		INTEGER 2
		RETURN

	left_body:
		INTEGER 100
		RETURN

	right_body:
		INTEGER 200
		RETURN
	`)
	require.NoError(t, err)
	machine := New(unit, context.New().Build())
	halt, err := machine.Run()
	require.NoError(t, err)
	require.Equal(t, HaltAwaited, halt.Reason)
	require.Len(t, halt.Select, 2)

	branch := halt.Select[0]
	resolved, err := AwaitFuture(branch.Future)
	require.NoError(t, err)

	halt, err = machine.ResumeSelect(ResumeSelect{Branch: branch.Index, Value: resolved})
	require.NoError(t, err)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.EqualValues(t, 1, halt.Value.AsInteger())
}

func TestMatchSequenceTupleArmMatches(t *testing.T) {
	halt, _ := run(t, `
		INTEGER 1
		INTEGER 2
		TUPLE 2
		MATCH_SEQUENCE tuple 2
		JUMP_IF matched
		INTEGER 0
		RETURN
	matched:
		POP
		INTEGER 1
		RETURN
	`)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.EqualValues(t, 1, halt.Value.AsInteger())
}

func TestMatchSequenceTupleArmRejectsWrongArity(t *testing.T) {
	halt, _ := run(t, `
		INTEGER 1
		INTEGER 2
		TUPLE 2
		MATCH_SEQUENCE tuple 3
		JUMP_IF matched
		POP
		INTEGER 0
		RETURN
	matched:
		POP
		INTEGER 1
		RETURN
	`)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.EqualValues(t, 0, halt.Value.AsInteger())
}

func TestCleanPreservesTopAndDropsBelow(t *testing.T) {
	halt, _ := run(t, `
		INTEGER 1
		INTEGER 2
		INTEGER 3
		CLEAN 2
		RETURN
	`)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.EqualValues(t, 3, halt.Value.AsInteger())
}

func TestStringConcatRendersMixedValues(t *testing.T) {
	halt, _ := run(t, `
		STRING "n="
		INTEGER 5
		STRING_CONCAT 2 8
		RETURN
	`)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.Equal(t, value.TString, halt.Value.Type())
	assert.Equal(t, "n=5", *halt.Value.StringCell().RawGet())
}

// trivialVM builds a VM around a minimal valid Unit, for tests that
// drive an opcode method directly rather than through assembled code.
func trivialVM(t *testing.T) *VM {
	t.Helper()
	unit, err := asm.Assemble(`
		RETURN_UNIT
	`)
	require.NoError(t, err)
	return New(unit, context.New().Build())
}

func TestIndexGetOnExclusivelyBorrowedObjectReportsNotAccessibleRef(t *testing.T) {
	machine := trivialVM(t)

	obj := value.NewObject()
	obj.Set("x", value.Integer(1))
	target := value.NewObjectValue(obj)

	guard, err := target.ObjectCell().BorrowExclusive()
	require.NoError(t, err)
	defer guard.Release()

	machine.Stack().Push(target)
	machine.Stack().Push(value.NewString("x"))

	_, _, err = machine.indexGet()
	require.Error(t, err)
	var vmErr *Error
	require.True(t, stderrors.As(err, &vmErr))
	assert.Equal(t, ErrNotAccessibleRefKind, vmErr.Kind)
}

func TestIndexSetOnSharedlyBorrowedVecReportsNotAccessibleMut(t *testing.T) {
	machine := trivialVM(t)

	target := value.NewVec([]value.Value{value.Integer(1), value.Integer(2)})

	guard, err := target.VecCell().BorrowShared()
	require.NoError(t, err)
	defer guard.Release()

	machine.Stack().Push(target)
	machine.Stack().Push(value.Integer(0))
	machine.Stack().Push(value.Integer(99))

	_, _, err = machine.indexSet()
	require.Error(t, err)
	var vmErr *Error
	require.True(t, stderrors.As(err, &vmErr))
	assert.Equal(t, ErrNotAccessibleMutKind, vmErr.Kind)
}

func TestYieldHaltsWithValueAndResumeContinues(t *testing.T) {
	unit, err := asm.Assemble(`
		INTEGER 1
		YIELD
		INTEGER 2
		ADD
		RETURN
	`)
	require.NoError(t, err)
	machine := New(unit, context.New().Build())
	halt, err := machine.Run()
	require.NoError(t, err)
	require.Equal(t, HaltYielded, halt.Reason)
	assert.EqualValues(t, 1, halt.Value.AsInteger())

	halt, err = machine.Resume(value.Integer(10))
	require.NoError(t, err)
	assert.Equal(t, HaltExited, halt.Reason)
	assert.EqualValues(t, 12, halt.Value.AsInteger())
}
