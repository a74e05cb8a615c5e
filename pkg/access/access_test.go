package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedBorrowsStack(t *testing.T) {
	c := New(42)

	g1, err := c.BorrowShared()
	require.NoError(t, err)
	g2, err := c.BorrowShared()
	require.NoError(t, err)

	assert.Equal(t, 42, *g1.Value())
	assert.Equal(t, 42, *g2.Value())

	g2.Release()
	g1.Release()

	// Cell is free again; an exclusive borrow must now succeed.
	ex, err := c.BorrowExclusive()
	require.NoError(t, err)
	ex.Release()
}

func TestExclusiveExcludesShared(t *testing.T) {
	c := New("hello")

	ex, err := c.BorrowExclusive()
	require.NoError(t, err)

	_, err = c.BorrowShared()
	assert.ErrorIs(t, err, ErrNotShared)

	_, err = c.BorrowExclusive()
	assert.ErrorIs(t, err, ErrNotExclusive)

	ex.Release()

	_, err = c.BorrowShared()
	assert.NoError(t, err)
}

func TestSharedExcludesExclusive(t *testing.T) {
	c := New(1)

	g, err := c.BorrowShared()
	require.NoError(t, err)

	_, err = c.BorrowExclusive()
	assert.ErrorIs(t, err, ErrNotExclusive)

	g.Release()

	_, err = c.BorrowExclusive()
	assert.NoError(t, err)
}

func TestReleaseAfterMisuseSucceedsAgain(t *testing.T) {
	// Borrow safety property from SPEC_FULL §8: a failed contended borrow
	// must never corrupt the cell; subsequent operations must still work.
	c := New(0)

	ex, err := c.BorrowExclusive()
	require.NoError(t, err)

	_, err = c.BorrowShared()
	require.Error(t, err)
	_, err = c.BorrowExclusive()
	require.Error(t, err)

	ex.Release()

	g1, err := c.BorrowShared()
	require.NoError(t, err)
	g2, err := c.BorrowShared()
	require.NoError(t, err)
	g2.Release()
	g1.Release()
}

func TestTestSharedDoesNotMutate(t *testing.T) {
	c := New(7)
	require.NoError(t, c.TestShared())
	ex, err := c.BorrowExclusive()
	require.NoError(t, err)
	assert.ErrorIs(t, c.TestShared(), ErrNotShared)
	ex.Release()
	assert.NoError(t, c.TestShared())
}
