package flow

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qconv/internal/errors"
	"qconv/internal/source"
)

func TestEarlyExitDirectlyInLoopIsRejected(t *testing.T) {
	for _, kind := range []ExitKind{Break, Continue} {
		t.Run(kind.String(), func(t *testing.T) {
			c := NewChecker(&Stack{})
			c.EnterLoop()

			pos := source.Position{Filename: "main.aq", Line: 3, Column: 9}
			err := c.OnEarlyExit(kind, pos)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFeature))

			var buildErr *errors.Error
			require.True(t, stderrors.As(err, &buildErr))
			assert.Equal(t, pos, buildErr.Position)
			assert.Contains(t, buildErr.Message, kind.String())
		})
	}
}

func TestEarlyExitGuardedByBranchIsAllowed(t *testing.T) {
	stack := &Stack{}
	c := NewChecker(stack)
	c.EnterLoop()
	c.EnterBranch()

	assert.NoError(t, c.OnEarlyExit(Break, source.Position{}))
	assert.Equal(t, InBranch, stack.Top())
}

func TestEarlyExitOutsideLoop(t *testing.T) {
	c := NewChecker(&Stack{})
	err := c.OnEarlyExit(Continue, source.Position{Line: 1, Column: 1})
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFeature))

	c.EnterBranch()
	err = c.OnEarlyExit(Break, source.Position{Line: 2, Column: 1})
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFeature))
}

func TestNestingStack(t *testing.T) {
	stack := &Stack{}
	c := NewChecker(stack)

	assert.Equal(t, Outside, stack.Top())

	c.EnterLoop()
	c.EnterBranch()
	assert.Equal(t, 2, stack.Depth())
	assert.True(t, stack.InsideLoop())

	require.NoError(t, c.ExitBranch(source.Position{}))
	assert.Equal(t, InLoop, stack.Top())

	err := c.ExitBranch(source.Position{})
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFeature), "mismatched exit")

	err = c.ExitLoop(source.Position{})
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFeature), "underflow")
	assert.Equal(t, Outside, stack.Top())
}
