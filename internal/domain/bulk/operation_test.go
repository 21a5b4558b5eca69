package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunningOperation(t *testing.T, direction Direction) *Operation {
	t.Helper()
	op, err := NewOperation(direction, false)
	require.NoError(t, err)
	require.NoError(t, op.Start())
	return op
}

func TestNewOperation(t *testing.T) {
	t.Run("creates pending operation", func(t *testing.T) {
		op, err := NewOperation(DirectionIngest, true)

		require.NoError(t, err)
		assert.Equal(t, OperationStatePending, op.State)
		assert.True(t, op.ValidateOnly)
		assert.Zero(t, op.TotalRows)
	})

	t.Run("rejects invalid direction", func(t *testing.T) {
		_, err := NewOperation(Direction("upload"), false)

		assert.ErrorIs(t, err, ErrInvalidDirection)
	})
}

func TestOperationRowAccounting(t *testing.T) {
	op := newRunningOperation(t, DirectionIngest)

	require.NoError(t, op.RecordRow(RowOutcome{Index: 0, Ref: "camp_summer", State: RowStateApplied}))
	require.NoError(t, op.RecordRow(RowOutcome{Index: 1, Ref: "camp_summer", State: RowStateFailed, Field: "budget_total", Error: "must be positive"}))
	require.NoError(t, op.RecordRow(RowOutcome{Index: 2, Ref: "camp_fall", State: RowStateStaged}))

	assert.Equal(t, 3, op.TotalRows)
	assert.Equal(t, 2, op.AppliedRows)
	assert.Equal(t, 1, op.FailedRows)

	failed := op.FailedOutcomes()
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Index)
	assert.Equal(t, "budget_total", failed[0].Field)
}

func TestOperationFinalize(t *testing.T) {
	t.Run("all rows applied", func(t *testing.T) {
		op := newRunningOperation(t, DirectionIngest)
		require.NoError(t, op.RecordRow(RowOutcome{Index: 0, State: RowStateApplied}))
		require.NoError(t, op.Finalize())

		assert.Equal(t, OperationStateSucceeded, op.State)
		assert.NotNil(t, op.CompletedAt)
	})

	t.Run("all rows failed still terminates", func(t *testing.T) {
		op := newRunningOperation(t, DirectionIngest)
		require.NoError(t, op.RecordRow(RowOutcome{Index: 0, State: RowStateFailed, Error: "bad format"}))
		require.NoError(t, op.RecordRow(RowOutcome{Index: 1, State: RowStateFailed, Error: "bad budget"}))
		require.NoError(t, op.Finalize())

		assert.Equal(t, OperationStateFailed, op.State)
		assert.True(t, op.State.IsTerminal())
	})

	t.Run("mixed rows are partial", func(t *testing.T) {
		op := newRunningOperation(t, DirectionIngest)
		require.NoError(t, op.RecordRow(RowOutcome{Index: 0, State: RowStateApplied}))
		require.NoError(t, op.RecordRow(RowOutcome{Index: 1, State: RowStateFailed, Error: "bad date"}))
		require.NoError(t, op.Finalize())

		assert.Equal(t, OperationStatePartial, op.State)
	})

	t.Run("cannot finalize twice", func(t *testing.T) {
		op := newRunningOperation(t, DirectionGenerate)
		require.NoError(t, op.Finalize())

		assert.Error(t, op.Finalize())
	})

	t.Run("cannot record rows after terminal state", func(t *testing.T) {
		op := newRunningOperation(t, DirectionIngest)
		require.NoError(t, op.Finalize())

		assert.Error(t, op.RecordRow(RowOutcome{Index: 0, State: RowStateApplied}))
	})
}

func TestOperationFail(t *testing.T) {
	op, err := NewOperation(DirectionIngest, false)
	require.NoError(t, err)

	require.NoError(t, op.Fail("sheet header mismatch"))

	assert.Equal(t, OperationStateFailed, op.State)
	assert.Equal(t, "sheet header mismatch", op.Message)
	assert.Error(t, op.Fail("again"))
}
