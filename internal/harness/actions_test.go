package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlpulse/sqlpulse/internal/lifecycle"
)

func TestAction_GetState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	result, err := f.runner.DispatchAction(context.Background(), ActionGetState)
	require.NoError(t, err)
	assert.Equal(t, Result{"state": lifecycle.StateWaitingForDatabase}, result)
}

func TestAction_GetStateWhileWriting(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	stop := f.run(t)
	defer stop()

	result, err := f.runner.DispatchAction(context.Background(), ActionGetState)
	require.NoError(t, err)
	assert.Equal(t, Result{"state": lifecycle.StateWriting}, result)
}

func TestAction_Unknown(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	result, err := f.runner.DispatchAction(context.Background(), "explode")
	require.ErrorIs(t, err, ErrUnknownAction)
	assert.Nil(t, result)
}

func TestAction_StartContinuousWrites(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	stop := f.run(t)
	defer stop()

	result, err := f.runner.DispatchAction(context.Background(), ActionStartContinuousWrites)
	require.NoError(t, err)
	assert.Equal(t, Result{"started": true}, result)

	// Restarted from 1 on top of the initial start.
	assert.Equal(t, []int64{1, 1}, f.writer.starts())
	assert.True(t, f.writer.IsRunning())
}

func TestAction_StartContinuousWritesUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	stop := f.run(t)
	defer stop()

	result, err := f.runner.DispatchAction(context.Background(), ActionStartContinuousWrites)
	require.NoError(t, err)
	assert.Equal(t, unavailableResult(), result)
}

func TestAction_StopContinuousWrites(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	stop := f.run(t)
	defer stop()

	f.db.mu.Lock()
	f.db.maxWritten = 1234
	f.db.mu.Unlock()

	result, err := f.runner.DispatchAction(context.Background(), ActionStopContinuousWrites)
	require.NoError(t, err)
	assert.Equal(t, Result{"writes": int64(1234)}, result)
	assert.False(t, f.writer.IsRunning())
	assert.Equal(t, lifecycle.StateReady, f.runner.GetState())

	// The cycle continues: writes can start again.
	_, err = f.runner.DispatchAction(context.Background(), ActionStartContinuousWrites)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateWriting, f.runner.GetState())
}

func TestAction_StopContinuousWritesUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	stop := f.run(t)
	defer stop()

	result, err := f.runner.DispatchAction(context.Background(), ActionStopContinuousWrites)
	require.NoError(t, err)
	assert.Equal(t, Result{"writes": int64(0)}, result)
}

func TestAction_ClearContinuousWrites(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	stop := f.run(t)
	defer stop()

	result, err := f.runner.DispatchAction(context.Background(), ActionClearContinuousWrites)
	require.NoError(t, err)
	assert.Equal(t, Result{"cleared": true}, result)
	assert.True(t, f.db.dropped)
	assert.False(t, f.writer.IsRunning())
}

func TestAction_GetInsertedData(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	stop := f.run(t)
	defer stop()

	result, err := f.runner.DispatchAction(context.Background(), ActionGetInsertedData)
	require.NoError(t, err)
	assert.Equal(t, Result{"data": "aB3dE6gH9j"}, result)
}

func TestAction_GetInsertedDataEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	result, err := f.runner.DispatchAction(context.Background(), ActionGetInsertedData)
	require.NoError(t, err)
	assert.Equal(t, Result{"data": "empty"}, result)
}
