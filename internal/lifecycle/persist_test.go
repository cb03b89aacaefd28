package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	for _, state := range []string{StateWaitingForDatabase, StateReady, StateWriting} {
		t.Run(state, func(t *testing.T) {
			t.Parallel()
			m := machineAt(t, state)

			blob, err := m.Snapshot()
			require.NoError(t, err)

			restored, err := Restore(testHandler(), blob)
			require.NoError(t, err)
			assert.Equal(t, state, restored.CurrentState())
			assert.Equal(t, m.IsBlocked(), restored.IsBlocked())
		})
	}
}

func TestSnapshotIsInspectable(t *testing.T) {
	t.Parallel()
	m := machineAt(t, StateWriting)

	blob, err := m.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"state":"writing"}`, string(blob))
}

func TestRestoreCorruptBlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		blob string
	}{
		{"not json", "not-a-snapshot"},
		{"empty", ""},
		{"unknown state", `{"v":1,"state":"exploded"}`},
		{"missing state", `{"v":1}`},
		{"wrong version", `{"v":2,"state":"ready"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := Restore(testHandler(), []byte(tc.blob))
			require.ErrorIs(t, err, ErrCorruptState)
			assert.Nil(t, m)
		})
	}
}

func TestRestoredMachineTransitions(t *testing.T) {
	t.Parallel()
	m := machineAt(t, StateWriting)

	blob, err := m.Snapshot()
	require.NoError(t, err)

	restored, err := Restore(testHandler(), blob)
	require.NoError(t, err)

	// A restored machine enforces the same edge set.
	require.ErrorIs(t, restored.TransitionTo(StateWaitingForDatabase), ErrInvalidTransition)
	require.NoError(t, restored.TransitionTo(StateReady))
	assert.Equal(t, StateReady, restored.CurrentState())
}
