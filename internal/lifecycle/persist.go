package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// snapshotVersion guards the persisted encoding. Bump it when the encoding
// changes; cross-version snapshots are rejected as corrupt.
const snapshotVersion = 1

// ErrCorruptState is returned by Restore when a snapshot cannot be decoded
// into one of the three known states.
var ErrCorruptState = errors.New("corrupt lifecycle snapshot")

// snapshot encodes only the semantic state value, keeping the persisted
// format inspectable and independent of any library internals.
type snapshot struct {
	Version int    `json:"v"`
	State   string `json:"state"`
}

// Snapshot serializes the current state. The blob is stable across process
// restarts of the same build.
func (m *Machine) Snapshot() ([]byte, error) {
	data, err := json.Marshal(snapshot{Version: snapshotVersion, State: m.fsm.GetState()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lifecycle snapshot: %w", err)
	}
	return data, nil
}

// Restore reconstructs a machine whose current state equals the value
// encoded in blob. Callers handle a missing blob themselves by calling New;
// an undecodable or out-of-range blob fails with ErrCorruptState.
func Restore(handler slog.Handler, blob []byte) (*Machine, error) {
	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrCorruptState, snap.Version)
	}
	if _, ok := Transitions[snap.State]; !ok {
		return nil, fmt.Errorf("%w: unknown state %q", ErrCorruptState, snap.State)
	}
	return newAt(handler, snap.State)
}
