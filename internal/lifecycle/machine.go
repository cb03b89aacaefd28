// Package lifecycle tracks the harness lifecycle with a small finite state
// machine: the harness waits for the database, becomes ready, and cycles
// between ready and writing as the continuous-writes workload starts and
// stops. The current state survives process restarts via Snapshot/Restore.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Harness lifecycle states.
const (
	// StateWaitingForDatabase is the initial state and the only blocked
	// state. Dependent functionality must not proceed while blocked.
	StateWaitingForDatabase = "waiting_for_database"

	// StateReady means the database is available and no workload is running.
	StateReady = "ready"

	// StateWriting means the continuous-writes workload is running.
	StateWriting = "writing"
)

// Transitions is the fixed edge set for the harness lifecycle. There is
// no edge back to waiting_for_database: once the database relation has
// been established the machine never reports blocked again.
var Transitions = map[string][]string{
	StateWaitingForDatabase: {StateReady},
	StateReady:              {StateWriting},
	StateWriting:            {StateReady},
}

// ErrInvalidTransition is returned by TransitionTo when the requested edge
// is not in the transition table. The machine state is unchanged.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// Machine holds exactly one of the three lifecycle states and enforces
// that only edges from the Transitions table occur.
type Machine struct {
	fsm *fsm.Machine
}

// New returns a machine in the initial waiting_for_database state.
func New(handler slog.Handler) (*Machine, error) {
	return newAt(handler, StateWaitingForDatabase)
}

func newAt(handler slog.Handler, state string) (*Machine, error) {
	machine, err := fsm.New(handler, state, Transitions)
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	return &Machine{fsm: machine}, nil
}

// CurrentState returns the current lifecycle state.
func (m *Machine) CurrentState() string {
	return m.fsm.GetState()
}

// IsBlocked reports whether the machine is in the blocked state.
func (m *Machine) IsBlocked() bool {
	return m.fsm.GetState() == StateWaitingForDatabase
}

// CanTransitionTo reports whether the edge from the current state to
// target is in the transition table. Unknown targets return false.
func (m *Machine) CanTransitionTo(target string) bool {
	for _, next := range Transitions[m.fsm.GetState()] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the machine to target. It fails with
// ErrInvalidTransition and leaves the state unchanged when the edge is
// not allowed. This is the only mutator.
func (m *Machine) TransitionTo(target string) error {
	current := m.fsm.GetState()
	if !m.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}
	if err := m.fsm.Transition(target); err != nil {
		return fmt.Errorf("%w: %s -> %s: %w", ErrInvalidTransition, current, target, err)
	}
	return nil
}

// StateChan returns a channel that emits the state whenever it changes.
// The channel is closed when the provided context is canceled.
func (m *Machine) StateChan(ctx context.Context) <-chan string {
	return m.fsm.GetStateChan(ctx)
}
