package harness

import (
	"context"
	"errors"
	"fmt"
)

// Action names accepted by DispatchAction.
const (
	ActionGetState              = "get-state"
	ActionStartContinuousWrites = "start-continuous-writes"
	ActionStopContinuousWrites  = "stop-continuous-writes"
	ActionClearContinuousWrites = "clear-continuous-writes"
	ActionGetInsertedData       = "get-inserted-data"
)

// ErrUnknownAction is returned for action names not listed above.
var ErrUnknownAction = errors.New("unknown action")

// Result is the structured output of a dispatched action.
type Result map[string]any

// unavailableResult marks an action that could not run because the
// database relation is not established. Callers can tell "not yet ready"
// apart from "failed".
func unavailableResult() Result {
	return Result{"unavailable": "database"}
}

// DispatchAction runs the named action and returns its structured result.
func (r *Runner) DispatchAction(ctx context.Context, name string) (Result, error) {
	switch name {
	case ActionGetState:
		return Result{"state": r.machine.CurrentState()}, nil
	case ActionStartContinuousWrites:
		return r.startContinuousWrites()
	case ActionStopContinuousWrites:
		return r.stopContinuousWrites(ctx)
	case ActionClearContinuousWrites:
		return r.clearContinuousWrites(ctx)
	case ActionGetInsertedData:
		return r.getInsertedData()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
}

// startContinuousWrites restarts the workload from 1.
func (r *Runner) startContinuousWrites() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return unavailableResult(), nil
	}
	r.startWritesLocked(1)
	return Result{"started": true}, nil
}

// stopContinuousWrites halts the workload and reports the max written
// value, so test drivers can verify no writes were lost across failover.
func (r *Runner) stopContinuousWrites(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return Result{"writes": int64(0)}, nil
	}
	r.stopWritesLocked()
	return Result{"writes": r.db.MaxWrittenValue(ctx)}, nil
}

// clearContinuousWrites halts the workload and drops the writes table.
func (r *Runner) clearContinuousWrites(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return unavailableResult(), nil
	}
	r.stopWritesLocked()
	if err := r.db.DropWritesTable(ctx); err != nil {
		return nil, err
	}
	return Result{"cleared": true}, nil
}

// getInsertedData reports the random value written when the database was
// created, or "empty" when none was recorded.
func (r *Runner) getInsertedData() (Result, error) {
	if r.store == nil {
		return Result{"data": "empty"}, nil
	}
	value, ok, err := r.store.Get(insertedValueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted value: %w", err)
	}
	if !ok {
		return Result{"data": "empty"}, nil
	}
	return Result{"data": string(value)}, nil
}
