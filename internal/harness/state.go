package harness

import "context"

// GetState returns the lifecycle state machine's current state.
func (r *Runner) GetState() string {
	return r.machine.CurrentState()
}

// GetStateChan returns a channel that emits the lifecycle state whenever
// it changes.
func (r *Runner) GetStateChan(ctx context.Context) <-chan string {
	return r.machine.StateChan(ctx)
}

// IsRunning reports whether the Runner's Run loop is active.
func (r *Runner) IsRunning() bool {
	return r.started.Load()
}

// IsBlocked reports whether dependent functionality must not proceed.
func (r *Runner) IsBlocked() bool {
	return r.machine.IsBlocked()
}
