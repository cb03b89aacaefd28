// Package workload generates the continuous write load used to validate
// database failover: monotonically increasing numbers inserted on a fixed
// interval by a background goroutine.
package workload

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sqlpulse/sqlpulse/internal/metrics"
)

// Database is the narrow surface the writer needs.
type Database interface {
	InsertNumber(ctx context.Context, n int64) error
}

// Writer inserts monotonically increasing numbers in the background.
// A failed insert is retried with the same number on the next tick, so the
// sequence never has gaps.
type Writer struct {
	db       Database
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	last atomic.Int64
}

type Option func(*Writer)

// WithLogger sets a custom logger for the writer.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithInterval sets the delay between inserts.
func WithInterval(interval time.Duration) Option {
	return func(w *Writer) {
		w.interval = interval
	}
}

// New creates a stopped writer.
func New(db Database, opts ...Option) *Writer {
	w := &Writer{
		db:       db,
		interval: 50 * time.Millisecond,
		logger:   slog.Default().WithGroup("workload.Writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins inserting numbers at from. A writer that is already running
// is stopped first, giving the restart semantics of the
// start-continuous-writes action.
func (w *Writer) Start(ctx context.Context, from int64) {
	w.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	w.logger.Info("starting continuous writes", "from", from, "interval", w.interval)
	go w.loop(runCtx, done, from)
}

// Stop halts the writer and waits for the background goroutine to exit.
// Stopping a stopped writer is a no-op.
func (w *Writer) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Info("continuous writes stopped", "last_written", w.last.Load())
}

// IsRunning reports whether the background goroutine is active.
func (w *Writer) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// LastWritten returns the last number confirmed written, or 0 when the
// writer has not written anything yet.
func (w *Writer) LastWritten() int64 {
	return w.last.Load()
}

func (w *Writer) loop(ctx context.Context, done chan struct{}, from int64) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	next := from
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.db.InsertNumber(ctx, next); err != nil {
				metrics.WriteErrorsTotal.Inc()
				w.logger.Debug("insert failed, retrying with same number", "number", next, "error", err)
				continue
			}
			metrics.WritesTotal.Inc()
			metrics.LastWrittenValue.Set(float64(next))
			w.last.Store(next)
			next++
		}
	}
}
