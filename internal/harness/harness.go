// Package harness orchestrates the test application: it owns the lifecycle
// state machine, the peer-data store, the database client and the
// continuous-writes workload, and answers the externally triggered actions.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robbyt/go-supervisor/supervisor"

	"github.com/sqlpulse/sqlpulse/internal/config"
	"github.com/sqlpulse/sqlpulse/internal/database"
	"github.com/sqlpulse/sqlpulse/internal/lifecycle"
	"github.com/sqlpulse/sqlpulse/internal/peerdata"
	"github.com/sqlpulse/sqlpulse/internal/workload"
)

// Peer-data keys.
const (
	stateMachineKey  = "state-machine"
	insertedValueKey = "inserted-value"
)

var (
	_ supervisor.Runnable   = (*Runner)(nil)
	_ supervisor.Reloadable = (*Runner)(nil)
	_ supervisor.Stateable  = (*Runner)(nil)
)

// DatabaseOpener builds a database client from relation-style settings.
type DatabaseOpener func(config.Database) (Database, error)

// WriterFactory builds the continuous-writes workload for a database.
type WriterFactory func(Database) ContinuousWriter

// Runner ties the harness together and implements the supervisor
// interfaces for lifecycle management.
type Runner struct {
	cfg        *config.Config
	configPath string

	store     peerdata.Store
	openDB    DatabaseOpener
	newWriter WriterFactory
	logger    *slog.Logger

	machine *lifecycle.Machine

	mu     sync.Mutex
	db     Database
	writer ContinuousWriter
	dbCfg  config.Database

	started   atomic.Bool
	runCtx    context.Context
	runCancel context.CancelFunc
	parentCtx context.Context
}

type Option func(*Runner)

// WithLogger sets a custom logger for the Runner instance.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithContext sets a custom parent context for the Runner instance.
func WithContext(ctx context.Context) Option {
	return func(r *Runner) {
		r.parentCtx = ctx
	}
}

// WithStore sets the peer-data store used for persistence. A nil store
// disables persistence: the harness starts fresh and skips the shutdown
// snapshot rather than failing.
func WithStore(store peerdata.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithConfigPath enables config reloading on SIGHUP.
func WithConfigPath(path string) Option {
	return func(r *Runner) {
		r.configPath = path
	}
}

// WithDatabaseOpener replaces the database client constructor, for tests.
func WithDatabaseOpener(open DatabaseOpener) Option {
	return func(r *Runner) {
		r.openDB = open
	}
}

// WithWriterFactory replaces the workload constructor, for tests.
func WithWriterFactory(factory WriterFactory) Option {
	return func(r *Runner) {
		r.newWriter = factory
	}
}

// New creates a Runner and restores the lifecycle machine from the
// peer-data store. Restore happens exactly once, here, before any
// transition can occur.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	r := &Runner{
		cfg:       cfg,
		logger:    slog.Default().WithGroup("harness.Runner"),
		parentCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.openDB == nil {
		r.openDB = func(dbCfg config.Database) (Database, error) {
			settings, err := database.SettingsFromConfig(dbCfg)
			if err != nil {
				return nil, err
			}
			return database.Open(settings, database.WithLogger(r.logger.WithGroup("database")))
		}
	}
	if r.newWriter == nil {
		r.newWriter = func(db Database) ContinuousWriter {
			return workload.New(db,
				workload.WithInterval(r.cfg.Workload.Interval.Duration()),
				workload.WithLogger(r.logger.WithGroup("workload")),
			)
		}
	}

	machine, err := r.restoreMachine()
	if err != nil {
		return nil, err
	}
	r.machine = machine

	return r, nil
}

// restoreMachine rebuilds the lifecycle machine from the persisted
// snapshot. Missing store and missing snapshot both mean a fresh machine;
// a corrupt snapshot is surfaced and then falls back to the initial state,
// because the harness has to come back up during failover testing.
func (r *Runner) restoreMachine() (*lifecycle.Machine, error) {
	handler := r.logger.WithGroup("lifecycle").Handler()

	if r.store == nil {
		r.logger.Info("peer-data store unavailable, starting with a fresh state machine")
		return lifecycle.New(handler)
	}

	blob, ok, err := r.store.Get(stateMachineKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read state machine snapshot: %w", err)
	}
	if !ok {
		return lifecycle.New(handler)
	}

	machine, err := lifecycle.Restore(handler, blob)
	if err != nil {
		if errors.Is(err, lifecycle.ErrCorruptState) {
			r.logger.Error("state machine snapshot is corrupt, falling back to initial state", "error", err)
			return lifecycle.New(handler)
		}
		return nil, err
	}
	r.logger.Info("restored state machine", "state", machine.CurrentState())
	return machine, nil
}

// String implements the supervisor.Runnable interface.
func (r *Runner) String() string {
	return "harness.Runner"
}

// Run implements the supervisor.Runnable interface. It brings the database
// workload up when connection settings are present, then blocks until the
// context is canceled. The lifecycle snapshot is written exactly once, on
// the way out.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Debug("starting Runner")
	r.mu.Lock()
	r.runCtx, r.runCancel = context.WithCancel(ctx)
	runCtx := r.runCtx
	if err := r.setupDatabaseLocked(runCtx); err != nil {
		r.logger.Error("database setup failed, remaining blocked", "error", err)
	}
	r.mu.Unlock()

	r.started.Store(true)
	defer r.started.Store(false)

	select {
	case <-r.parentCtx.Done():
		r.logger.Debug("parent context canceled")
	case <-runCtx.Done():
		r.logger.Debug("run context canceled")
	}

	r.logger.Info("Runner shutting down")
	r.shutdown()
	return nil
}

// Stop implements the supervisor.Runnable interface.
func (r *Runner) Stop() {
	r.logger.Debug("stopping Runner")
	r.mu.Lock()
	cancel := r.runCancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// setupDatabaseLocked performs the "database created" checkpoint: open the
// client, create the schema, start continuous writes and record a random
// value. Missing settings leave the harness blocked; that is the
// documented "relation not yet joined" condition, not an error.
func (r *Runner) setupDatabaseLocked(ctx context.Context) error {
	if !r.cfg.Database.Present() {
		r.logger.Info("database settings not present, waiting for database")
		return nil
	}

	db, err := r.openDB(r.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// The client is published to the action handlers only once the schema
	// exists; a half-set-up database must not look available.
	if err := db.EnsureWritesTable(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			r.logger.Warn("failed to close database", "error", cerr)
		}
		return err
	}
	r.db = db
	r.dbCfg = r.cfg.Database
	r.writer = r.newWriter(db)

	if r.machine.CanTransitionTo(lifecycle.StateReady) {
		if err := r.machine.TransitionTo(lifecycle.StateReady); err != nil {
			return err
		}
	}

	r.startWritesLocked(1)

	value, err := db.WriteRandomValue(ctx)
	if err != nil {
		r.logger.Warn("failed to write random value", "error", err)
		return nil
	}
	if r.store != nil {
		if err := r.store.Set(insertedValueKey, []byte(value)); err != nil {
			r.logger.Warn("failed to record inserted value", "error", err)
		}
	}
	return nil
}

// startWritesLocked starts the workload at from and moves the machine to
// writing when that edge is available.
func (r *Runner) startWritesLocked(from int64) {
	ctx := r.runCtx
	if ctx == nil {
		ctx = r.parentCtx
	}
	r.writer.Start(ctx, from)

	if r.machine.CanTransitionTo(lifecycle.StateWriting) {
		if err := r.machine.TransitionTo(lifecycle.StateWriting); err != nil {
			r.logger.Error("failed to transition to writing", "error", err)
		}
	}
}

// stopWritesLocked stops the workload and moves the machine back to ready
// when that edge is available.
func (r *Runner) stopWritesLocked() {
	r.writer.Stop()
	if r.machine.CanTransitionTo(lifecycle.StateReady) {
		if err := r.machine.TransitionTo(lifecycle.StateReady); err != nil {
			r.logger.Error("failed to transition to ready", "error", err)
		}
	}
}

func (r *Runner) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer != nil {
		r.writer.Stop()
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
	}
	r.persistMachineLocked()
}

// persistMachineLocked writes the lifecycle snapshot. Called exactly once
// per process lifetime, at shutdown.
func (r *Runner) persistMachineLocked() {
	if r.store == nil {
		r.logger.Debug("peer-data store unavailable, skipping state machine snapshot")
		return
	}
	blob, err := r.machine.Snapshot()
	if err != nil {
		r.logger.Error("failed to encode state machine snapshot", "error", err)
		return
	}
	if err := r.store.Set(stateMachineKey, blob); err != nil {
		r.logger.Error("failed to persist state machine snapshot", "error", err)
		return
	}
	r.logger.Info("persisted state machine", "state", r.machine.CurrentState())
}

// Reload implements the supervisor.Reloadable interface. On SIGHUP the
// config file is re-read; when the database endpoints changed the workload
// is restarted at max written value + 1, so the monotonic sequence
// continues on the new primary.
func (r *Runner) Reload() {
	r.logger.Debug("reloading configuration")
	if r.configPath == "" {
		r.logger.Warn("no config path set, skipping reload")
		return
	}

	cfg, err := config.NewConfig(r.configPath)
	if err != nil {
		r.logger.Error("failed to reload config", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Database == r.dbCfg && r.db != nil {
		r.logger.Debug("database settings unchanged")
		r.cfg = cfg
		return
	}
	r.cfg = cfg

	if r.db == nil {
		// Relation joined after startup.
		if err := r.setupDatabaseLocked(r.runCtx); err != nil {
			r.logger.Error("database setup failed, remaining blocked", "error", err)
		}
		return
	}

	if !cfg.Database.Present() {
		r.logger.Warn("database settings removed, keeping current connection")
		return
	}

	// Endpoints changed: pick up the sequence where it left off.
	count := r.db.MaxWrittenValue(r.runCtx)
	if count < 0 {
		count = 0
	}

	r.writer.Stop()
	if err := r.db.Close(); err != nil {
		r.logger.Warn("failed to close database", "error", err)
	}

	db, err := r.openDB(cfg.Database)
	if err != nil {
		r.logger.Error("failed to open database with new endpoints", "error", err)
		r.db = nil
		return
	}
	r.db = db
	r.dbCfg = cfg.Database
	r.writer = r.newWriter(db)

	if err := db.EnsureWritesTable(r.runCtx); err != nil {
		r.logger.Error("failed to ensure writes table after reload", "error", err)
		return
	}
	r.startWritesLocked(count + 1)
	r.logger.Info("restarted continuous writes after endpoint change", "from", count+1)
}
