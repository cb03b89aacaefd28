package harness

import "context"

// Database is the client surface the harness drives. Implemented by
// database.Client; tests substitute a fake.
type Database interface {
	Ping(ctx context.Context) error
	EnsureWritesTable(ctx context.Context) error
	DropWritesTable(ctx context.Context) error
	InsertNumber(ctx context.Context, n int64) error
	MaxWrittenValue(ctx context.Context) int64
	WriteRandomValue(ctx context.Context) (string, error)
	Close() error
}

// ContinuousWriter is the background write workload. Implemented by
// workload.Writer.
type ContinuousWriter interface {
	Start(ctx context.Context, from int64)
	Stop()
	IsRunning() bool
	LastWritten() int64
}
