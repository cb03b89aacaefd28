// Package database is the MySQL client for the harness workload tables.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/sqlpulse/sqlpulse/internal/config"
)

// Table names owned by the harness inside the test database.
const (
	WritesTable = "data"
	RandomTable = "random_data"
)

// MaxWrittenValue retry budget, matching the original harness: keep asking
// for up to a minute with a fixed five second delay.
const (
	maxWrittenAttempts = 12
	maxWrittenDelay    = 5 * time.Second
)

// Settings holds everything needed to connect to the test database.
type Settings struct {
	Username string
	Password string
	Host     string
	Port     string
	Name     string
}

// SettingsFromConfig converts relation-style config into connection settings.
func SettingsFromConfig(dbCfg config.Database) (Settings, error) {
	host, port, err := dbCfg.HostPort()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Username: dbCfg.Username,
		Password: dbCfg.Password,
		Host:     host,
		Port:     port,
		Name:     dbCfg.Name,
	}, nil
}

// DSN renders the settings as a go-sql-driver DSN.
func (s Settings) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	cfg.DBName = s.Name
	return cfg.FormatDSN()
}

// Client wraps a sql.DB for the harness tables.
type Client struct {
	db     *sql.DB
	name   string
	logger *slog.Logger
	clock  clock.Clock
}

type Option func(*Client)

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock sets the clock used by retry loops. Tests use a fake clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

// Open connects to the test database. The connection is verified lazily;
// call Ping to check reachability.
func Open(settings Settings, opts ...Option) (*Client, error) {
	db, err := sql.Open("mysql", settings.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client := &Client{
		db:     db,
		name:   settings.Name,
		logger: slog.Default().WithGroup("database.Client"),
		clock:  clock.WallClock,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// EnsureWritesTable creates the continuous-writes table if needed.
func (c *Client) EnsureWritesTable(ctx context.Context) error {
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS `%s`.`%s`(number BIGINT NOT NULL, PRIMARY KEY (number))",
		c.name, WritesTable,
	)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create writes table: %w", err)
	}
	return nil
}

// InsertNumber writes one monotonic row.
func (c *Client) InsertNumber(ctx context.Context, n int64) error {
	query := fmt.Sprintf("INSERT INTO `%s`.`%s`(number) VALUES(?)", c.name, WritesTable)
	if _, err := c.db.ExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("failed to insert number %d: %w", n, err)
	}
	return nil
}

// DropWritesTable removes the continuous-writes table and its rows.
func (c *Client) DropWritesTable(ctx context.Context) error {
	query := fmt.Sprintf("DROP TABLE IF EXISTS `%s`.`%s`", c.name, WritesTable)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to drop writes table: %w", err)
	}
	return nil
}

func (c *Client) maxWrittenValue(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT MAX(number) FROM `%s`.`%s`", c.name, WritesTable)

	var max sql.NullInt64
	if err := c.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to query max written value: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// MaxWrittenValue returns the highest number in the writes table, retrying
// while the cluster fails over. Returns -1 when the retry budget is
// exhausted, the way callers expect to report "unable to query".
func (c *Client) MaxWrittenValue(ctx context.Context) int64 {
	var result int64 = -1
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			value, err := c.maxWrittenValue(ctx)
			if err != nil {
				return err
			}
			result = value
			return nil
		},
		NotifyFunc: func(err error, attempt int) {
			c.logger.Debug("max written value query failed", "attempt", attempt, "error", err)
		},
		Attempts: maxWrittenAttempts,
		Delay:    maxWrittenDelay,
		Clock:    c.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		c.logger.Error("unable to query the database for max written value", "error", err)
		return -1
	}
	return result
}

// WriteRandomValue creates the random-data table if needed, inserts a fresh
// random value, and returns it.
func (c *Client) WriteRandomValue(ctx context.Context) (string, error) {
	create := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS `%s`.`%s`(id SMALLINT NOT NULL AUTO_INCREMENT, data VARCHAR(255), PRIMARY KEY (id))",
		c.name, RandomTable,
	)
	if _, err := c.db.ExecContext(ctx, create); err != nil {
		return "", fmt.Errorf("failed to create random data table: %w", err)
	}

	value, err := randomValue(randomValueLength)
	if err != nil {
		return "", err
	}

	insert := fmt.Sprintf("INSERT INTO `%s`.`%s`(data) VALUES(?)", c.name, RandomTable)
	if _, err := c.db.ExecContext(ctx, insert, value); err != nil {
		return "", fmt.Errorf("failed to insert random value: %w", err)
	}
	return value, nil
}
