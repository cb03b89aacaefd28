// Package config loads and validates the harness TOML configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/sqlpulse/sqlpulse/internal/interpolation"
)

// Defaults applied when the config file leaves fields unset.
const (
	DefaultLogLevel     = "info"
	DefaultListen       = "127.0.0.1:8080"
	DefaultDataDir      = "/var/lib/sqlpulse"
	DefaultDatabaseName = "continuous_writes_database"
	DefaultInterval     = 50 * time.Millisecond
)

var (
	ErrParseToml          = errors.New("failed to parse TOML")
	ErrIncompleteDatabase = errors.New("incomplete database settings")
	ErrInvalidEndpoints   = errors.New("invalid database endpoints")
	ErrInvalidListen      = errors.New("invalid listen address")
)

// Config is the full harness configuration.
type Config struct {
	LogLevel string   `toml:"log_level"`
	Listen   string   `toml:"listen"`
	DataDir  string   `toml:"data_dir"`
	Database Database `toml:"database"`
	Workload Workload `toml:"workload"`
}

// Database mirrors the connection settings a database relation provides.
// All three of Username, Password and Endpoints must be set before the
// harness treats the database as available.
type Database struct {
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Endpoints string `toml:"endpoints"` // "host:port"
	Name      string `toml:"name"`
}

// Workload configures the continuous-writes writer.
type Workload struct {
	Interval Duration `toml:"interval"`
}

// NewConfig loads configuration from a TOML file.
func NewConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filePath, err)
	}
	return NewConfigFromBytes(data)
}

// NewConfigFromBytes loads configuration from TOML bytes. Environment
// variable references like ${MYSQL_PASSWORD} are expanded before parsing.
func NewConfigFromBytes(data []byte) (*Config, error) {
	expanded, err := interpolation.ExpandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	cfg := &Config{}
	if err := gotoml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseToml, err)
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Database.Name == "" {
		c.Database.Name = DefaultDatabaseName
	}
	if c.Workload.Interval.Duration() <= 0 {
		c.Workload.Interval = Duration(DefaultInterval)
	}
}

// Validate checks the configuration for internal consistency. Missing
// database settings are not an error: the harness treats them as "relation
// not yet joined" and remains blocked.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidListen, c.Listen, err)
	}
	return c.Database.Validate()
}

// Present reports whether all required connection settings are set.
func (d Database) Present() bool {
	return d.Username != "" && d.Password != "" && d.Endpoints != ""
}

// Validate rejects partially specified settings so a typo in one field is
// not silently treated as "relation not yet joined".
func (d Database) Validate() error {
	if d.Username == "" && d.Password == "" && d.Endpoints == "" {
		return nil
	}
	if !d.Present() {
		return fmt.Errorf("%w: username, password and endpoints must all be set", ErrIncompleteDatabase)
	}
	if _, _, err := net.SplitHostPort(d.Endpoints); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidEndpoints, d.Endpoints, err)
	}
	return nil
}

// HostPort splits the endpoints value into host and port.
func (d Database) HostPort() (host, port string, err error) {
	host, port, err = net.SplitHostPort(d.Endpoints)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %w", ErrInvalidEndpoints, d.Endpoints, err)
	}
	return host, port, nil
}
