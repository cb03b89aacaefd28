package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromBytes_Full(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfigFromBytes([]byte(`
log_level = "debug"
listen = "0.0.0.0:9090"
data_dir = "/tmp/sqlpulse"

[database]
username = "tester"
password = "hunter2"
endpoints = "10.1.2.3:3306"
name = "ha_test"

[workload]
interval = "100ms"
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:9090", cfg.Listen)
	assert.Equal(t, "/tmp/sqlpulse", cfg.DataDir)
	assert.Equal(t, "ha_test", cfg.Database.Name)
	assert.True(t, cfg.Database.Present())
	assert.Equal(t, 100*time.Millisecond, cfg.Workload.Interval.Duration())

	host, port, err := cfg.Database.HostPort()
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", host)
	assert.Equal(t, "3306", port)
}

func TestNewConfigFromBytes_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfigFromBytes([]byte(``))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultDatabaseName, cfg.Database.Name)
	assert.Equal(t, DefaultInterval, cfg.Workload.Interval.Duration())
	assert.False(t, cfg.Database.Present())
}

func TestNewConfigFromBytes_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		toml    string
		wantErr error
	}{
		{
			name:    "bad toml",
			toml:    `listen = [not toml`,
			wantErr: ErrParseToml,
		},
		{
			name:    "bad listen",
			toml:    `listen = "no-port"`,
			wantErr: ErrInvalidListen,
		},
		{
			name: "partial database settings",
			toml: `
[database]
username = "tester"
`,
			wantErr: ErrIncompleteDatabase,
		},
		{
			name: "bad endpoints",
			toml: `
[database]
username = "tester"
password = "hunter2"
endpoints = "just-a-host"
`,
			wantErr: ErrInvalidEndpoints,
		},
		{
			name: "bad interval",
			toml: `
[workload]
interval = "fast"
`,
			wantErr: ErrParseToml,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := NewConfigFromBytes([]byte(tc.toml))
			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, cfg)
		})
	}
}

func TestNewConfigFromBytes_EnvInterpolation(t *testing.T) {
	t.Setenv("SQLPULSE_DB_PASSWORD", "hunter2")

	cfg, err := NewConfigFromBytes([]byte(`
[database]
username = "tester"
password = "${SQLPULSE_DB_PASSWORD}"
endpoints = "${SQLPULSE_DB_ENDPOINTS:10.0.0.5:3306}"
`))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, "10.0.0.5:3306", cfg.Database.Endpoints)
}

func TestDatabaseValidate_EmptyIsNotAnError(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Database{}.Validate())
	assert.False(t, Database{}.Present())
}
