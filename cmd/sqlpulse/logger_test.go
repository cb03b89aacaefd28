package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	before := slog.Default()
	defer slog.SetDefault(before)

	SetupLogger("debug", false)
	assert.NotEqual(t, before, slog.Default())
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))

	SetupLogger("error", true)
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
}
