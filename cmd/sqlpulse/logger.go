package main

import (
	"github.com/sqlpulse/sqlpulse/internal/logging"
)

// SetupLogger configures the default logger based on provided log level
func SetupLogger(logLevel string, json bool) {
	logging.Setup(logLevel, json)
}
